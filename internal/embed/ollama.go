package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	guardotel "github.com/Kruthik-JP/guard-rail-NER/internal/otel"
)

// OllamaEmbedder produces embeddings via a local Ollama instance.
type OllamaEmbedder struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
}

// NewOllamaEmbedder creates an Ollama embedder. If baseURL is empty, defaults
// to http://localhost:11434. Dimensions depend on the pulled model; pass the
// expected length so the index can validate vectors (0 means unknown).
func NewOllamaEmbedder(baseURL, model string, dimensions int) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaEmbedder{
		baseURL:    baseURL,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{},
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns one vector per input text.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := tracer.Start(ctx, "embed.ollama",
		trace.WithAttributes(
			guardotel.GenAISystem.String("ollama"),
			guardotel.GenAIRequestModel.String(e.model),
			attribute.Int("embed.batch_size", len(texts)),
		))
	defer span.End()

	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, TimeoutEmbedCall)
	defer cancel()

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshalling ollama embed request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating ollama embed request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: ollama embed call: %v", ErrEmbeddingFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ollama embed returned status %d", ErrEmbeddingFailure, resp.StatusCode)
	}

	var apiResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: decoding ollama embed response: %v", ErrEmbeddingFailure, err)
	}
	if len(apiResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: ollama returned %d embeddings for %d inputs",
			ErrEmbeddingFailure, len(apiResp.Embeddings), len(texts))
	}
	return apiResp.Embeddings, nil
}

// Dimensions returns the configured vector length (0 when unknown).
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}
