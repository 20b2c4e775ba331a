package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	guardotel "github.com/Kruthik-JP/guard-rail-NER/internal/otel"
)

var tracer = guardotel.Tracer("github.com/Kruthik-JP/guard-rail-NER/internal/embed")

var openAIDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder produces embeddings via the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates an OpenAI embedder. Model defaults to
// text-embedding-3-small; unknown models assume 1536 dimensions.
func NewOpenAIEmbedder(apiKey, model, baseURL string) *OpenAIEmbedder {
	if model == "" {
		model = "text-embedding-3-small"
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	dims, ok := openAIDimensions[model]
	if !ok {
		dims = 1536
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dims,
	}
}

// Embed returns one vector per input text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := tracer.Start(ctx, "embed.openai",
		trace.WithAttributes(
			guardotel.GenAISystem.String("openai"),
			guardotel.GenAIRequestModel.String(e.model),
			attribute.Int("embed.batch_size", len(texts)),
		))
	defer span.End()

	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, TimeoutEmbedCall)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: openai embeddings: %v", ErrEmbeddingFailure, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d inputs",
			ErrEmbeddingFailure, len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: openai embedding index %d out of range", ErrEmbeddingFailure, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Dimensions returns the vector length for the configured model.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}
