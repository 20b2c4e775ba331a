// Package llm abstracts answer generation behind a small provider interface
// so the pipeline never touches vendor SDKs directly.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Timeouts for LLM operations.
const (
	TimeoutLLMCall = 30 * time.Second
)

// Domain errors for the llm package.
var (
	ErrProviderNotAvailable = errors.New("provider not available")
	ErrUpstreamModel        = errors.New("upstream model error")
)

// Provider is the interface all generation backends implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "ollama").
	Name() string
	// Generate sends a completion request and returns the response.
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Request represents a generation request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Message represents a chat message.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Response represents a generation response.
type Response struct {
	Content      string
	FinishReason string
	InputTokens  int
	OutputTokens int
	Model        string
}

// New constructs a provider by name. An openai provider without an API key
// degrades to the mock provider so the rest of the system stays exercisable
// offline.
func New(name, apiKey, baseURL string) (Provider, error) {
	switch name {
	case "openai":
		if apiKey == "" {
			log.Warn().Msg("no API key configured, using mock generation provider")
			return NewMockProvider(), nil
		}
		if baseURL != "" {
			return NewOpenAIProviderWithBaseURL(apiKey, baseURL), nil
		}
		return NewOpenAIProvider(apiKey), nil
	case "ollama":
		return NewOllamaProvider(baseURL), nil
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrProviderNotAvailable, name)
	}
}
