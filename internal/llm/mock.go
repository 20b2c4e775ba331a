package llm

import (
	"context"
	"strings"
)

// MockProvider returns canned answers. It stands in when no real backend is
// configured so indexing, retrieval, and redaction stay testable offline.
type MockProvider struct{}

// NewMockProvider creates a mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name returns the provider identifier.
func (p *MockProvider) Name() string {
	return "mock"
}

// Generate returns a deterministic answer built from the last user message.
func (p *MockProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	var question string
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			question = msg.Content
		}
	}
	question = strings.TrimSpace(question)

	content := "This is a mock response. No generation backend is configured."
	if question != "" {
		content = "Mock answer based on the provided context for: " + question
	}

	inputTokens := 0
	for _, msg := range req.Messages {
		inputTokens += len(msg.Content) / 4
	}

	return &Response{
		Content:      content,
		FinishReason: "stop",
		InputTokens:  inputTokens,
		OutputTokens: len(content) / 4,
		Model:        "mock",
	}, nil
}
