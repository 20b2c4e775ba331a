package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kruthik-JP/guard-rail-NER/internal/llm"
	"github.com/Kruthik-JP/guard-rail-NER/internal/testutil"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		want     string
		wantErr  bool
	}{
		{"openai with key", "openai", "sk-test", "openai", false},
		{"openai without key degrades to mock", "openai", "", "mock", false},
		{"ollama", "ollama", "", "ollama", false},
		{"mock", "mock", "", "mock", false},
		{"unknown", "bedrock", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := llm.New(tt.provider, tt.apiKey, "")
			if tt.wantErr {
				require.ErrorIs(t, err, llm.ErrProviderNotAvailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestMockProviderGenerate(t *testing.T) {
	p := llm.NewMockProvider()

	resp, err := p.Generate(context.Background(), &llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "be helpful"},
			{Role: "user", Content: "what is the work history"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "what is the work history")
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Positive(t, resp.InputTokens)
}

func TestOpenAIProviderGenerate(t *testing.T) {
	server := testutil.NewOpenAICompatibleServer("The candidate has five years of experience.", 40, 12)
	t.Cleanup(server.Close)

	p := llm.NewOpenAIProviderWithBaseURL("sk-test", server.URL)
	resp, err := p.Generate(context.Background(), &llm.Request{
		Model: "gpt-4o-mini",
		Messages: []llm.Message{
			{Role: "user", Content: "summarize the experience"},
		},
		Temperature: 0.2,
		MaxTokens:   512,
	})
	require.NoError(t, err)
	assert.Equal(t, "The candidate has five years of experience.", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 40, resp.InputTokens)
	assert.Equal(t, 12, resp.OutputTokens)
}

func TestOpenAIProviderUpstreamError(t *testing.T) {
	p := llm.NewOpenAIProviderWithBaseURL("sk-test", "http://127.0.0.1:0")

	_, err := p.Generate(context.Background(), &llm.Request{
		Model:    "gpt-4o-mini",
		Messages: []llm.Message{{Role: "user", Content: "hello"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrUpstreamModel)
}

func TestOllamaProviderGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, false, req["stream"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": "local answer"},
		})
	}))
	t.Cleanup(server.Close)

	p := llm.NewOllamaProvider(server.URL)
	resp, err := p.Generate(context.Background(), &llm.Request{
		Model:    "llama3",
		Messages: []llm.Message{{Role: "user", Content: "hello there"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "local answer", resp.Content)
	assert.Equal(t, "llama3", resp.Model)
}

func TestOllamaProviderNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	p := llm.NewOllamaProvider(server.URL)
	_, err := p.Generate(context.Background(), &llm.Request{
		Model:    "llama3",
		Messages: []llm.Message{{Role: "user", Content: "hello"}},
	})
	assert.ErrorIs(t, err, llm.ErrUpstreamModel)
}
