package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kruthik-JP/guard-rail-NER/internal/detector"
	"github.com/Kruthik-JP/guard-rail-NER/internal/guardrail"
	"github.com/Kruthik-JP/guard-rail-NER/internal/index"
	"github.com/Kruthik-JP/guard-rail-NER/internal/llm"
	"github.com/Kruthik-JP/guard-rail-NER/internal/pipeline"
	"github.com/Kruthik-JP/guard-rail-NER/internal/policy"
	"github.com/Kruthik-JP/guard-rail-NER/internal/semantic"
	"github.com/Kruthik-JP/guard-rail-NER/internal/server"
	"github.com/Kruthik-JP/guard-rail-NER/internal/testutil"
)

type testAPI struct {
	handler http.Handler
	docsDir string
	p       *pipeline.Pipeline
}

func newTestAPI(t *testing.T, riskCeiling float64, opts ...server.Option) *testAPI {
	t.Helper()

	topics, err := semantic.DefaultTopics()
	require.NoError(t, err)
	phrases := make([]string, len(topics))
	for i, topic := range topics {
		phrases[i] = topic.Phrase
	}
	embedder := testutil.NewTopicEmbedder(phrases)

	matcher, err := semantic.NewMatcher(context.Background(), embedder, topics, 0)
	require.NoError(t, err)
	guard := guardrail.New(detector.Must(), matcher, guardrail.NewRedactor(topics), 0)

	store, err := index.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	engine, err := policy.NewEngine(context.Background(), riskCeiling, "")
	require.NoError(t, err)

	p := pipeline.New(pipeline.Config{
		Guard:    guard,
		Embedder: embedder,
		Store:    store,
		Provider: llm.NewMockProvider(),
		Policy:   engine,
	})
	docsDir := t.TempDir()
	srv := server.NewServer(p, guard, store, docsDir, opts...)
	return &testAPI{handler: srv.Routes(), docsDir: docsDir, p: p}
}

func (a *testAPI) writeDoc(t *testing.T, name, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(a.docsDir, name), []byte(text), 0o600))
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, 0)

	rec := api.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "components")

	rec = api.do(t, http.MethodGet, "/health?detail=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	require.Contains(t, body, "components")
	components := body["components"].(map[string]interface{})
	assert.Equal(t, float64(0), components["index_chunks"])
}

func TestQueryInvalidJSON(t *testing.T) {
	api := newTestAPI(t, 0)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString("{broken"))
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeBody(t, rec)["error"])
}

func TestQueryEmpty(t *testing.T) {
	api := newTestAPI(t, 0)

	rec := api.do(t, http.MethodPost, "/query", map[string]string{"query": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Query is required", decodeBody(t, rec)["message"])
}

func TestQueryEmptyIndex(t *testing.T) {
	api := newTestAPI(t, 0)

	rec := api.do(t, http.MethodPost, "/query", map[string]string{"query": "what is the experience"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No relevant data found for your query.", decodeBody(t, rec)["message"])
}

func TestQuerySuccess(t *testing.T) {
	api := newTestAPI(t, 0)
	api.writeDoc(t, "resume.txt", "Worked at Acme Corp for five years.")
	_, err := api.p.BuildIndex(context.Background(), api.docsDir)
	require.NoError(t, err)

	rec := api.do(t, http.MethodPost, "/query", map[string]string{"query": "summarize the work history"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["answer"])
	assert.NotContains(t, body, "blocked_terms")
}

func TestQueryBlocked(t *testing.T) {
	// Ceiling below the semantic-only score so topic content blocks pre-model.
	api := newTestAPI(t, 0.4)
	api.writeDoc(t, "resume.txt", "CGPA 9.1 in computer science.")
	_, err := api.p.BuildIndex(context.Background(), api.docsDir)
	require.NoError(t, err)

	rec := api.do(t, http.MethodPost, "/query", map[string]string{"query": "what is the candidate's cgpa"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, pipeline.BlockedQueryAnswer, body["answer"])
	assert.InDelta(t, 0.5, body["risk_score"].(float64), 1e-6)
}

func TestSanitizeEndpoint(t *testing.T) {
	api := newTestAPI(t, 0)

	rec := api.do(t, http.MethodPost, "/v1/sanitize", map[string]string{
		"text": "Email john@example.com for details",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Email [EMAIL_REDACTED] for details", body["sanitized"])
	assert.Equal(t, true, body["contains_sensitive"])
	assert.InDelta(t, 0.7, body["risk_score"].(float64), 1e-6)
}

func TestAnalyzeEndpoint(t *testing.T) {
	api := newTestAPI(t, 0)

	rec := api.do(t, http.MethodPost, "/v1/analyze", map[string]string{
		"text": "card 4111 1111 1111 1111",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["contains_sensitive"])
	entityTypes := body["entity_types"].([]interface{})
	require.Len(t, entityTypes, 1)
	assert.Equal(t, "CREDIT_CARD", entityTypes[0])
}

func TestIndexBuildEndpoint(t *testing.T) {
	api := newTestAPI(t, 0)
	api.writeDoc(t, "resume.txt", "Worked at Acme Corp for five years.")

	rec := api.do(t, http.MethodPost, "/v1/index/build", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["documents_loaded"])
	assert.Equal(t, float64(1), body["chunks_indexed"])
}

func TestIndexBuildNoDocuments(t *testing.T) {
	api := newTestAPI(t, 0)

	rec := api.do(t, http.MethodPost, "/v1/index/build", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no_documents", decodeBody(t, rec)["error"])
}

func TestRateLimit(t *testing.T) {
	api := newTestAPI(t, 0, server.WithRateLimit(1, 1))

	first := api.do(t, http.MethodPost, "/v1/sanitize", map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusOK, first.Code)

	second := api.do(t, http.MethodPost, "/v1/sanitize", map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t, 0)

	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
