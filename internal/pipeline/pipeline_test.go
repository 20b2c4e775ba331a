package pipeline_test

import (
	"context"
	"errors"
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
	"github.com/Kruthik-JP/guard-rail-NER/internal/testutil"
)

// cannedProvider returns a fixed answer, or a fixed error.
type cannedProvider struct {
	content string
	err     error
}

func (p *cannedProvider) Name() string { return "canned" }

func (p *cannedProvider) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Content: p.content, FinishReason: "stop", Model: "canned"}, nil
}

type fixture struct {
	pipeline *pipeline.Pipeline
	docsDir  string
}

// newFixture assembles a pipeline with deterministic embeddings, a real
// guardrail facade, a temp-dir index, and the given provider.
func newFixture(t *testing.T, provider llm.Provider, riskCeiling float64) *fixture {
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

	return &fixture{
		pipeline: pipeline.New(pipeline.Config{
			Guard:    guard,
			Embedder: embedder,
			Store:    store,
			Provider: provider,
			Policy:   engine,
			Model:    "canned",
		}),
		docsDir: t.TempDir(),
	}
}

func (f *fixture) writeDoc(t *testing.T, name, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.docsDir, name), []byte(text), 0o600))
}

func TestBuildIndexSanitizesDocuments(t *testing.T) {
	f := newFixture(t, llm.NewMockProvider(), 0)
	f.writeDoc(t, "resume.txt", "Worked at Acme Corp.\n\nEmail john@example.com for references.")

	report, err := f.pipeline.BuildIndex(context.Background(), f.docsDir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsLoaded)
	assert.Equal(t, 1, report.ChunksIndexed)
	assert.Empty(t, report.SkippedDocuments)

	hit, err := f.pipeline.Retrieve(context.Background(), "who worked at acme")
	require.NoError(t, err)
	assert.NotContains(t, hit.Chunk.Text, "john@example.com")
	assert.Contains(t, hit.Chunk.Text, "[EMAIL_REDACTED]")
}

func TestBuildIndexRedactsEmailAndScoreTogether(t *testing.T) {
	f := newFixture(t, llm.NewMockProvider(), 0)
	f.writeDoc(t, "resume.txt", "My CGPA is 8.5/10, email me at a@b.com")

	_, err := f.pipeline.BuildIndex(context.Background(), f.docsDir)
	require.NoError(t, err)

	hit, err := f.pipeline.Retrieve(context.Background(), "what is the cgpa of this candidate")
	require.NoError(t, err)
	assert.Contains(t, hit.Chunk.Text, "[EMAIL_REDACTED]")
	assert.Contains(t, hit.Chunk.Text, "[CGPA_REDACTED]")
	assert.Contains(t, hit.Chunk.Text, guardrail.ScoreToken)
	assert.NotContains(t, hit.Chunk.Text, "a@b.com")
	assert.NotContains(t, hit.Chunk.Text, "8.5")
}

func TestBuildIndexRedactsAcademicScores(t *testing.T) {
	f := newFixture(t, llm.NewMockProvider(), 0)
	f.writeDoc(t, "resume.txt", "Scored 9.1/10 in the final year at State University.")

	_, err := f.pipeline.BuildIndex(context.Background(), f.docsDir)
	require.NoError(t, err)

	hit, err := f.pipeline.Retrieve(context.Background(), "where did the candidate graduate")
	require.NoError(t, err)
	assert.NotContains(t, hit.Chunk.Text, "9.1")
	assert.Contains(t, hit.Chunk.Text, "[REDACTED_SCORE]")
}

func TestBuildIndexNoDocuments(t *testing.T) {
	f := newFixture(t, llm.NewMockProvider(), 0)

	_, err := f.pipeline.BuildIndex(context.Background(), f.docsDir)
	assert.ErrorIs(t, err, pipeline.ErrNoDocuments)
}

func TestBuildIndexAllEmbeddingsFail(t *testing.T) {
	f := newFixture(t, llm.NewMockProvider(), 0)
	f.writeDoc(t, "resume.txt", "Worked at Acme Corp.")

	broken := pipeline.New(pipeline.Config{
		Guard:    guardrail.New(detector.Must(), nil, guardrail.NewRedactor(nil), 0),
		Embedder: testutil.FailingEmbedder{},
		Provider: llm.NewMockProvider(),
	})
	_, err := broken.BuildIndex(context.Background(), f.docsDir)
	assert.ErrorIs(t, err, pipeline.ErrNoDocuments)
}

func TestQueryEmpty(t *testing.T) {
	f := newFixture(t, llm.NewMockProvider(), 0)

	_, err := f.pipeline.Query(context.Background(), "   ")
	assert.ErrorIs(t, err, pipeline.ErrEmptyQuery)
}

func TestQueryEmptyIndex(t *testing.T) {
	f := newFixture(t, llm.NewMockProvider(), 0)

	_, err := f.pipeline.Query(context.Background(), "what is the work experience")
	assert.ErrorIs(t, err, index.ErrNoMatch)
}

func TestQuerySuccess(t *testing.T) {
	provider := &cannedProvider{content: "The candidate worked at Acme Corp as a backend engineer."}
	f := newFixture(t, provider, 0)
	f.writeDoc(t, "resume.txt", "Worked at Acme Corp as a backend engineer for five years.")

	_, err := f.pipeline.BuildIndex(context.Background(), f.docsDir)
	require.NoError(t, err)

	result, err := f.pipeline.Query(context.Background(), "what experience does the candidate have")
	require.NoError(t, err)
	assert.False(t, result.Blocked)
	assert.Equal(t, provider.content, result.Answer)
	assert.Empty(t, result.BlockedTerms)
}

func TestQueryBlockedBeforeGeneration(t *testing.T) {
	// A strict ceiling blocks on the semantic topic signal alone: the redacted
	// chunk still reads as academic-score content.
	f := newFixture(t, &cannedProvider{content: "should never be called"}, 0.4)
	f.writeDoc(t, "resume.txt", "CGPA 9.1 in computer science.")

	_, err := f.pipeline.BuildIndex(context.Background(), f.docsDir)
	require.NoError(t, err)

	result, err := f.pipeline.Query(context.Background(), "tell me about the candidate's cgpa")
	require.NoError(t, err)
	assert.True(t, result.Blocked)
	assert.Equal(t, pipeline.BlockedQueryAnswer, result.Answer)
	assert.Greater(t, result.RiskScore, 0.4)
}

func TestQueryBlockedModelOutput(t *testing.T) {
	provider := &cannedProvider{
		content: "Reach him at john@example.com and his card number 4111 1111 1111 1111.",
	}
	f := newFixture(t, provider, 0)
	f.writeDoc(t, "resume.txt", "Worked at Acme Corp for five years.")

	_, err := f.pipeline.BuildIndex(context.Background(), f.docsDir)
	require.NoError(t, err)

	result, err := f.pipeline.Query(context.Background(), "how do I contact the candidate")
	require.NoError(t, err)
	assert.True(t, result.Blocked)
	assert.Equal(t, pipeline.BlockedResponseAnswer, result.Answer)
	assert.ElementsMatch(t, []string{"EMAIL_ADDRESS", "CREDIT_CARD"}, result.BlockedTerms)
	assert.InDelta(t, 1.0, result.RiskScore, 1e-9)
}

func TestQueryEmptyModelAnswer(t *testing.T) {
	f := newFixture(t, &cannedProvider{content: "   "}, 0)
	f.writeDoc(t, "resume.txt", "Worked at Acme Corp for five years.")

	_, err := f.pipeline.BuildIndex(context.Background(), f.docsDir)
	require.NoError(t, err)

	result, err := f.pipeline.Query(context.Background(), "summarize the work history")
	require.NoError(t, err)
	assert.Equal(t, "[No response from model]", result.Answer)
}

func TestQueryProviderError(t *testing.T) {
	providerErr := errors.New("model backend unavailable")
	f := newFixture(t, &cannedProvider{err: providerErr}, 0)
	f.writeDoc(t, "resume.txt", "Worked at Acme Corp for five years.")

	_, err := f.pipeline.BuildIndex(context.Background(), f.docsDir)
	require.NoError(t, err)

	_, err = f.pipeline.Query(context.Background(), "summarize the work history")
	assert.ErrorIs(t, err, providerErr)
}
