// Package pipeline wires ingestion, the guardrail facade, the vector index,
// policy, and generation into the retrieval flow. Sensitive content is
// stripped before anything reaches the index or a model, and checked again on
// the way out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kruthik-JP/guard-rail-NER/internal/embed"
	"github.com/Kruthik-JP/guard-rail-NER/internal/guardrail"
	"github.com/Kruthik-JP/guard-rail-NER/internal/index"
	"github.com/Kruthik-JP/guard-rail-NER/internal/ingest"
	"github.com/Kruthik-JP/guard-rail-NER/internal/llm"
	guardotel "github.com/Kruthik-JP/guard-rail-NER/internal/otel"
	"github.com/Kruthik-JP/guard-rail-NER/internal/policy"
)

var tracer = guardotel.Tracer("github.com/Kruthik-JP/guard-rail-NER/internal/pipeline")

// Domain errors for the pipeline package.
var (
	ErrEmptyQuery  = errors.New("query is required")
	ErrNoDocuments = errors.New("no documents found to index")
)

// Placeholder answers returned instead of blocked content.
const (
	BlockedQueryAnswer    = "[Query blocked: contains high-risk sensitive information]"
	BlockedResponseAnswer = "[Response hidden: sensitive content detected]"
	noModelResponse       = "[No response from model]"
)

const systemPrompt = "You are a resume assistant. DO NOT reveal any sensitive personal information such as " +
	"bank account numbers, passwords, credit card numbers, CVV codes, social security numbers, " +
	"phone numbers, emails, or academic scores (CGPA, GPA, marks, grades)."

// Pipeline orchestrates the guarded retrieval flow.
type Pipeline struct {
	guard     *guardrail.Facade
	embedder  embed.Embedder
	store     *index.Store
	provider  llm.Provider
	policy    *policy.Engine
	model     string
	chunkSize int
}

// Config collects the pipeline's collaborators.
type Config struct {
	Guard     *guardrail.Facade
	Embedder  embed.Embedder
	Store     *index.Store
	Provider  llm.Provider
	Policy    *policy.Engine
	Model     string
	ChunkSize int
}

// New assembles a pipeline from the given config.
func New(cfg Config) *Pipeline {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = ingest.DefaultChunkSize
	}
	return &Pipeline{
		guard:     cfg.Guard,
		embedder:  cfg.Embedder,
		store:     cfg.Store,
		provider:  cfg.Provider,
		policy:    cfg.Policy,
		model:     cfg.Model,
		chunkSize: chunkSize,
	}
}

// BuildReport summarizes an index build.
type BuildReport struct {
	DocumentsLoaded  int      `json:"documents_loaded"`
	ChunksIndexed    int      `json:"chunks_indexed"`
	SkippedDocuments []string `json:"skipped_documents,omitempty"`
}

// BuildIndex loads documents from dir, sanitizes each one, chunks and embeds
// the sanitized text, and atomically replaces the index. A document whose
// embedding fails is skipped and reported; it never aborts the whole build.
func (p *Pipeline) BuildIndex(ctx context.Context, dir string) (*BuildReport, error) {
	ctx, span := tracer.Start(ctx, "pipeline.build_index",
		trace.WithAttributes(attribute.String("documents.dir", dir)))
	defer span.End()

	docs, err := ingest.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	report := &BuildReport{DocumentsLoaded: len(docs)}
	var chunks []index.Chunk
	for _, doc := range docs {
		sanitized := p.guard.Sanitize(ctx, doc.Text)
		sanitized = p.guard.Redactor().RedactScores(sanitized)

		texts := ingest.ChunkText(sanitized, p.chunkSize)
		if len(texts) == 0 {
			continue
		}
		vectors, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			log.Warn().Err(err).Str("source", doc.Source).Msg("skipping document, embedding failed")
			report.SkippedDocuments = append(report.SkippedDocuments, doc.Source)
			continue
		}
		for i, text := range texts {
			chunks = append(chunks, index.Chunk{
				Source:    doc.Source,
				Ordinal:   i,
				Text:      text,
				Embedding: vectors[i],
			})
		}
	}

	if len(chunks) == 0 {
		return nil, ErrNoDocuments
	}
	if err := p.store.Rebuild(ctx, chunks); err != nil {
		return nil, fmt.Errorf("rebuilding index: %w", err)
	}

	report.ChunksIndexed = len(chunks)
	span.SetAttributes(
		attribute.Int("index.documents", report.DocumentsLoaded),
		attribute.Int("index.chunks", report.ChunksIndexed),
	)
	log.Info().
		Int("documents", report.DocumentsLoaded).
		Int("chunks", report.ChunksIndexed).
		Int("skipped", len(report.SkippedDocuments)).
		Msg("index rebuilt")
	return report, nil
}

// QueryResult is the outcome of an end-to-end guarded query.
type QueryResult struct {
	Answer       string   `json:"answer"`
	Blocked      bool     `json:"-"`
	BlockedTerms []string `json:"blocked_terms,omitempty"`
	RiskScore    float64  `json:"risk_score,omitempty"`
}

// Retrieve sanitizes the question, embeds it, and returns the closest indexed
// chunk. Returns index.ErrEmptyIndex or index.ErrNoMatch when retrieval
// cannot produce a result.
func (p *Pipeline) Retrieve(ctx context.Context, question string) (*index.Hit, error) {
	ctx, span := tracer.Start(ctx, "pipeline.retrieve")
	defer span.End()

	safeQuestion := p.guard.Sanitize(ctx, question)
	vectors, err := p.embedder.Embed(ctx, []string{safeQuestion})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hit, err := p.store.Search(ctx, vectors[0])
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Float64("retrieval.score", hit.Score))
	return hit, nil
}

// Query runs the full guarded flow: retrieve the closest sanitized chunk,
// block if its risk exceeds the policy ceiling, generate an answer grounded
// in it, then re-sanitize and re-check the model output before returning.
func (p *Pipeline) Query(ctx context.Context, question string) (*QueryResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.query")
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuery
	}

	hit, err := p.Retrieve(ctx, question)
	if err != nil {
		if errors.Is(err, index.ErrEmptyIndex) {
			return nil, index.ErrNoMatch
		}
		return nil, err
	}

	// Indexed text is already sanitized; a second pass catches patterns that
	// only become visible after chunk boundaries split the original context.
	redactedText := p.guard.Sanitize(ctx, hit.Chunk.Text)
	redactedText = p.guard.Redactor().RedactScores(redactedText)

	contextReport := p.guard.Analyze(ctx, redactedText)
	decision, err := p.policy.Evaluate(ctx, contextReport)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		span.SetAttributes(attribute.Bool("pipeline.blocked_pre_model", true))
		return &QueryResult{
			Answer:       BlockedQueryAnswer,
			Blocked:      true,
			BlockedTerms: contextReport.EntityTypes(),
			RiskScore:    contextReport.RiskScore,
		}, nil
	}

	safeQuestion := p.guard.Sanitize(ctx, question)
	resp, err := p.provider.Generate(ctx, &llm.Request{
		Model: p.model,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(
				"Here is the sanitized resume text:\n%s\n\nQuestion: %s\nAnswer:",
				redactedText, safeQuestion)},
		},
		Temperature: 0.2,
		MaxTokens:   512,
	})
	if err != nil {
		return nil, err
	}
	llm.RecordTokenMetrics(ctx, resp, p.provider.Name())

	answer := resp.Content
	if strings.TrimSpace(answer) == "" {
		answer = noModelResponse
	}

	answer = p.guard.Redactor().RedactScores(answer)
	answer, finalReport := p.guard.SanitizeReport(ctx, answer)

	finalDecision, err := p.policy.Evaluate(ctx, finalReport)
	if err != nil {
		return nil, err
	}
	if !finalDecision.Allowed {
		span.SetAttributes(attribute.Bool("pipeline.blocked_post_model", true))
		return &QueryResult{
			Answer:       BlockedResponseAnswer,
			Blocked:      true,
			BlockedTerms: finalReport.EntityTypes(),
			RiskScore:    finalReport.RiskScore,
		}, nil
	}

	return &QueryResult{Answer: answer}, nil
}
