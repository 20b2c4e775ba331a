package cmd

import (
	"context"
	"fmt"

	"github.com/Kruthik-JP/guard-rail-NER/internal/config"
	"github.com/Kruthik-JP/guard-rail-NER/internal/detector"
	"github.com/Kruthik-JP/guard-rail-NER/internal/embed"
	"github.com/Kruthik-JP/guard-rail-NER/internal/guardrail"
	"github.com/Kruthik-JP/guard-rail-NER/internal/index"
	"github.com/Kruthik-JP/guard-rail-NER/internal/llm"
	"github.com/Kruthik-JP/guard-rail-NER/internal/pipeline"
	"github.com/Kruthik-JP/guard-rail-NER/internal/policy"
	"github.com/Kruthik-JP/guard-rail-NER/internal/semantic"
)

// components bundles everything a command needs to run the guarded flow.
type components struct {
	cfg      *config.Config
	guard    *guardrail.Facade
	embedder embed.Embedder
	store    *index.Store
	pipeline *pipeline.Pipeline
}

func (c *components) Close() {
	if c.store != nil {
		_ = c.store.Close()
	}
}

func buildEmbedder(cfg *config.Config) (embed.Embedder, error) {
	switch cfg.EmbedProvider {
	case "openai":
		return embed.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbedModel, cfg.OpenAIBaseURL), nil
	case "ollama":
		return embed.NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.EmbedModel, 0), nil
	default:
		return nil, fmt.Errorf("unknown embedding_provider %q", cfg.EmbedProvider)
	}
}

// buildGuardrail assembles the detection facade from config. Topic vectors
// are computed once here; an unreachable embedder is a startup error, not a
// per-request one.
func buildGuardrail(ctx context.Context, cfg *config.Config, embedder embed.Embedder) (*guardrail.Facade, error) {
	var detOpts []detector.Option
	if cfg.PatternsFile != "" {
		detOpts = append(detOpts, detector.WithPatternFile(cfg.PatternsFile))
	}
	det, err := detector.New(detOpts...)
	if err != nil {
		return nil, fmt.Errorf("building entity detector: %w", err)
	}

	topics, err := semantic.DefaultTopics()
	if err != nil {
		return nil, fmt.Errorf("loading sensitive topics: %w", err)
	}

	mode := guardrail.ModeByName(cfg.DetectionMode)
	threshold := cfg.SemanticThreshold
	if threshold == 0 {
		threshold = mode.SemanticThreshold
	}

	matcher, err := semantic.NewMatcher(ctx, embedder, topics, threshold)
	if err != nil {
		return nil, fmt.Errorf("building topic matcher: %w", err)
	}

	redactor := guardrail.NewRedactor(topics)
	return guardrail.New(det, matcher, redactor, cfg.MinConfidence), nil
}

// buildComponents wires the full pipeline from config.
func buildComponents(ctx context.Context) (*components, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	guard, err := buildGuardrail(ctx, cfg, embedder)
	if err != nil {
		return nil, err
	}

	store, err := index.NewStore(cfg.IndexDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	provider, err := llm.New(cfg.LLMProvider, cfg.OpenAIAPIKey, llmBaseURL(cfg))
	if err != nil {
		store.Close()
		return nil, err
	}

	// A zero ceiling derives the block threshold from the detection mode,
	// the same way the semantic threshold defaults in buildGuardrail.
	cfg.RiskCeiling = guardrail.RiskCeilingFor(cfg.RiskCeiling, guardrail.ModeByName(cfg.DetectionMode))
	engine, err := policy.NewEngine(ctx, cfg.RiskCeiling, cfg.PolicyFile)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("building block policy: %w", err)
	}

	p := pipeline.New(pipeline.Config{
		Guard:     guard,
		Embedder:  embedder,
		Store:     store,
		Provider:  provider,
		Policy:    engine,
		Model:     cfg.LLMModel,
		ChunkSize: cfg.ChunkSize,
	})

	return &components{
		cfg:      cfg,
		guard:    guard,
		embedder: embedder,
		store:    store,
		pipeline: p,
	}, nil
}

func llmBaseURL(cfg *config.Config) string {
	if cfg.LLMProvider == "ollama" {
		return cfg.OllamaBaseURL
	}
	return cfg.OpenAIBaseURL
}
