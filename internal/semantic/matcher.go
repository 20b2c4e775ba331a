// Package semantic implements embedding-similarity detection of sensitive
// topics. It is a coarse category signal: it reports which topic a text most
// resembles, never a location to redact.
package semantic

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Kruthik-JP/guard-rail-NER/internal/embed"
	guardotel "github.com/Kruthik-JP/guard-rail-NER/internal/otel"
)

var tracer = guardotel.Tracer("github.com/Kruthik-JP/guard-rail-NER/internal/semantic")

// DefaultThreshold is the similarity above which a topic counts as detected.
const DefaultThreshold = 0.75

// Match is the result of matching a text against the sensitive-topic set.
type Match struct {
	Detected   bool    `json:"detected"`
	Similarity float64 `json:"similarity"`
	Topic      string  `json:"matched_topic,omitempty"`
}

// Matcher holds precomputed topic embeddings. Construct once at startup; the
// precomputed vectors are read-only afterwards and safe for concurrent use.
type Matcher struct {
	topics    []Topic
	vectors   [][]float32
	embedder  embed.Embedder
	threshold float64
}

// NewMatcher embeds every topic phrase once and returns a ready matcher.
// An embedding failure here is a startup error: without topic vectors the
// matcher cannot function at all.
func NewMatcher(ctx context.Context, embedder embed.Embedder, topics []Topic, threshold float64) (*Matcher, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if len(topics) == 0 {
		var err error
		topics, err = DefaultTopics()
		if err != nil {
			return nil, err
		}
	}

	phrases := make([]string, len(topics))
	for i, t := range topics {
		phrases[i] = t.Phrase
	}
	vectors, err := embedder.Embed(ctx, phrases)
	if err != nil {
		return nil, fmt.Errorf("precomputing topic embeddings: %w", err)
	}
	if len(vectors) != len(topics) {
		return nil, fmt.Errorf("topic embedding count mismatch: %d vectors for %d topics", len(vectors), len(topics))
	}

	return &Matcher{
		topics:    topics,
		vectors:   vectors,
		embedder:  embedder,
		threshold: threshold,
	}, nil
}

// Topics returns the ordered topic list the matcher was built with.
func (m *Matcher) Topics() []Topic {
	if m == nil {
		return nil
	}
	return m.topics
}

// Threshold returns the configured similarity threshold.
func (m *Matcher) Threshold() float64 {
	if m == nil {
		return DefaultThreshold
	}
	return m.threshold
}

// Match embeds text and reports the best-matching topic. Ties resolve to the
// first topic index. Embedding errors fail open: the zero-value Match is
// returned and a warning logged, never an error — semantic detection degrading
// must not block the pipeline.
func (m *Matcher) Match(ctx context.Context, text string) Match {
	ctx, span := tracer.Start(ctx, "semantic.match")
	defer span.End()

	if m == nil || len(m.vectors) == 0 {
		log.Warn().Func(guardotel.LogTraceFields(ctx)).
			Msg("semantic matcher unavailable, continuing without topic detection")
		span.SetAttributes(attribute.Bool("semantic.unavailable", true))
		return Match{}
	}

	vectors, err := m.embedder.Embed(ctx, []string{text})
	if err != nil || len(vectors) != 1 {
		log.Warn().Err(err).Func(guardotel.LogTraceFields(ctx)).
			Msg("semantic detection failed, treating as not detected")
		span.SetAttributes(attribute.Bool("semantic.embed_failed", true))
		return Match{}
	}

	best := -1
	maxSim := 0.0
	for i, tv := range m.vectors {
		sim := embed.Cosine(vectors[0], tv)
		if sim < 0 {
			sim = 0
		}
		// Strict > keeps the first topic on exact ties.
		if best == -1 || sim > maxSim {
			best = i
			maxSim = sim
		}
	}

	result := Match{Similarity: maxSim}
	if maxSim > m.threshold {
		result.Detected = true
		result.Topic = m.topics[best].Phrase
	}

	span.SetAttributes(
		attribute.Bool("semantic.detected", result.Detected),
		attribute.Float64("semantic.similarity", result.Similarity),
	)
	return result
}
