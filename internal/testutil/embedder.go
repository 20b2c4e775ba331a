// Package testutil provides deterministic embedding and generation backends
// for tests.
package testutil

import (
	"context"
	"errors"
	"strings"
)

// TopicEmbedder is a deterministic embedder that maps each known phrase to
// its own dimension. A text's vector has a 1 in the dimension of every phrase
// it contains, so a phrase is always most similar to itself and unrelated
// texts share no dimensions.
type TopicEmbedder struct {
	phrases []string
}

// NewTopicEmbedder creates a TopicEmbedder over the given phrases.
func NewTopicEmbedder(phrases []string) *TopicEmbedder {
	return &TopicEmbedder{phrases: phrases}
}

// Embed returns one vector per input text.
func (e *TopicEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.Dimensions())
		lower := strings.ToLower(text)
		matched := false
		for j, phrase := range e.phrases {
			if strings.Contains(lower, strings.ToLower(phrase)) {
				vec[j] = 1
				matched = true
			}
		}
		if !matched {
			vec[len(e.phrases)] = 1
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns one dimension per phrase plus a background dimension for
// texts matching no phrase.
func (e *TopicEmbedder) Dimensions() int {
	return len(e.phrases) + 1
}

// FailingEmbedder always returns an error, for exercising fail-open paths.
type FailingEmbedder struct{}

// Embed always fails.
func (FailingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedder unavailable")
}

// Dimensions returns 0.
func (FailingEmbedder) Dimensions() int { return 0 }
