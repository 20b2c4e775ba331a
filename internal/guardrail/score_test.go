package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kruthik-JP/guard-rail-NER/internal/detector"
	"github.com/Kruthik-JP/guard-rail-NER/internal/semantic"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		spans []detector.Span
		match semantic.Match
		want  float64
	}{
		{
			name: "empty report",
			want: 0,
		},
		{
			name:  "one low-risk span",
			spans: []detector.Span{{Type: "CUSTOM_ID"}},
			want:  0.3,
		},
		{
			name:  "one high-risk span counts twice",
			spans: []detector.Span{{Type: "EMAIL_ADDRESS"}},
			want:  0.7,
		},
		{
			name:  "semantic only",
			match: semantic.Match{Detected: true, Similarity: 0.8},
			want:  0.4,
		},
		{
			name:  "similarity below threshold contributes nothing",
			match: semantic.Match{Detected: false, Similarity: 0.74},
			want:  0,
		},
		{
			name:  "combined clamps at one",
			spans: []detector.Span{{Type: "CREDIT_CARD"}, {Type: "US_SSN"}},
			match: semantic.Match{Detected: true, Similarity: 0.9},
			want:  1.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.spans, tt.match), 1e-9)
		})
	}
}

func TestScoreMonotonicInHighRiskSpans(t *testing.T) {
	match := semantic.Match{Detected: true, Similarity: 0.5}
	spans := []detector.Span{}

	prev := Score(spans, match)
	for i := 0; i < 5; i++ {
		spans = append(spans, detector.Span{Type: "CREDIT_CARD"})
		next := Score(spans, match)
		assert.GreaterOrEqual(t, next, prev)
		assert.LessOrEqual(t, next, 1.0)
		prev = next
	}
}

func TestModeByName(t *testing.T) {
	assert.Equal(t, ModeStrict, ModeByName("strict"))
	assert.Equal(t, ModeLenient, ModeByName("lenient"))
	assert.Equal(t, ModeModerate, ModeByName("moderate"))
	assert.Equal(t, ModeModerate, ModeByName("bogus"))
}

func TestRiskCeilingFor(t *testing.T) {
	assert.InDelta(t, 0.8, RiskCeilingFor(0.8, ModeStrict), 1e-9)
	assert.InDelta(t, ModeStrict.RiskThreshold, RiskCeilingFor(0, ModeStrict), 1e-9)
	assert.InDelta(t, ModeModerate.RiskThreshold, RiskCeilingFor(0, ModeModerate), 1e-9)
	assert.InDelta(t, ModeLenient.RiskThreshold, RiskCeilingFor(0, ModeLenient), 1e-9)
}
