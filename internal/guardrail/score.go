package guardrail

import (
	"github.com/Kruthik-JP/guard-rail-NER/internal/detector"
	"github.com/Kruthik-JP/guard-rail-NER/internal/semantic"
)

// Risk score weights. The additive heuristic intentionally over-counts
// overlapping signals (an email span raises both the span count term and the
// high-risk term) and is clamped to 1.0. It is a triage score for the block
// decision, not a calibrated probability.
const (
	weightSpanCount    = 0.3
	weightSemantic     = 0.5
	weightHighRiskSpan = 0.4
)

// Score combines entity spans and the semantic match into a bounded risk
// score: min(1, 0.3*len(spans) + 0.5*similarity_if_detected + 0.4*high_risk_count).
// Adding high-risk spans to a fixed report never lowers the score.
func Score(spans []detector.Span, match semantic.Match) float64 {
	score := float64(len(spans)) * weightSpanCount
	if match.Detected {
		score += match.Similarity * weightSemantic
	}
	for _, s := range spans {
		if HighRiskEntities[s.Type] {
			score += weightHighRiskSpan
		}
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}
