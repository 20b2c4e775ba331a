package guardrail

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Kruthik-JP/guard-rail-NER/internal/detector"
	guardotel "github.com/Kruthik-JP/guard-rail-NER/internal/otel"
	"github.com/Kruthik-JP/guard-rail-NER/internal/semantic"
)

var tracer = guardotel.Tracer("github.com/Kruthik-JP/guard-rail-NER/internal/guardrail")

// DefaultMinConfidence is the span confidence threshold. Detector matches
// below it are discarded here, by the caller, not inside the detector.
const DefaultMinConfidence = 0.7

// Facade orchestrates detection, scoring, and redaction behind two calls:
// Sanitize (unconditional, pipeline-safe) and Analyze (full report, the only
// path that can justify a hard block upstream). One process-wide instance is
// built at startup from immutable configuration and shared by reference.
type Facade struct {
	detector      *detector.Detector
	matcher       *semantic.Matcher
	redactor      *Redactor
	minConfidence float64
}

// New builds a facade. detector and matcher may be nil; both fail open.
func New(det *detector.Detector, matcher *semantic.Matcher, redactor *Redactor, minConfidence float64) *Facade {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	if redactor == nil {
		redactor = NewRedactor(nil)
	}
	return &Facade{
		detector:      det,
		matcher:       matcher,
		redactor:      redactor,
		minConfidence: minConfidence,
	}
}

// Redactor exposes the underlying redactor for the supplementary score pass.
func (f *Facade) Redactor() *Redactor {
	return f.redactor
}

// Analyze runs both detection signals and returns the full risk report.
// It never fails: internal detector or embedding errors degrade the report
// rather than aborting the request.
func (f *Facade) Analyze(ctx context.Context, text string) *RiskReport {
	ctx, span := tracer.Start(ctx, "guardrail.analyze")
	defer span.End()

	raw := f.detector.Detect(ctx, text)
	var spans []detector.Span
	for _, s := range raw {
		if s.Confidence >= f.minConfidence {
			spans = append(spans, s)
		}
	}

	match := f.matcher.Match(ctx, text)

	report := &RiskReport{
		ContainsSensitive: len(spans) > 0 || match.Detected,
		Spans:             spans,
		Semantic:          match,
		RiskScore:         Score(spans, match),
	}

	recordAnalyze(ctx)
	span.SetAttributes(
		attribute.Bool("guardrail.contains_sensitive", report.ContainsSensitive),
		attribute.Int("guardrail.span_count", len(report.Spans)),
		attribute.Float64("guardrail.risk_score", report.RiskScore),
	)
	return report
}

// Sanitize returns text with all detected sensitive content redacted. It never
// errors, never returns a blocked placeholder, and is idempotent: redaction
// tokens do not re-trigger span detection, and the keyword pass skips existing
// tokens.
func (f *Facade) Sanitize(ctx context.Context, text string) string {
	sanitized, _ := f.SanitizeReport(ctx, text)
	return sanitized
}

// SanitizeReport is Sanitize plus the risk report that drove it, for callers
// that need the score and matched entities alongside the cleaned text.
func (f *Facade) SanitizeReport(ctx context.Context, text string) (string, *RiskReport) {
	ctx, span := tracer.Start(ctx, "guardrail.sanitize")
	defer span.End()

	report := f.Analyze(ctx, text)
	if !report.ContainsSensitive {
		return text, report
	}

	recordRedaction(ctx)
	span.SetAttributes(attribute.Bool("guardrail.redacted", true))
	return f.redactor.Redact(text, report), report
}
