// Package detector implements rule-based PII entity detection over free text.
// Recognizers follow the Presidio registry model: regex patterns with a base
// confidence score, context-word boosting, and hard checksum validation gates
// for card, IBAN, and Aadhaar numbers. PERSON detection is deliberately
// excluded; only structured sensitive identifiers are flagged.
package detector

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	guardotel "github.com/Kruthik-JP/guard-rail-NER/internal/otel"
)

var tracer = guardotel.Tracer("github.com/Kruthik-JP/guard-rail-NER/internal/detector")

const (
	// ContextSimilarityFactor is the score boost applied when context words are
	// found near a match. Matches Presidio's default context_similarity_factor.
	ContextSimilarityFactor = 0.35

	// ContextWindowChars is the number of characters to search before and after
	// a match when looking for context words.
	ContextWindowChars = 100

	// DefaultLanguage selects which context-word block recognizers use.
	DefaultLanguage = "en"
)

// Span is a located, typed PII match. Invariant: 0 <= Start < End <= len(text).
type Span struct {
	Type       string  `json:"type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Text       string  `json:"text"`
}

// Detector runs configured recognizers over text and returns typed spans.
// Confidence thresholding is the caller's responsibility; the detector reports
// every validated match with its computed score.
type Detector struct {
	patterns []Pattern
}

// Option configures a Detector via the functional options pattern.
type Option func(*detectorConfig)

type detectorConfig struct {
	patternFile      string
	enabledEntities  []string
	disabledEntities []string
	language         string
}

// WithPatternFile loads additional recognizers from an operator YAML file.
// If the file does not exist, it is silently skipped.
func WithPatternFile(path string) Option {
	return func(c *detectorConfig) { c.patternFile = path }
}

// WithEnabledEntities sets a whitelist of entity types. When non-empty, only
// recognizers with a matching supported_entity will be active.
func WithEnabledEntities(entities []string) Option {
	return func(c *detectorConfig) { c.enabledEntities = entities }
}

// WithDisabledEntities sets a blacklist of entity types to exclude.
func WithDisabledEntities(entities []string) Option {
	return func(c *detectorConfig) { c.disabledEntities = entities }
}

// WithLanguage selects the context-word language (default "en").
func WithLanguage(language string) Option {
	return func(c *detectorConfig) { c.language = language }
}

// New creates an entity detector. Without options it uses the embedded
// defaults. Options layer operator overrides and entity filters on top.
func New(opts ...Option) (*Detector, error) {
	cfg := detectorConfig{language: DefaultLanguage}
	for _, o := range opts {
		o(&cfg)
	}

	defaults, err := DefaultRecognizers()
	if err != nil {
		return nil, err
	}

	var operatorRecs []RecognizerConfig
	if cfg.patternFile != "" {
		rf, err := LoadRecognizerFile(cfg.patternFile)
		if err != nil {
			return nil, err
		}
		if rf != nil {
			operatorRecs = rf.Recognizers
		}
	}

	merged := MergeRecognizers(defaults, operatorRecs)
	merged = FilterByEntities(merged, cfg.enabledEntities, cfg.disabledEntities)

	compiled, err := CompilePatterns(merged, cfg.language)
	if err != nil {
		return nil, err
	}

	return &Detector{patterns: compiled}, nil
}

// Must is like New but panics on error. Useful for zero-config startup where
// the embedded defaults are expected to always compile.
func Must(opts ...Option) *Detector {
	d, err := New(opts...)
	if err != nil {
		panic("detector.New: " + err.Error())
	}
	return d
}

// RecognizerCount returns the number of compiled recognizer patterns.
func (d *Detector) RecognizerCount() int {
	if d == nil {
		return 0
	}
	return len(d.patterns)
}

// Detect scans text and returns spans in detection order (per recognizer, then
// per match; not sorted by position). Each match goes through its hard
// validation gate before Presidio-style score computation. A nil or
// unconfigured detector fails open: it returns no spans and logs a warning,
// never an error, so an unavailable recognizer backend cannot block a request.
func (d *Detector) Detect(ctx context.Context, text string) []Span {
	_, span := tracer.Start(ctx, "detector.detect")
	defer span.End()

	if d == nil || len(d.patterns) == 0 {
		log.Warn().Func(guardotel.LogTraceFields(ctx)).
			Msg("entity detector unavailable, continuing without span detection")
		span.SetAttributes(attribute.Bool("detector.unavailable", true))
		return nil
	}

	var spans []Span
	for i := range d.patterns {
		p := &d.patterns[i]
		matches := p.Regex.FindAllStringIndex(text, -1)
		for _, m := range matches {
			value := text[m[0]:m[1]]

			if p.ValidateLuhn && !luhnValid(stripNonDigits(value)) {
				continue
			}
			if p.ValidateIBAN {
				clean := strings.ReplaceAll(value, " ", "")
				if !validIBANLength(clean) || !validIBANChecksum(clean) {
					continue
				}
			}
			if p.ValidateVerhoeff && !verhoeffValid(stripNonDigits(value)) {
				continue
			}

			confidence := enhanceScoreWithContext(text, m[0], p.Score, p.ContextWords)
			if confidence > 1.0 {
				confidence = 1.0
			}

			spans = append(spans, Span{
				Type:       p.Entity,
				Start:      m[0],
				End:        m[1],
				Confidence: confidence,
				Text:       value,
			})
		}
	}

	span.SetAttributes(attribute.Int("detector.span_count", len(spans)))
	return spans
}

// enhanceScoreWithContext boosts a match's base score if context words are
// found within +/- ContextWindowChars characters of the match position. This
// mirrors Presidio's LemmaContextAwareEnhancer with a fixed similarity factor.
func enhanceScoreWithContext(text string, position int, baseScore float64, contextWords []string) float64 {
	if len(contextWords) == 0 {
		return baseScore
	}
	start := position - ContextWindowChars
	if start < 0 {
		start = 0
	}
	end := position + ContextWindowChars
	if end > len(text) {
		end = len(text)
	}
	window := strings.ToLower(text[start:end])

	for _, cw := range contextWords {
		if strings.Contains(window, strings.ToLower(cw)) {
			return baseScore + ContextSimilarityFactor
		}
	}
	return baseScore
}

// stripNonDigits removes all non-digit characters from s.
func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}
