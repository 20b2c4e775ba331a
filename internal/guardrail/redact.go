package guardrail

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Kruthik-JP/guard-rail-NER/internal/detector"
	"github.com/Kruthik-JP/guard-rail-NER/internal/semantic"
)

// redactionToken matches any replacement token already present in a text,
// e.g. [EMAIL_REDACTED] or [REDACTED_SCORE]. The keyword and score passes skip
// text inside these so a second sanitize pass is a no-op (idempotence).
var redactionToken = regexp.MustCompile(`\[[A-Z][A-Z0-9_]*\]`)

// ScoreToken replaces academic score figures (CGPA, GPA, marks, grades).
const ScoreToken = "[REDACTED_SCORE]"

// academicScorePatterns match explicit academic score figures. Names and other
// resume details stay visible; only the figures are removed.
var academicScorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bCGPA[:\s]*\d+(\.\d+)?\b`),
	regexp.MustCompile(`(?i)\bGPA[:\s]*\d+(\.\d+)?\b`),
	regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*/\s*10\b`),
	regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*/\s*100\b`),
	regexp.MustCompile(`(?i)\bmarks[:\s]*\d+%?\b`),
	regexp.MustCompile(`(?i)\bgrade[:\s]*[A-F][+-]?\b`),
}

// Redactor rewrites text given a risk report. Span replacement runs in
// descending start order so earlier replacements cannot shift the offsets of
// spans still to be applied; the topic keyword pass follows as an independent
// best-effort second stage.
type Redactor struct {
	topics []semantic.Topic
}

// NewRedactor creates a redactor with the given topic keyword rules.
// Passing nil loads the embedded defaults.
func NewRedactor(topics []semantic.Topic) *Redactor {
	if topics == nil {
		topics, _ = semantic.DefaultTopics()
	}
	return &Redactor{topics: topics}
}

// Redact applies span-based replacement, then keyword replacement for the
// matched topic. With no spans and no semantic match the input is returned
// unchanged — output is never empty-on-failure.
func (r *Redactor) Redact(text string, report *RiskReport) string {
	if report == nil || !report.ContainsSensitive {
		return text
	}

	out := redactSpans(text, report.Spans)
	if report.Semantic.Detected {
		out = r.redactTopicKeywords(out, report.Semantic.Topic)
	}
	return out
}

// redactSpans replaces each detected span with its entity token, applying
// spans right-to-left. Overlapping spans are resolved by keeping the first
// (rightmost-sorted) replacement and skipping any span that would intrude into
// an already-replaced region; text outside detected spans is never touched.
func redactSpans(text string, spans []detector.Span) string {
	if len(spans) == 0 {
		return text
	}

	ordered := make([]detector.Span, len(spans))
	copy(ordered, spans)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Start != ordered[j].Start {
			return ordered[i].Start > ordered[j].Start
		}
		return ordered[i].End > ordered[j].End
	})

	out := text
	limit := len(text)
	for _, s := range ordered {
		if s.Start < 0 || s.End > len(text) || s.Start >= s.End {
			continue
		}
		if s.End > limit {
			continue
		}
		out = out[:s.Start] + TokenFor(s.Type) + out[s.End:]
		limit = s.Start
	}
	return out
}

// redactTopicKeywords applies the literal substitutions configured for the
// matched topic. Replacement skips anything already inside a redaction token,
// so tokens like [CGPA_REDACTED] survive repeat passes intact. This pass is
// heuristic: it can over-redact (every "%" for the percentage topic) and
// under-redact (case variants), a known precision gap.
func (r *Redactor) redactTopicKeywords(text, topic string) string {
	for _, t := range r.topics {
		if t.Phrase != topic {
			continue
		}
		for _, rule := range t.Keywords {
			text = replaceOutsideTokens(text, func(segment string) string {
				return strings.ReplaceAll(segment, rule.Literal, rule.Token)
			})
		}
		return text
	}
	return text
}

// RedactScores removes academic score figures, replacing each with ScoreToken.
// Applied to retrieved chunks and model output, not at detection time.
func (r *Redactor) RedactScores(text string) string {
	for _, pat := range academicScorePatterns {
		text = replaceOutsideTokens(text, func(segment string) string {
			return pat.ReplaceAllString(segment, ScoreToken)
		})
	}
	return text
}

// replaceOutsideTokens applies fn to the stretches of text between existing
// redaction tokens, leaving the tokens themselves untouched.
func replaceOutsideTokens(text string, fn func(string) string) string {
	locs := redactionToken.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return fn(text)
	}

	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, loc := range locs {
		b.WriteString(fn(text[prev:loc[0]]))
		b.WriteString(text[loc[0]:loc[1]])
		prev = loc[1]
	}
	b.WriteString(fn(text[prev:]))
	return b.String()
}
