// Package guardrail combines rule-based entity detection and semantic topic
// matching into a single sanitize/analyze contract applied at every pipeline
// boundary. Redaction, not refusal, is the enforcement mechanism: sanitize
// never errors and never blanks its input.
package guardrail

import (
	"github.com/Kruthik-JP/guard-rail-NER/internal/detector"
	"github.com/Kruthik-JP/guard-rail-NER/internal/semantic"
)

// RiskReport is the combined detection result for one text. It is ephemeral:
// produced per call, consumed by redaction and block decisions, never persisted.
type RiskReport struct {
	ContainsSensitive bool            `json:"contains_sensitive"`
	Spans             []detector.Span `json:"entity_spans"`
	Semantic          semantic.Match  `json:"semantic"`
	RiskScore         float64         `json:"risk_score"`
}

// EntityTypes returns the distinct entity types present in the report, in
// first-seen order. Used for the blocked-response payload.
func (r *RiskReport) EntityTypes() []string {
	seen := make(map[string]bool, len(r.Spans))
	var types []string
	for _, s := range r.Spans {
		if !seen[s.Type] {
			seen[s.Type] = true
			types = append(types, s.Type)
		}
	}
	return types
}

// RedactionTokens maps entity types to their replacement tokens. Types without
// an explicit mapping fall back to FallbackToken. Static, loaded once.
var RedactionTokens = map[string]string{
	"EMAIL_ADDRESS":  "[EMAIL_REDACTED]",
	"PHONE_NUMBER":   "[PHONE_REDACTED]",
	"US_SSN":         "[SSN_REDACTED]",
	"CREDIT_CARD":    "[CARD_REDACTED]",
	"BANK_ACCOUNT":   "[ACCOUNT_REDACTED]",
	"IBAN_CODE":      "[IBAN_REDACTED]",
	"IFSC_CODE":      "[IFSC_REDACTED]",
	"PAN_NUMBER":     "[PAN_REDACTED]",
	"AADHAAR_NUMBER": "[AADHAAR_REDACTED]",
	"URL":            "[LINK_REDACTED]",
}

// FallbackToken returns the generated replacement token for an entity type
// that has no explicit mapping.
func FallbackToken(entityType string) string {
	return "[" + entityType + "_REDACTED]"
}

// TokenFor returns the replacement token for an entity type.
func TokenFor(entityType string) string {
	if tok, ok := RedactionTokens[entityType]; ok {
		return tok
	}
	return FallbackToken(entityType)
}

// HighRiskEntities is the subset of entity types that weigh extra in the risk
// score. Structured financial and identity numbers plus direct contact routes.
var HighRiskEntities = map[string]bool{
	"CREDIT_CARD":    true,
	"US_SSN":         true,
	"BANK_ACCOUNT":   true,
	"AADHAAR_NUMBER": true,
	"PAN_NUMBER":     true,
	"IFSC_CODE":      true,
	"EMAIL_ADDRESS":  true,
	"PHONE_NUMBER":   true,
	"URL":            true,
}
