package guardrail

// Mode bundles the thresholds for one detection strictness level.
// Blocking on detection alone is disabled in every mode: detection drives
// redaction, and only the risk ceiling can trigger a hard block upstream.
type Mode struct {
	Name              string
	SemanticThreshold float64
	RiskThreshold     float64
}

// Detection modes. Moderate is the default.
var (
	ModeStrict   = Mode{Name: "strict", SemanticThreshold: 0.6, RiskThreshold: 0.3}
	ModeModerate = Mode{Name: "moderate", SemanticThreshold: 0.75, RiskThreshold: 0.5}
	ModeLenient  = Mode{Name: "lenient", SemanticThreshold: 0.85, RiskThreshold: 0.7}
)

// RiskCeilingFor returns the explicitly configured block ceiling, or the
// mode's risk threshold when the configured value is zero.
func RiskCeilingFor(configured float64, mode Mode) float64 {
	if configured > 0 {
		return configured
	}
	return mode.RiskThreshold
}

// ModeByName resolves a mode name, defaulting to moderate for unknown names.
func ModeByName(name string) Mode {
	switch name {
	case ModeStrict.Name:
		return ModeStrict
	case ModeLenient.Name:
		return ModeLenient
	default:
		return ModeModerate
	}
}
