package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kruthik-JP/guard-rail-NER/internal/guardrail"
)

func TestEvaluateRiskCeiling(t *testing.T) {
	engine, err := NewEngine(context.Background(), 0, "")
	require.NoError(t, err)
	assert.InDelta(t, DefaultRiskCeiling, engine.RiskCeiling(), 1e-9)

	tests := []struct {
		name    string
		score   float64
		allowed bool
	}{
		{"zero risk", 0, true},
		{"below ceiling", 0.7, true},
		{"at ceiling", 0.8, true},
		{"above ceiling", 0.81, false},
		{"maximum", 1.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := engine.Evaluate(context.Background(), &guardrail.RiskReport{RiskScore: tt.score})
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, decision.Allowed)
			if !tt.allowed {
				require.NotEmpty(t, decision.Reasons)
				assert.Contains(t, decision.Reasons[0], "exceeds ceiling")
			}
		})
	}
}

func TestEvaluateCustomCeiling(t *testing.T) {
	engine, err := NewEngine(context.Background(), 0.5, "")
	require.NoError(t, err)

	decision, err := engine.Evaluate(context.Background(), &guardrail.RiskReport{RiskScore: 0.6})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestEvaluateOperatorPolicyFile(t *testing.T) {
	// Operator policy that blocks any sensitive content outright, ignoring the
	// numeric ceiling.
	policyFile := filepath.Join(t.TempDir(), "strict.rego")
	require.NoError(t, os.WriteFile(policyFile, []byte(`package guardrail.blockpolicy

deny[msg] {
	input.contains_sensitive
	msg := "sensitive content is not allowed"
}
`), 0o600))

	engine, err := NewEngine(context.Background(), 0, policyFile)
	require.NoError(t, err)

	decision, err := engine.Evaluate(context.Background(), &guardrail.RiskReport{
		ContainsSensitive: true,
		RiskScore:         0.1,
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, []string{"sensitive content is not allowed"}, decision.Reasons)
}

func TestNewEngineMissingPolicyFile(t *testing.T) {
	_, err := NewEngine(context.Background(), 0, filepath.Join(t.TempDir(), "missing.rego"))
	assert.Error(t, err)
}

func TestNewEngineInvalidPolicy(t *testing.T) {
	policyFile := filepath.Join(t.TempDir(), "broken.rego")
	require.NoError(t, os.WriteFile(policyFile, []byte("not rego at all {"), 0o600))

	_, err := NewEngine(context.Background(), 0, policyFile)
	assert.Error(t, err)
}

func TestNilEngineAllows(t *testing.T) {
	var engine *Engine

	decision, err := engine.Evaluate(context.Background(), &guardrail.RiskReport{RiskScore: 1.0})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestEvaluateNilReportAllows(t *testing.T) {
	engine, err := NewEngine(context.Background(), 0, "")
	require.NoError(t, err)

	decision, err := engine.Evaluate(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}
