// Package policy evaluates the hard-block decision with embedded OPA. The
// risk ceiling lives in policy data, not code: operators tune it via config or
// replace the Rego module outright.
package policy

import (
	"context"
	"embed"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/storage/inmem"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Kruthik-JP/guard-rail-NER/internal/guardrail"
	guardotel "github.com/Kruthik-JP/guard-rail-NER/internal/otel"
)

var tracer = guardotel.Tracer("github.com/Kruthik-JP/guard-rail-NER/internal/policy")

//go:embed rego/block.rego
var embeddedPolicies embed.FS

// DefaultRiskCeiling triggers a hard block when a computed risk score exceeds it.
const DefaultRiskCeiling = 0.8

const blockQuery = "data.guardrail.blockpolicy.deny"

// Decision is the result of block-policy evaluation.
type Decision struct {
	Allowed bool     `json:"allowed"`
	Reasons []string `json:"reasons,omitempty"`
}

// Engine holds a precompiled block policy.
type Engine struct {
	riskCeiling float64
	prepared    rego.PreparedEvalQuery
}

// NewEngine compiles the block policy. riskCeiling <= 0 selects the default.
// policyFile optionally replaces the embedded Rego module with an operator-
// provided one (same package and deny rule contract).
func NewEngine(ctx context.Context, riskCeiling float64, policyFile string) (*Engine, error) {
	ctx, span := tracer.Start(ctx, "policy.engine.new")
	defer span.End()

	if riskCeiling <= 0 {
		riskCeiling = DefaultRiskCeiling
	}

	source := "rego/block.rego"
	content, err := embeddedPolicies.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading embedded block policy: %w", err)
	}
	if policyFile != "" {
		external, err := os.ReadFile(policyFile)
		if err != nil {
			return nil, fmt.Errorf("reading block policy file %s: %w", policyFile, err)
		}
		source = policyFile
		content = external
	}

	store := inmem.NewFromObject(map[string]interface{}{
		"policy": map[string]interface{}{
			"risk_ceiling": riskCeiling,
		},
	})

	prepared, err := rego.New(
		rego.Query(blockQuery),
		rego.Module(source, string(content)),
		rego.Store(store),
	).PrepareForEval(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("preparing block policy: %w", err)
	}

	span.SetAttributes(attribute.Float64("policy.risk_ceiling", riskCeiling))
	return &Engine{riskCeiling: riskCeiling, prepared: prepared}, nil
}

// RiskCeiling returns the configured ceiling.
func (e *Engine) RiskCeiling() float64 {
	return e.riskCeiling
}

// Evaluate decides whether a risk report breaches the block policy.
// A nil engine always allows (fail-open, consistent with every other
// guardrail-internal failure mode).
func (e *Engine) Evaluate(ctx context.Context, report *guardrail.RiskReport) (*Decision, error) {
	ctx, span := tracer.Start(ctx, "policy.evaluate")
	defer span.End()

	decision := &Decision{Allowed: true}
	if e == nil || report == nil {
		return decision, nil
	}

	input := map[string]interface{}{
		"risk_score":         report.RiskScore,
		"contains_sensitive": report.ContainsSensitive,
		"entity_types":       report.EntityTypes(),
		"semantic_topic":     report.Semantic.Topic,
	}

	results, err := e.prepared.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("evaluating block policy: %w", err)
	}

	for _, result := range results {
		for _, expr := range result.Expressions {
			values, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, v := range values {
				if msg, ok := v.(string); ok {
					decision.Reasons = append(decision.Reasons, msg)
				}
			}
		}
	}
	if len(decision.Reasons) > 0 {
		decision.Allowed = false
	}

	span.SetAttributes(
		attribute.Bool("policy.allowed", decision.Allowed),
		attribute.Float64("policy.risk_score", report.RiskScore),
	)
	return decision, nil
}
