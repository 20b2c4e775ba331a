package guardrail

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const guardMeterName = "github.com/Kruthik-JP/guard-rail-NER/internal/guardrail"

var (
	analyzesTotal          metric.Int64Counter
	redactionsTotal        metric.Int64Counter
	guardMetricsOnce       sync.Once
	guardMetricsRegistered bool
)

func initGuardMetrics() {
	meter := otel.Meter(guardMeterName)
	var err error
	analyzesTotal, err = meter.Int64Counter(
		"guardrail.analyzes.total",
		metric.WithDescription("Total analyze/sanitize detection passes"),
	)
	if err != nil {
		return
	}
	redactionsTotal, err = meter.Int64Counter(
		"guardrail.redactions.total",
		metric.WithDescription("Sanitize calls that redacted at least one finding"),
	)
	if err != nil {
		return
	}
	guardMetricsRegistered = true
}

func recordAnalyze(ctx context.Context) {
	guardMetricsOnce.Do(initGuardMetrics)
	if !guardMetricsRegistered {
		return
	}
	analyzesTotal.Add(ctx, 1)
}

func recordRedaction(ctx context.Context) {
	guardMetricsOnce.Do(initGuardMetrics)
	if !guardMetricsRegistered {
		return
	}
	redactionsTotal.Add(ctx, 1)
}
