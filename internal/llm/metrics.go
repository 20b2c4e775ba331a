package llm

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const tokenMeterName = "github.com/Kruthik-JP/guard-rail-NER/internal/llm"

var (
	tokenUsageHistogram    metric.Int64Histogram
	tokenMetricsOnce       sync.Once
	tokenMetricsRegistered bool
)

func initTokenMetrics() {
	meter := otel.Meter(tokenMeterName)
	var err error
	tokenUsageHistogram, err = meter.Int64Histogram(
		"guardrail.llm.tokens",
		metric.WithDescription("Token usage per generation request"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return
	}
	tokenMetricsRegistered = true
}

// RecordTokenMetrics records input and output token counts after a generation
// call. Provider and model attributes allow filtering in observability backends.
func RecordTokenMetrics(ctx context.Context, resp *Response, provider string) {
	tokenMetricsOnce.Do(initTokenMetrics)
	if !tokenMetricsRegistered || resp == nil {
		return
	}
	tokenUsageHistogram.Record(ctx, int64(resp.InputTokens), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", resp.Model),
		attribute.String("direction", "input"),
	))
	tokenUsageHistogram.Record(ctx, int64(resp.OutputTokens), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", resp.Model),
		attribute.String("direction", "output"),
	))
}
