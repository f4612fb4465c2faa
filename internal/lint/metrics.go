package lint

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "lintgate.lint"

// Metrics for lint requests. Instruments are created lazily against the
// global meter provider so an SDK installed after import is still honoured.
var (
	requestsTotal   metric.Int64Counter
	requestLatency  metric.Float64Histogram
	findingsTotal   metric.Int64Counter
	missingFiles    metric.Int64Counter
	metricsInitOnce sync.Once
	metricsInitErr  error
)

func initMetrics() error {
	metricsInitOnce.Do(func() {
		meter := otel.Meter(instrumentationName)
		var err error

		requestsTotal, err = meter.Int64Counter(
			"lint_requests_total",
			metric.WithDescription("Total number of dispatched lint requests"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}

		requestLatency, err = meter.Float64Histogram(
			"lint_request_duration_seconds",
			metric.WithDescription("Duration of individual lint requests"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}

		findingsTotal, err = meter.Int64Counter(
			"lint_findings_total",
			metric.WithDescription("Total number of findings reported by the engine"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}

		missingFiles, err = meter.Int64Counter(
			"lint_missing_files_total",
			metric.WithDescription("Input files skipped because they do not exist"),
		)
		if err != nil {
			metricsInitErr = err
		}
	})
	return metricsInitErr
}

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func startRunSpan(ctx context.Context, inputs int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "lint.Run",
		trace.WithAttributes(attribute.Int("lint.input_count", inputs)),
	)
}

func startRequestSpan(ctx context.Context, filePath string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "lint.Request",
		trace.WithAttributes(attribute.String("lint.file_path", filePath)),
	)
}

func recordRequest(ctx context.Context, span trace.Span, duration time.Duration, findings int, failed bool) {
	span.SetAttributes(
		attribute.Int("lint.error_count", findings),
		attribute.Bool("lint.engine_failed", failed),
	)
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("failed", failed))
	requestsTotal.Add(ctx, 1, attrs)
	requestLatency.Record(ctx, duration.Seconds(), attrs)
	if !failed {
		findingsTotal.Add(ctx, int64(findings))
	}
}

func recordMissing(ctx context.Context, n int) {
	if n == 0 {
		return
	}
	if err := initMetrics(); err != nil {
		return
	}
	missingFiles.Add(ctx, int64(n))
}
