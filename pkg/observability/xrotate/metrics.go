package xrotate

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/omeyang/xroll/pkg/observability/xrotate"

	metricRolloverTotal    = "xroll.rollover.total"
	metricRolloverDuration = "xroll.rollover.duration"
	metricWriteBytes       = "xroll.write.bytes"
	metricActionFailures   = "xroll.action.failures"
)

// 轮转原因
const (
	reasonPolicy  = "policy"
	reasonStartup = "startup"
	reasonCron    = "cron"
	reasonManual  = "manual"
)

// 轮转结果
const (
	resultSuccess = "success"
	resultFailure = "failure"
	resultBusy    = "busy"
	resultNoop    = "noop"
)

type rollMetrics struct {
	rollovers      metric.Int64Counter
	duration       metric.Float64Histogram
	written        metric.Int64Counter
	actionFailures metric.Int64Counter
	pattern        attribute.KeyValue
}

func newRollMetrics(mp metric.MeterProvider, pattern string) (*rollMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	rollovers, err := meter.Int64Counter(metricRolloverTotal,
		metric.WithDescription("rollover attempts"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("xrotate: create counter failed: %w", err)
	}
	duration, err := meter.Float64Histogram(metricRolloverDuration,
		metric.WithDescription("time spent in the exclusive rollover section"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("xrotate: create histogram failed: %w", err)
	}
	written, err := meter.Int64Counter(metricWriteBytes,
		metric.WithDescription("bytes written to the active file"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("xrotate: create counter failed: %w", err)
	}
	failures, err := meter.Int64Counter(metricActionFailures,
		metric.WithDescription("failed rollover actions"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("xrotate: create counter failed: %w", err)
	}
	return &rollMetrics{
		rollovers:      rollovers,
		duration:       duration,
		written:        written,
		actionFailures: failures,
		pattern:        attribute.String("pattern", pattern),
	}, nil
}

func (r *rollMetrics) rollover(ctx context.Context, result, reason string, d time.Duration) {
	r.rollovers.Add(ctx, 1, metric.WithAttributes(
		r.pattern,
		attribute.String("result", result),
		attribute.String("reason", reason),
	))
	if result == resultSuccess {
		r.duration.Record(ctx, d.Seconds(), metric.WithAttributes(r.pattern))
	}
}

func (r *rollMetrics) wrote(ctx context.Context, n int) {
	if n > 0 {
		r.written.Add(ctx, int64(n), metric.WithAttributes(r.pattern))
	}
}

func (r *rollMetrics) actionFailed(ctx context.Context, stage string) {
	r.actionFailures.Add(ctx, 1, metric.WithAttributes(r.pattern, attribute.String("stage", stage)))
}
