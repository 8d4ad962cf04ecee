package tasks

import (
	"context"
	"errors"
	"time"

	"foodgram-api/internal/logging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer  = otel.Tracer("foodgram-worker")
	metrics = newJobMetrics(otel.Meter("foodgram-worker"))
)

// jobMetrics counts task outcomes per type. A nil instrument is skipped.
type jobMetrics struct {
	processed metric.Int64Counter
	duration  metric.Float64Histogram
}

func newJobMetrics(meter metric.Meter) *jobMetrics {
	processed, errProcessed := meter.Int64Counter(
		"jobs.processed",
		metric.WithDescription("Tasks processed by the worker, by type and outcome"),
		metric.WithUnit("{task}"),
	)
	duration, errDuration := meter.Float64Histogram(
		"jobs.duration",
		metric.WithDescription("Task processing time"),
		metric.WithUnit("s"),
	)
	if err := errors.Join(errProcessed, errDuration); err != nil {
		logging.Logger().Error().Err(err).Msg("failed to create job instruments")
	}

	return &jobMetrics{processed: processed, duration: duration}
}

func (m *jobMetrics) record(ctx context.Context, jobType string, err error, started time.Time) {
	outcome := "completed"
	if err != nil {
		outcome = "failed"
	}

	if m.processed != nil {
		m.processed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("job.type", jobType),
			attribute.String("job.outcome", outcome),
		))
	}
	if m.duration != nil {
		m.duration.Record(ctx, time.Since(started).Seconds(),
			metric.WithAttributes(attribute.String("job.type", jobType)))
	}
}
