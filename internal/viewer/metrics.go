package viewer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/roeblinglabs/itwin-poc-2024/internal/viewer"

type metrics struct {
	duration   metric.Float64Histogram
	failures   metric.Int64Counter
	registered metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	out := &metrics{}

	var err error
	out.duration, err = m.Float64Histogram(
		"viewer.setup.duration",
		metric.WithDescription("Wall time of one viewport setup pass"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating setup duration histogram: %w", err)
	}

	out.failures, err = m.Int64Counter(
		"viewer.step.failures",
		metric.WithDescription("Setup steps that failed, by step"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step failure counter: %w", err)
	}

	out.registered, err = m.Int64Counter(
		"viewer.markers.registered",
		metric.WithDescription("Markers registered with a viewport decorator"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating markers registered counter: %w", err)
	}

	return out, nil
}

func (m *metrics) stepFailed(ctx context.Context, step Step) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("step", string(step))))
}

func (m *metrics) setupDone(ctx context.Context, r Report) {
	m.duration.Record(ctx, r.Duration.Seconds(),
		metric.WithAttributes(attribute.Bool("canceled", r.Canceled)))
}
