// Package metrics provides OpenTelemetry counters for the transcoding
// pipeline and a Prometheus scrape handler.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics installs a meter provider backed by a Prometheus exporter.
// It returns the /metrics handler and a shutdown function.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// Recorder counts pipeline events. A nil *Recorder records nothing.
type Recorder struct {
	submissions metric.Int64Counter
	polls       metric.Int64Counter
	outcomes    metric.Int64Counter
}

// NewRecorder creates the instruments on the global meter provider.
func NewRecorder() (*Recorder, error) {
	return NewRecorderFromMeter(otel.Meter("pool-transcoder"))
}

func NewRecorderFromMeter(meter metric.Meter) (*Recorder, error) {
	submissions, err := meter.Int64Counter("pool_transcode_submissions_total",
		metric.WithDescription("Transcode job submissions by result"))
	if err != nil {
		return nil, err
	}
	polls, err := meter.Int64Counter("pool_transcode_polls_total",
		metric.WithDescription("Job status polls by result"))
	if err != nil {
		return nil, err
	}
	outcomes, err := meter.Int64Counter("pool_transcode_outcomes_total",
		metric.WithDescription("Reconciled job outcomes"))
	if err != nil {
		return nil, err
	}
	return &Recorder{submissions: submissions, polls: polls, outcomes: outcomes}, nil
}

// Submission results: "started", "failed", "skipped".
func (r *Recorder) Submission(ctx context.Context, result string) {
	if r == nil {
		return
	}
	r.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// Poll results: "complete", "failed", "running", "rate_limited", "error".
func (r *Recorder) Poll(ctx context.Context, result string) {
	if r == nil {
		return
	}
	r.polls.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// Outcome values: "ready", "error", "orphaned".
func (r *Recorder) Outcome(ctx context.Context, outcome string) {
	if r == nil {
		return
	}
	r.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
