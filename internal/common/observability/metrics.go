package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records submission pipeline instruments through an OpenTelemetry
// meter exported in Prometheus format.
type Observability struct {
	meterProvider *metric.MeterProvider
	stageDuration otelmetric.Float64Histogram
	leadScore     otelmetric.Int64Histogram
	notifyOutcome otelmetric.Int64Counter
}

// New registers the exporter with the default Prometheus registry.
func New(serviceName string) (*Observability, error) {
	return NewWithRegisterer(serviceName, promclient.DefaultRegisterer)
}

func NewWithRegisterer(serviceName string, reg promclient.Registerer) (*Observability, error) {
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter(serviceName)

	stageDuration, err := meter.Float64Histogram(
		"submission.stage.duration",
		otelmetric.WithDescription("Duration of each submission pipeline stage"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	leadScore, err := meter.Int64Histogram(
		"lead.score",
		otelmetric.WithDescription("Distribution of lead scores"),
		otelmetric.WithExplicitBucketBoundaries(30, 60, 90, 120, 150),
	)
	if err != nil {
		return nil, err
	}

	notifyOutcome, err := meter.Int64Counter(
		"notification.channel.outcome",
		otelmetric.WithDescription("Final notification outcome per channel"),
	)
	if err != nil {
		return nil, err
	}

	return &Observability{
		meterProvider: provider,
		stageDuration: stageDuration,
		leadScore:     leadScore,
		notifyOutcome: notifyOutcome,
	}, nil
}

// NewNoop returns an Observability that records nothing.
func NewNoop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordStage(ctx context.Context, stage string, duration time.Duration) {
	if o == nil || o.stageDuration == nil {
		return
	}
	o.stageDuration.Record(ctx, float64(duration.Microseconds())/1000, otelmetric.WithAttributes(
		attribute.String("stage", stage),
	))
}

func (o *Observability) RecordScore(ctx context.Context, total int, tier string) {
	if o == nil || o.leadScore == nil {
		return
	}
	o.leadScore.Record(ctx, int64(total), otelmetric.WithAttributes(
		attribute.String("tier", tier),
	))
}

func (o *Observability) RecordNotification(ctx context.Context, channel string, ok bool) {
	if o == nil || o.notifyOutcome == nil {
		return
	}
	outcome := "failed"
	if ok {
		outcome = "sent"
	}
	o.notifyOutcome.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("outcome", outcome),
	))
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
