package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// Observability owns the OpenTelemetry meter provider and the run
// instruments recorded by the matching workers.
type Observability struct {
	meterProvider *metric.MeterProvider
	tracer        trace.Tracer
	runCounter    otelmetric.Int64Counter
	runDuration   otelmetric.Float64Histogram
	eligiblePool  otelmetric.Int64Histogram
}

// New registers a prometheus-backed meter provider. When the exporter cannot
// be built the returned value still works and records nothing.
func New(serviceName string) (*Observability, error) {
	o := &Observability{tracer: otel.Tracer(serviceName)}

	exporter, err := prometheus.New()
	if err != nil {
		return o, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter(serviceName)

	o.meterProvider = provider
	o.runCounter, _ = meter.Int64Counter(
		"matching.runs",
		otelmetric.WithDescription("Matching runs processed"),
	)
	o.runDuration, _ = meter.Float64Histogram(
		"matching.run.duration",
		otelmetric.WithDescription("Matching run duration"),
		otelmetric.WithUnit("ms"),
	)
	o.eligiblePool, _ = meter.Int64Histogram(
		"matching.eligible_mentors",
		otelmetric.WithDescription("Eligible mentor pool size per run"),
	)
	return o, nil
}

// StartSpan starts a span named after the worker task.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer("mentor-matching")
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordRun records one matching run.
func (o *Observability) RecordRun(ctx context.Context, mode, outcome string, eligible int, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	)
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, attrs)
	}
	if o.runDuration != nil {
		o.runDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
	if o.eligiblePool != nil {
		o.eligiblePool.Record(ctx, int64(eligible), otelmetric.WithAttributes(attribute.String("mode", mode)))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
