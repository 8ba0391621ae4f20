package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

type Observability struct {
	meterProvider    *metric.MeterProvider
	meter            otelmetric.Meter
	tracer           trace.Tracer
	analysisCounter  otelmetric.Int64Counter
	analysisDuration otelmetric.Float64Histogram
	leadCounter      otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	tracer := otel.Tracer(serviceName)

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{tracer: tracer}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	analysisCounter, _ := meter.Int64Counter(
		"menu.analyses",
		otelmetric.WithDescription("Number of menu analyses by outcome"),
	)

	analysisDuration, _ := meter.Float64Histogram(
		"menu.analysis.duration",
		otelmetric.WithDescription("Menu analysis duration"),
		otelmetric.WithUnit("ms"),
	)

	leadCounter, _ := meter.Int64Counter(
		"menu.leads",
		otelmetric.WithDescription("Number of lead deliveries by outcome"),
	)

	return &Observability{
		meterProvider:    provider,
		meter:            meter,
		tracer:           tracer,
		analysisCounter:  analysisCounter,
		analysisDuration: analysisDuration,
		leadCounter:      leadCounter,
	}
}

// Noop returns an Observability that records nothing. Spans still use the
// global tracer, which is a no-op unless a provider was installed.
func Noop() *Observability {
	return &Observability{tracer: otel.Tracer("noop")}
}

// StartSpan opens a span named name. Call the returned func with the
// operation's error to end it.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if o == nil || o.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (o *Observability) RecordAnalysis(ctx context.Context, analyzer, status string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("analyzer", analyzer),
		attribute.String("status", status),
	)
	if o.analysisCounter != nil {
		o.analysisCounter.Add(ctx, 1, attrs)
	}
	if o.analysisDuration != nil {
		o.analysisDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordLeadDelivery(ctx context.Context, sink, status string) {
	if o == nil || o.leadCounter == nil {
		return
	}
	o.leadCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("sink", sink),
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown() {
	if o != nil && o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
