// Package telemetry wires OpenTelemetry tracing and metrics for fetch cycles.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/luizfelipeneves/dcortex-dashboard"

type Config struct {
	ServiceName    string
	ServiceVersion string
	// Endpoint is the OTLP gRPC collector (host:port). Empty keeps the global no-op providers.
	Endpoint string
	Insecure bool
}

type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	tracer trace.Tracer

	cyclesStarted metric.Int64Counter
	cyclesFailed  metric.Int64Counter
	cycleDuration metric.Float64Histogram
}

// New exports over OTLP when cfg.Endpoint is set, otherwise records into the global providers.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return NewWithProviders(otel.GetTracerProvider(), otel.GetMeterProvider())
	}

	// Schemaless so the merge never conflicts with the SDK default resource's schema URL.
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	traceExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(15*time.Second))),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p, err := NewWithProviders(tp, mp)
	if err != nil {
		return nil, err
	}
	p.tracerProvider = tp
	p.meterProvider = mp

	log.Printf("[telemetry] otlp exporters enabled endpoint=%s service=%s\n", endpoint, cfg.ServiceName)
	return p, nil
}

// NewWithProviders builds the instruments on explicit providers.
func NewWithProviders(tp trace.TracerProvider, mp metric.MeterProvider) (*Provider, error) {
	meter := mp.Meter(instrumentationName)
	p := &Provider{tracer: tp.Tracer(instrumentationName)}

	var err error
	p.cyclesStarted, err = meter.Int64Counter("dashboard.cycles.started",
		metric.WithDescription("Fetch cycles started"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	p.cyclesFailed, err = meter.Int64Counter("dashboard.cycles.failed",
		metric.WithDescription("Fetch cycles that ended in the error state"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	p.cycleDuration, err = meter.Float64Histogram("dashboard.cycle.duration",
		metric.WithDescription("Time from cycle start to its terminal state"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Provider) CycleStarted(ctx context.Context, mount string) {
	p.cyclesStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("mount", mount)))
}

// CycleFinished records the outcome; outcome is the terminal state kind.
func (p *Provider) CycleFinished(ctx context.Context, mount, outcome string, elapsed time.Duration, failed bool) {
	attrs := metric.WithAttributes(
		attribute.String("mount", mount),
		attribute.String("outcome", outcome),
	)
	if failed {
		p.cyclesFailed.Add(ctx, 1, attrs)
	}
	p.cycleDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// StartFetch opens the span around one backend request. End it with EndFetch.
func (p *Provider) StartFetch(ctx context.Context, source string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "dashboard.fetch_data",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("dashboard.source", source)),
	)
}

func EndFetch(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
