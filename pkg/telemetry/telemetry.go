// Package telemetry provides OpenTelemetry tracing for the optimizer and
// distance service without shipping spans anywhere over the network;
// this module has no outward-facing collector endpoint, so the provider
// is configured with an in-process sampler only.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Config controls tracer construction.
type Config struct {
	Enabled     bool
	ServiceName string
	Version     string
	Environment string
	SampleRate  float64
}

// Provider wraps a TracerProvider.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

var globalProvider *Provider

// Init builds a Provider per cfg. When cfg.Enabled is false, Init returns
// a no-op tracer so call sites don't need a feature check.
func Init(_ context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: otel.Tracer(cfg.ServiceName)}, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	provider := &Provider{tp: tp, tracer: tp.Tracer(cfg.ServiceName)}
	globalProvider = provider
	return provider, nil
}

// Shutdown flushes and stops the underlying TracerProvider, if any.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp != nil {
		return p.tp.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the provider's tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Get returns the global Provider, defaulting to a no-op tracer if Init
// was never called.
func Get() *Provider {
	if globalProvider == nil {
		return &Provider{tracer: otel.Tracer("default")}
	}
	return globalProvider
}

// StartSpan starts a span named name under the global tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Get().tracer.Start(ctx, name, opts...)
}

// SetError marks the current span as failed.
func SetError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Attributes used across optimizer and distance spans.
const (
	AttrCaseCount      = "optimize.case_count"
	AttrVehicleCount   = "optimize.vehicle_count"
	AttrStrategy       = "optimize.strategy"
	AttrRouteCount     = "optimize.route_count"
	AttrProvider       = "distance.provider"
	AttrMatrixSize     = "distance.matrix_size"
	AttrCacheHit       = "distance.cache_hit"
)

// OptimizeAttributes reports strategy and instance size on an optimizer
// span.
func OptimizeAttributes(strategy string, cases, vehicles, routes int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStrategy, strategy),
		attribute.Int(AttrCaseCount, cases),
		attribute.Int(AttrVehicleCount, vehicles),
		attribute.Int(AttrRouteCount, routes),
	}
}

// DistanceAttributes reports provider and cache behavior on a distance
// span.
func DistanceAttributes(provider string, matrixSize int, cacheHit bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrProvider, provider),
		attribute.Int(AttrMatrixSize, matrixSize),
		attribute.Bool(AttrCacheHit, cacheHit),
	}
}
