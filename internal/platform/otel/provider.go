// Package otel wires the process-wide OpenTelemetry tracer provider.
package otel

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Options selects the trace exporter.
type Options struct {
	// Endpoint is the OTLP/HTTP collector URL. Empty disables tracing.
	Endpoint string `env:"OTEL_ENDPOINT"`
	// Disabled forces tracing off even when Endpoint is set.
	Disabled bool `env:"OTEL_DISABLED" envDefault:"false"`
	// SampleRatio is the fraction of root traces kept, in [0, 1]. Child
	// spans follow their parent's decision, so fetches triggered by a traced
	// workflow job are always kept.
	SampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

func (o Options) sampler() (sdktrace.Sampler, error) {
	switch {
	case o.SampleRatio < 0 || o.SampleRatio > 1:
		return nil, fmt.Errorf("otel sample ratio %v outside [0, 1]", o.SampleRatio)
	case o.SampleRatio == 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample()), nil
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.SampleRatio)), nil
	}
}

// Setup registers a global tracer provider exporting to opts.Endpoint and
// returns its shutdown function, which flushes pending spans.
//
// With no endpoint, or when disabled, nothing is registered and the
// returned shutdown does nothing.
func Setup(ctx context.Context, serviceName string, opts Options) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	endpoint := strings.TrimSpace(opts.Endpoint)
	if opts.Disabled || endpoint == "" {
		return noop, nil
	}
	sampler, err := opts.sampler()
	if err != nil {
		return noop, err
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return noop, fmt.Errorf("create otlp exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithProcessPID(),
		resource.WithHost(),
	)
	if err != nil {
		return noop, fmt.Errorf("build otel resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return provider.Shutdown, nil
}
