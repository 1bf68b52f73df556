// Package otel wires optional OpenTelemetry tracing for the job.
package otel

import (
	"context"
	"strings"

	"github.com/louisbranch/maker-of-life/internal/platform/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InstrumentationName identifies spans created by this module.
const InstrumentationName = "github.com/louisbranch/maker-of-life"

type envConfig struct {
	Endpoint string `env:"MAKER_OF_LIFE_OTEL_ENDPOINT"`
	Enabled  string `env:"MAKER_OF_LIFE_OTEL_ENABLED"`
}

func (c envConfig) active() bool {
	return strings.TrimSpace(c.Endpoint) != "" && !strings.EqualFold(strings.TrimSpace(c.Enabled), "false")
}

// Setup initialises OpenTelemetry tracing for one run of serviceName.
//
// Tracing is opt-in: when MAKER_OF_LIFE_OTEL_ENDPOINT is empty or
// MAKER_OF_LIFE_OTEL_ENABLED is "false", Setup returns a no-op shutdown
// function and the global no-op provider stays in place.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	var cfg envConfig
	if err := config.ParseEnv(&cfg); err != nil {
		return noop, err
	}
	if !cfg.active() {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(strings.TrimSpace(cfg.Endpoint)),
	)
	if err != nil {
		return noop, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return noop, err
	}

	tp := newTracerProvider(exporter, res)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

// newTracerProvider exports every span as it ends. A run records a span per
// stage and then exits, so nothing waits on a batch timer.
func newTracerProvider(exporter sdktrace.SpanExporter, res *resource.Resource) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
}
