// Package cmd holds entrypoint helpers shared by the job's commands.
package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/louisbranch/maker-of-life/internal/platform/otel"
	"github.com/louisbranch/maker-of-life/internal/platform/timeouts"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// ServiceLifecycle names the daily generation job in telemetry and logs.
const ServiceLifecycle = "lifecycle"

// RunWithTelemetry configures tracing and executes run inside a root span
// named after service. A returned error is recorded on the span, and pending
// spans are flushed before returning.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.TelemetryShutdown)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("%s otel shutdown: %v", service, err)
		}
	}()

	ctx, span := otelapi.Tracer(otel.InstrumentationName).Start(ctx, service)
	defer span.End()
	if err := run(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
