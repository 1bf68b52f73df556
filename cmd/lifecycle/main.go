// Package main runs one Game of Life generation against a contribution
// calendar.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/maker-of-life/internal/platform/cmd"
	"github.com/louisbranch/maker-of-life/internal/platform/config"
	apperrors "github.com/louisbranch/maker-of-life/internal/platform/errors"
	"github.com/louisbranch/maker-of-life/internal/tools/lifecycle"
)

func main() {
	cfg, err := lifecycle.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	err = cmd.RunWithTelemetry(ctx, cmd.ServiceLifecycle, func(ctx context.Context) error {
		return lifecycle.Run(ctx, cfg, os.Stdout, os.Stderr)
	})
	if err != nil {
		if apperrors.GetCode(err).Retryable() {
			config.ExitCodef(config.ExitTempFail, "Error: %v", err)
		}
		config.Exitf("Error: %v", err)
	}
}
