// Package common provides shared utilities for the pipeline CLI commands.
//
// This package contains helper functions used across the service binaries
// (transformer, combiner) to reduce code duplication:
//
//   - Structured logger construction with a shared service attribute
//   - YAML configuration file loading
//   - Signal-aware run loop around the HTTP server shell
package common

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/omahs/rs-eigentrust/api/httpserver"
	"github.com/omahs/rs-eigentrust/common"
)

// NewLogger creates the structured logger used by all binaries. With json
// set it emits one JSON object per line, which is what the log pipeline
// expects in production; the text form is for interactive use.
func NewLogger(json, debug bool, service string) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler).With(
		"service", fmt.Sprintf("%s/%s", common.PackageName, service),
		"version", common.Version,
	)
}

// LoadYAML populates cfg from the YAML file at path. An empty path is not
// an error; the caller's defaults and flags stand.
func LoadYAML(path string, cfg any) error {
	if path == "" {
		return nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(body, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// RunUntilSignalled starts srv in the background and blocks until SIGINT or
// SIGTERM, then shuts it down gracefully. run, when non-nil, is launched as
// a background loop whose context is cancelled at the first signal.
func RunUntilSignalled(srv *httpserver.Server, run func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.RunInBackground()
	if run != nil {
		go run(ctx)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	cancel()
	srv.Shutdown()
}
