// Package main provides the entry point for the framesnap processing worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/framesnap/framesnap/internal/bootstrap"
	"github.com/framesnap/framesnap/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting framesnap worker",
		slog.String("queue_url", cfg.QueueURL),
		slog.String("input_bucket", cfg.InputBucket),
		slog.String("output_bucket", cfg.OutputBucket),
		slog.Int("frame_stride", cfg.FrameStride),
		slog.String("temp_dir", cfg.TempDir),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.NewWorkerDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	if err := deps.Consumer.Start(ctx); err != nil {
		return fmt.Errorf("consumer failed: %w", err)
	}

	logger.Info("worker stopped gracefully")
	return nil
}
