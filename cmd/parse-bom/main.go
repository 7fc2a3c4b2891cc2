package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lightsheet-rebuild/bomtool/internal/config"
	"github.com/lightsheet-rebuild/bomtool/internal/logger"
	"github.com/lightsheet-rebuild/bomtool/internal/metrics"
	"github.com/lightsheet-rebuild/bomtool/internal/pipeline"
	"github.com/lightsheet-rebuild/bomtool/internal/storage"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize structured logger
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	// Create context with timeout so the build doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	tmp, err := os.MkdirTemp("", "bom-input-")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create temp directory")
	}
	defer os.RemoveAll(tmp)

	input, err := storage.ResolveInput(ctx, storage.NewOpener(storage.S3OptionsFromConfig(cfg.S3)), cfg.Input, tmp)
	if err != nil {
		log.Fatal().Err(err).Str("input", cfg.Input).Msg("Failed to fetch spreadsheet")
	}

	log.Info().Str("input", input).Str("output", cfg.Output).Msg("Starting BOM build")

	result, err := pipeline.Build(ctx, pipeline.Options{
		Input:     input,
		Output:    cfg.Output,
		SheetName: cfg.Sheet,
	})
	writeTextfile(log, cfg.Metrics.Textfile)
	if err != nil {
		os.RemoveAll(tmp)
		log.Fatal().Err(err).Str("input", cfg.Input).Msg("BOM build failed")
	}

	if err := pipeline.WriteReport(os.Stdout, result); err != nil {
		log.Error().Err(err).Msg("Failed to write report")
	}

	fmt.Println("BOM build completed successfully.")
}

// writeTextfile exports build metrics for the node exporter when a path is configured.
func writeTextfile(log zerolog.Logger, path string) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to write metrics textfile")
	}
}
