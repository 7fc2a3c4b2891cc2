package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/lightsheet-rebuild/bomtool/internal/config"
	infraBQ "github.com/lightsheet-rebuild/bomtool/internal/infra/bigquery"
	"github.com/lightsheet-rebuild/bomtool/internal/infra/sqlite"
	"github.com/lightsheet-rebuild/bomtool/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var (
		target    = flag.String("target", "bigquery", "Schema to create: bigquery or sqlite")
		projectID = flag.String("project", cfg.GCP.Project, "GCP project ID")
		datasetID = flag.String("dataset", cfg.BigQuery.Dataset, "BigQuery dataset ID")
		dbPath    = flag.String("db", cfg.SQLite.Path, "SQLite database path")
	)
	flag.Parse()

	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	switch *target {
	case "bigquery":
		if *projectID == "" {
			log.Fatal().Msg("Error: -project flag is required. Please specify your GCP project ID.")
		}

		repo, err := infraBQ.NewBigQueryBuildRunRepository(ctx, *projectID, *datasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery client")
		}
		defer repo.Close()

		log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Ensuring BigQuery tables")
		if err := repo.EnsureTables(ctx); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
		fmt.Printf("BigQuery tables are up to date in %s.%s\n", *projectID, *datasetID)

	case "sqlite":
		db, err := sqlite.Open(ctx, *dbPath)
		if err != nil {
			log.Fatal().Err(err).Str("db", *dbPath).Msg("Migration failed")
		}
		db.Close()
		fmt.Printf("SQLite schema is up to date in %s\n", *dbPath)

	default:
		log.Fatal().Str("target", *target).Msg("Error: -target must be bigquery or sqlite")
	}
}
