package handlers

import (
	"context"
	"fmt"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/jobs"
	"github.com/lightsheet-rebuild/bomtool/internal/logger"
)

// BuildFunc produces a fresh document for a rebuild job.
type BuildFunc func(ctx context.Context, job *jobs.RebuildJob) (*domain.Document, error)

// RebuildJobHandler returns the queue handler that runs build and, on success, swaps
// the served document. A failed build leaves the previous document in place.
func RebuildJobHandler(docs *DocumentHolder, build BuildFunc) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		rebuild, ok := job.(*jobs.RebuildJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log := logger.FromContext(ctx).With().
			Str("job_id", rebuild.JobID).
			Str("input", rebuild.Input).
			Logger()
		log.Info().Msg("Processing rebuild job")

		doc, err := build(ctx, rebuild)
		if err != nil {
			log.Error().Err(err).Msg("Rebuild failed")
			return err
		}

		docs.Set(doc)
		rebuild.TotalItems = doc.Metadata.TotalItems
		rebuild.TotalCost = doc.Metadata.TotalCost

		log.Info().
			Int("items", doc.Metadata.TotalItems).
			Float64("total_cost", doc.Metadata.TotalCost).
			Msg("Rebuild completed")
		return nil
	}
}
