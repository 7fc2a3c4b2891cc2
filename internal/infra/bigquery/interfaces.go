// Package bigquery records BOM build runs and their items in a BigQuery dataset so
// cost history can be queried across spreadsheet revisions.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/logger"
)

// BuildRunRepository defines the interface for build run history.
// This interface enables mocking and testing of the warehouse layer.
type BuildRunRepository interface {
	EnsureTables(ctx context.Context) error
	StartBuildRun(ctx context.Context, sourceFile, sourceSheet string) (string, error)
	InsertItems(ctx context.Context, rows []*BOMItemRow) error
	MarkBuildRunSucceeded(ctx context.Context, runID string, meta domain.Metadata) error
	MarkBuildRunFailed(ctx context.Context, runID string, buildErr error)
	ListBuildRuns(ctx context.Context, limit int) ([]*BuildRunRow, error)
}

// BigQueryBuildRunRepository is the concrete implementation of BuildRunRepository
// that interacts with BigQuery. It holds a shared client for every operation.
type BigQueryBuildRunRepository struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQueryBuildRunRepository creates a repository for dataset in projectID.
func NewBigQueryBuildRunRepository(ctx context.Context, projectID, dataset string) (*BigQueryBuildRunRepository, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewBigQueryBuildRunRepository: GCP project is not configured")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryBuildRunRepository: creating client: %w", err)
	}
	return &BigQueryBuildRunRepository{client: client, dataset: dataset}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryBuildRunRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *BigQueryBuildRunRepository) EnsureTables(ctx context.Context) error {
	return EnsureTablesWithClient(ctx, r.client, r.dataset)
}

func (r *BigQueryBuildRunRepository) StartBuildRun(ctx context.Context, sourceFile, sourceSheet string) (string, error) {
	return StartBuildRunWithClient(ctx, r.client, r.dataset, sourceFile, sourceSheet)
}

func (r *BigQueryBuildRunRepository) InsertItems(ctx context.Context, rows []*BOMItemRow) error {
	return InsertItemsWithClient(ctx, r.client, r.dataset, rows)
}

func (r *BigQueryBuildRunRepository) MarkBuildRunSucceeded(ctx context.Context, runID string, meta domain.Metadata) error {
	return MarkBuildRunSucceededWithClient(ctx, r.client, r.dataset, runID, meta)
}

func (r *BigQueryBuildRunRepository) MarkBuildRunFailed(ctx context.Context, runID string, buildErr error) {
	MarkBuildRunFailedWithClient(ctx, r.client, r.dataset, runID, buildErr)
}

func (r *BigQueryBuildRunRepository) ListBuildRuns(ctx context.Context, limit int) ([]*BuildRunRow, error) {
	return ListBuildRunsWithClient(ctx, r.client, r.dataset, limit)
}

// BuildFunc produces the document for one run.
type BuildFunc func(ctx context.Context) (*domain.Document, error)

// RecordBuild wraps build in a tracked run: the run is started before build, the items
// are inserted afterwards and the run is marked SUCCESS, or FAILED when any step errors.
// It returns the document and the run id.
func RecordBuild(ctx context.Context, repo BuildRunRepository, sourceFile, sourceSheet string, build BuildFunc) (*domain.Document, string, error) {
	log := logger.FromContext(ctx)

	runID, err := repo.StartBuildRun(ctx, sourceFile, sourceSheet)
	if err != nil {
		return nil, "", fmt.Errorf("RecordBuild: start run: %w", err)
	}
	log = log.With().Str("run_id", runID).Logger()

	doc, err := build(ctx)
	if err != nil {
		repo.MarkBuildRunFailed(ctx, runID, err)
		return nil, runID, err
	}

	rows := ItemRows(runID, doc.Items, time.Now().UTC())
	if err := repo.InsertItems(ctx, rows); err != nil {
		repo.MarkBuildRunFailed(ctx, runID, err)
		return nil, runID, fmt.Errorf("RecordBuild: %w", err)
	}

	if err := repo.MarkBuildRunSucceeded(ctx, runID, doc.Metadata); err != nil {
		return nil, runID, fmt.Errorf("RecordBuild: %w", err)
	}

	log.Info().
		Int("items", len(rows)).
		Float64("total_cost", doc.Metadata.TotalCost).
		Msg("Recorded build run")

	return doc, runID, nil
}
