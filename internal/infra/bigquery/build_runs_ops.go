package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/logger"
)

// StartBuildRunWithClient inserts a new row into build_runs with status=RUNNING
// and returns the generated run_id.
func StartBuildRunWithClient(ctx context.Context, client *bigquery.Client, datasetID, sourceFile, sourceSheet string) (string, error) {
	runID := uuid.NewString()

	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			run_id,
			source_file,
			source_sheet,
			started_ts,
			status
		)
		VALUES (
			@run_id,
			@source_file,
			@source_sheet,
			@started_ts,
			@status
		)
	`, datasetID, buildRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "source_file", Value: sourceFile},
		{Name: "source_sheet", Value: sourceSheet},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: StatusRunning},
	}

	if err := runQuery(ctx, q); err != nil {
		return "", fmt.Errorf("StartBuildRun: %w", err)
	}
	return runID, nil
}

// MarkBuildRunSucceededWithClient sets status=SUCCESS, finished_ts and the run totals,
// and clears error_message.
func MarkBuildRunSucceededWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string, meta domain.Metadata) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    total_items = @total_items,
		    total_cost = @total_cost,
		    skipped_rows = @skipped_rows
		WHERE run_id = @run_id
	`, datasetID, buildRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: StatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "total_items", Value: meta.TotalItems},
		{Name: "total_cost", Value: meta.TotalCost},
		{Name: "skipped_rows", Value: meta.SkippedRows},
		{Name: "run_id", Value: runID},
	}

	if err := runQuery(ctx, q); err != nil {
		return fmt.Errorf("MarkBuildRunSucceeded: %w", err)
	}
	return nil
}

// MarkBuildRunFailedWithClient sets status=FAILED, finished_ts and error_message.
// Failures are logged rather than returned so the build error stays the one reported.
func MarkBuildRunFailedWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string, buildErr error) {
	log := logger.FromContext(ctx)

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, datasetID, buildRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: StatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateError(buildErr)},
		{Name: "run_id", Value: runID},
	}

	if err := runQuery(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkBuildRunFailed: update failed")
	}
}

// InsertItemsWithClient streams a batch of BOMItemRow into bom_items.
func InsertItemsWithClient(ctx context.Context, client *bigquery.Client, datasetID string, rows []*BOMItemRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.Dataset(datasetID).Table(bomItemsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertItems: inserting rows: %w", err)
	}
	return nil
}

// ListBuildRunsWithClient returns the most recent build runs, newest first.
func ListBuildRunsWithClient(ctx context.Context, client *bigquery.Client, datasetID string, limit int) ([]*BuildRunRow, error) {
	if limit <= 0 {
		limit = 20
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			source_file,
			source_sheet,
			started_ts,
			finished_ts,
			status,
			error_message,
			total_items,
			total_cost,
			skipped_rows
		FROM `+"`%s.%s.%s`"+`
		ORDER BY started_ts DESC
		LIMIT @limit
	`, client.Project(), datasetID, buildRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBuildRuns: query read: %w", err)
	}

	var rows []*BuildRunRow
	for {
		var r BuildRunRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBuildRuns: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
