package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

const (
	buildRunsTable = "build_runs"
	bomItemsTable  = "bom_items"
)

// tableDDL returns the CREATE statements for the warehouse tables, in dependency order.
func tableDDL(projectID, datasetID string) []string {
	return []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.%s`"+` (
			run_id        STRING NOT NULL,
			source_file   STRING NOT NULL,
			source_sheet  STRING,
			started_ts    TIMESTAMP NOT NULL,
			finished_ts   TIMESTAMP,
			status        STRING NOT NULL,
			error_message STRING,
			total_items   INT64,
			total_cost    FLOAT64,
			skipped_rows  INT64
		)
	`, projectID, datasetID, buildRunsTable),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.%s`"+` (
			run_id       STRING NOT NULL,
			item_id      STRING NOT NULL,
			name         STRING NOT NULL,
			description  STRING NOT NULL,
			vendor       STRING NOT NULL,
			part_number  STRING NOT NULL,
			vendor_url   STRING,
			quantity     INT64 NOT NULL,
			unit_price   NUMERIC NOT NULL,
			total_price  NUMERIC NOT NULL,
			category     STRING NOT NULL,
			build_phase  INT64 NOT NULL,
			order_date   DATE,
			notes        STRING,
			subassembly  STRING,
			created_ts   TIMESTAMP NOT NULL
		)
		PARTITION BY DATE(created_ts)
		CLUSTER BY run_id, vendor
	`, projectID, datasetID, bomItemsTable),
	}
}

// EnsureTablesWithClient creates the build_runs and bom_items tables when missing.
func EnsureTablesWithClient(ctx context.Context, client *bigquery.Client, datasetID string) error {
	for _, ddl := range tableDDL(client.Project(), datasetID) {
		if err := runQuery(ctx, client.Query(ddl)); err != nil {
			return fmt.Errorf("EnsureTables: %w", err)
		}
	}
	return nil
}

// runQuery runs q and waits for the job to finish.
func runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
