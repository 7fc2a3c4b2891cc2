package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
)

// Build run statuses.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

type BuildRunRow struct {
	RunID       string `bigquery:"run_id"`       // REQUIRED
	SourceFile  string `bigquery:"source_file"`  // REQUIRED
	SourceSheet string `bigquery:"source_sheet"` // NULLABLE

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`        // REQUIRED
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	TotalItems  bigquery.NullInt64   `bigquery:"total_items"`  // NULLABLE
	TotalCost   bigquery.NullFloat64 `bigquery:"total_cost"`   // NULLABLE
	SkippedRows bigquery.NullInt64   `bigquery:"skipped_rows"` // NULLABLE
}

type BOMItemRow struct {
	RunID  string `bigquery:"run_id"`  // REQUIRED
	ItemID string `bigquery:"item_id"` // REQUIRED

	Name        string `bigquery:"name"`        // REQUIRED
	Description string `bigquery:"description"` // REQUIRED
	Vendor      string `bigquery:"vendor"`      // REQUIRED
	PartNumber  string `bigquery:"part_number"` // REQUIRED

	VendorURL bigquery.NullString `bigquery:"vendor_url"` // NULLABLE

	Quantity   int64    `bigquery:"quantity"`    // REQUIRED
	UnitPrice  *big.Rat `bigquery:"unit_price"`  // REQUIRED NUMERIC
	TotalPrice *big.Rat `bigquery:"total_price"` // REQUIRED NUMERIC

	Category   string `bigquery:"category"`    // REQUIRED
	BuildPhase int64  `bigquery:"build_phase"` // REQUIRED

	OrderDate   bigquery.NullDate   `bigquery:"order_date"`  // NULLABLE
	Notes       bigquery.NullString `bigquery:"notes"`       // NULLABLE
	Subassembly bigquery.NullString `bigquery:"subassembly"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// ItemRows maps document items to warehouse rows stamped with runID.
func ItemRows(runID string, items []domain.NormalizedItem, created time.Time) []*BOMItemRow {
	rows := make([]*BOMItemRow, 0, len(items))
	for _, item := range items {
		row := &BOMItemRow{
			RunID:       runID,
			ItemID:      item.ID,
			Name:        item.Name,
			Description: item.Description,
			Vendor:      item.Vendor,
			PartNumber:  item.PartNumber,
			VendorURL:   nullString(item.VendorURL),
			Quantity:    int64(item.Quantity),
			UnitPrice:   decimal.NewFromFloat(item.UnitPrice).Rat(),
			TotalPrice:  decimal.NewFromFloat(item.TotalPrice).Rat(),
			Category:    string(item.Category),
			BuildPhase:  int64(item.BuildPhase),
			Notes:       nullString(item.Notes),
			Subassembly: nullString(item.Subassembly),
			CreatedTS:   created,
		}
		if item.OrderDate != nil {
			row.OrderDate = bigquery.NullDate{Date: *item.OrderDate, Valid: true}
		}
		rows = append(rows, row)
	}
	return rows
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// maxErrorLen caps error_message so oversized wrapped errors don't fail the update.
const maxErrorLen = 2000

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return msg
}
