package pipeline

import (
	"context"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/logger"
	"github.com/lightsheet-rebuild/bomtool/internal/sheet"
)

// rawRow builds a row from label/value pairs; string values become text cells and
// float64 values numeric cells.
func rawRow(index int, cells map[string]interface{}) sheet.RawRow {
	row := sheet.RawRow{Index: index, SheetRow: index + 1, Cells: make(map[string]sheet.Value)}
	for label, v := range cells {
		switch val := v.(type) {
		case string:
			row.Cells[label] = sheet.Text(val)
		case float64:
			row.Cells[label] = sheet.Number(val)
		case int:
			row.Cells[label] = sheet.Number(float64(val))
		}
	}
	return row
}

func headersOf(row sheet.RawRow) []string {
	headers := make([]string, 0, len(row.Cells))
	for label := range row.Cells {
		headers = append(headers, label)
	}
	return headers
}

func TestExtractor_Extract(t *testing.T) {
	orderDate := civil.Date{Year: 2025, Month: 2, Day: 3}

	tests := []struct {
		name string
		row  sheet.RawRow
		want domain.NormalizedItem
	}{
		{
			name: "current sheet revision",
			row: rawRow(1, map[string]interface{}{
				"Part Num":    " LA1951 ",
				"Description": "Plano-convex lens",
				"Vendor":      "Thorlabs",
				"Subassm.":    "Illumination",
				"Note":        "AR coated",
				"Q. Design":   "2",
				"Q. Buy":      "3",
				"Q. Stock":    "1",
				"U. Price":    "$1,234.50",
				"Subtot.":     "",
				"Order Date":  "2025-02-03",
				"URL":         "https://example.com/la1951",
			}),
			want: domain.NormalizedItem{
				Name:        "LA1951",
				Description: "Plano-convex lens",
				Vendor:      "Thorlabs",
				PartNumber:  "LA1951",
				VendorURL:   "https://example.com/la1951",
				Quantity:    3,
				UnitPrice:   1234.50,
				TotalPrice:  3703.50,
				Category:    domain.CategoryOptics,
				BuildPhase:  domain.PhaseIllumination,
				OrderDate:   &orderDate,
				Notes:       "AR coated",
				Subassembly: "Illumination",
			},
		},
		{
			name: "older revision aliases",
			row: rawRow(2, map[string]interface{}{
				"Part Number": "91290A115",
				"Item":        "M3 screw",
				"Supplier":    "McMaster-Carr",
				"Subassembly": "Sample Mount Bracket",
				"Quantity":    10.0,
				"Unit Price":  0.25,
				"Total Price": "$3.00",
			}),
			want: domain.NormalizedItem{
				Name:        "M3 screw",
				Description: "M3 screw",
				Vendor:      "McMaster-Carr",
				PartNumber:  "91290A115",
				Quantity:    10,
				UnitPrice:   0.25,
				TotalPrice:  3,
				Category:    domain.CategoryMechanics,
				BuildPhase:  domain.PhaseSampleHandling,
				Subassembly: "Sample Mount Bracket",
			},
		},
		{
			name: "quantity falls back to design",
			row: rawRow(3, map[string]interface{}{
				"Part Num":  "P1",
				"Vendor":    "Misumi",
				"Q. Buy":    0,
				"Q. Design": 5,
				"Q. Stock":  3,
				"U. Price":  2,
			}),
			want: domain.NormalizedItem{
				Name: "P1", Description: "P1", Vendor: "Misumi", PartNumber: "P1",
				Quantity: 5, UnitPrice: 2, TotalPrice: 10,
				Category: domain.CategoryMechanics, BuildPhase: domain.PhaseSampleHandling,
			},
		},
		{
			name: "quantity defaults to one",
			row: rawRow(4, map[string]interface{}{
				"Part Num":  "P2",
				"Vendor":    "Misumi",
				"Q. Buy":    0,
				"Q. Design": 0,
				"Q. Stock":  0,
				"U. Price":  "4",
			}),
			want: domain.NormalizedItem{
				Name: "P2", Description: "P2", Vendor: "Misumi", PartNumber: "P2",
				Quantity: 1, UnitPrice: 4, TotalPrice: 4,
				Category: domain.CategoryMechanics, BuildPhase: domain.PhaseSampleHandling,
			},
		},
		{
			name: "malformed price becomes zero",
			row: rawRow(5, map[string]interface{}{
				"Part Num": "P3",
				"Vendor":   "Acme",
				"U. Price": "N/A",
				"Subtot.":  "TBD",
			}),
			want: domain.NormalizedItem{
				Name: "P3", Description: "P3", Vendor: "Acme", PartNumber: "P3",
				Quantity: 1, UnitPrice: 0, TotalPrice: 0,
				Category: domain.CategoryMisc, BuildPhase: domain.PhaseSampleHandling,
			},
		},
		{
			name: "negative values clamp to zero",
			row: rawRow(6, map[string]interface{}{
				"Part Num": "P4",
				"Vendor":   "Acme",
				"U. Price": "-12",
				"Subtot.":  "-24",
			}),
			want: domain.NormalizedItem{
				Name: "P4", Description: "P4", Vendor: "Acme", PartNumber: "P4",
				Quantity: 1, UnitPrice: 0, TotalPrice: 0,
				Category: domain.CategoryMisc, BuildPhase: domain.PhaseSampleHandling,
			},
		},
		{
			name: "unparseable date is absent",
			row: rawRow(7, map[string]interface{}{
				"Part Num":   "P5",
				"Vendor":     "Acme",
				"Order Date": "soon",
			}),
			want: domain.NormalizedItem{
				Name: "P5", Description: "P5", Vendor: "Acme", PartNumber: "P5",
				Quantity: 1, Category: domain.CategoryMisc, BuildPhase: domain.PhaseSampleHandling,
			},
		},
		{
			name: "header case and spacing differ",
			row: rawRow(8, map[string]interface{}{
				"PART  NUM": "P6",
				" vendor ":  "Edmund Optics",
			}),
			want: domain.NormalizedItem{
				Name: "P6", Description: "P6", Vendor: "Edmund Optics", PartNumber: "P6",
				Quantity: 1, Category: domain.CategoryOptics, BuildPhase: domain.PhaseSampleHandling,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := NewExtractor(headersOf(tt.row), false)
			got, _, err := extractor.Extract(tt.row)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractor_FirstNonEmptyAliasWins(t *testing.T) {
	row := rawRow(1, map[string]interface{}{
		"Part Num":    "",
		"Part Number": "FROM-SECOND",
		"SKU":         "FROM-SKU",
		"Vendor":      "Acme",
	})
	extractor := NewExtractor([]string{"Part Num", "Part Number", "SKU", "Vendor"}, false)

	got, _, err := extractor.Extract(row)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.PartNumber != "FROM-SECOND" {
		t.Errorf("PartNumber = %q, want FROM-SECOND", got.PartNumber)
	}
}

func TestExtractor_OverflowIsRowError(t *testing.T) {
	row := rawRow(9, map[string]interface{}{
		"Part Num": "P9",
		"Vendor":   "Acme",
		"Q. Buy":   "1000",
		"U. Price": "1e306",
	})
	extractor := NewExtractor(headersOf(row), false)

	if _, _, err := extractor.Extract(row); err == nil {
		t.Error("Expected error for a total price that overflows")
	}
}

func TestExtractor_PanicIsRowError(t *testing.T) {
	row := rawRow(4, map[string]interface{}{
		"Part Num": "LA1951",
		"Vendor":   "Thorlabs",
		"Subassm.": "Illumination",
	})
	extractor := NewExtractor(headersOf(row), false)
	extractor.classify = func(subassembly, vendor, part string) Classification {
		panic("index out of range")
	}

	item, class, err := extractor.Extract(row)
	if err == nil {
		t.Fatal("Expected the panic to be returned as an error")
	}
	if !strings.Contains(err.Error(), "row 4") || !strings.Contains(err.Error(), "index out of range") {
		t.Errorf("error = %q, want row index and panic value", err)
	}
	if diff := cmp.Diff(domain.NormalizedItem{}, item); diff != "" {
		t.Errorf("item after panic should be empty (-want +got):\n%s", diff)
	}
	if class.Category != "" || len(class.Matched) != 0 {
		t.Errorf("classification after panic = %+v, want zero", class)
	}
}

func TestExtractRowsStep_PanickingRowIsSkipped(t *testing.T) {
	good := rawRow(0, map[string]interface{}{"Part Num": "LA1951", "Vendor": "Thorlabs"})
	bad := rawRow(1, map[string]interface{}{"Part Num": "BOOM", "Vendor": "Acme"})
	table := &sheet.Table{Headers: []string{"Part Num", "Vendor"}, Rows: []sheet.RawRow{good, bad}}

	step := &ExtractRowsStep{
		Validator: NewRowValidator(),
		newExtractor: func(headers []string, date1904 bool) *Extractor {
			e := NewExtractor(headers, date1904)
			e.classify = func(subassembly, vendor, part string) Classification {
				if part == "BOOM" {
					panic("bad cell")
				}
				return Classify(subassembly, vendor, part)
			}
			return e
		},
	}
	state := &PipelineState{Table: table}
	ctx := logger.WithContext(context.Background(), logger.Nop())

	if err := step.Execute(ctx, state); err != nil {
		t.Fatalf("Execute() error = %v, a bad row must not be fatal", err)
	}
	if len(state.Items) != 1 || state.Items[0].PartNumber != "LA1951" {
		t.Errorf("Items = %+v, want only LA1951", state.Items)
	}
	if state.Skipped[SkipRowError] != 1 || state.Skipped.Total() != 1 {
		t.Errorf("Skipped = %v, want one row_error", state.Skipped)
	}
	if len(state.RowErrors) != 1 || state.RowErrors[0].SheetRow != 2 {
		t.Errorf("RowErrors = %+v, want sheet row 2", state.RowErrors)
	}
}

func TestExtractor_MissingColumns(t *testing.T) {
	extractor := NewExtractor([]string{"Part Num", "Vendor", "Q. Buy"}, false)

	want := []string{"description", "subassembly", "unit price"}
	if diff := cmp.Diff(want, extractor.MissingColumns()); diff != "" {
		t.Errorf("MissingColumns() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveQuantity(t *testing.T) {
	tests := []struct {
		name               string
		buy, design, stock int
		want               int
	}{
		{"buy wins", 4, 5, 3, 4},
		{"design when buy is zero", 0, 5, 3, 5},
		{"stock last", 0, 0, 3, 3},
		{"all zero", 0, 0, 0, 1},
		{"negatives ignored", -2, 0, -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveQuantity(tt.buy, tt.design, tt.stock); got != tt.want {
				t.Errorf("resolveQuantity() = %d, want %d", got, tt.want)
			}
		})
	}
}
