package bigquery

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/logger"
)

// MockBuildRunRepository is a mock implementation of BuildRunRepository for testing.
type MockBuildRunRepository struct {
	EnsureTablesFunc          func(ctx context.Context) error
	StartBuildRunFunc         func(ctx context.Context, sourceFile, sourceSheet string) (string, error)
	InsertItemsFunc           func(ctx context.Context, rows []*BOMItemRow) error
	MarkBuildRunSucceededFunc func(ctx context.Context, runID string, meta domain.Metadata) error
	ListBuildRunsFunc         func(ctx context.Context, limit int) ([]*BuildRunRow, error)

	Inserted  []*BOMItemRow
	Succeeded []string
	Failed    map[string]error
}

func (m *MockBuildRunRepository) EnsureTables(ctx context.Context) error {
	if m.EnsureTablesFunc != nil {
		return m.EnsureTablesFunc(ctx)
	}
	return nil
}

func (m *MockBuildRunRepository) StartBuildRun(ctx context.Context, sourceFile, sourceSheet string) (string, error) {
	if m.StartBuildRunFunc != nil {
		return m.StartBuildRunFunc(ctx, sourceFile, sourceSheet)
	}
	return "run-1", nil
}

func (m *MockBuildRunRepository) InsertItems(ctx context.Context, rows []*BOMItemRow) error {
	if m.InsertItemsFunc != nil {
		return m.InsertItemsFunc(ctx, rows)
	}
	m.Inserted = append(m.Inserted, rows...)
	return nil
}

func (m *MockBuildRunRepository) MarkBuildRunSucceeded(ctx context.Context, runID string, meta domain.Metadata) error {
	if m.MarkBuildRunSucceededFunc != nil {
		return m.MarkBuildRunSucceededFunc(ctx, runID, meta)
	}
	m.Succeeded = append(m.Succeeded, runID)
	return nil
}

func (m *MockBuildRunRepository) MarkBuildRunFailed(ctx context.Context, runID string, buildErr error) {
	if m.Failed == nil {
		m.Failed = make(map[string]error)
	}
	m.Failed[runID] = buildErr
}

func (m *MockBuildRunRepository) ListBuildRuns(ctx context.Context, limit int) ([]*BuildRunRow, error) {
	if m.ListBuildRunsFunc != nil {
		return m.ListBuildRunsFunc(ctx, limit)
	}
	return nil, nil
}

func testContext() context.Context {
	return logger.WithContext(context.Background(), logger.Nop())
}

func sampleDocument() *domain.Document {
	ordered := civil.Date{Year: 2024, Month: time.March, Day: 15}
	return &domain.Document{
		Metadata: domain.Metadata{SourceFile: "bom.xlsx", TotalItems: 2, TotalCost: 2499.5, SkippedRows: 1},
		Items: []domain.NormalizedItem{
			{
				ID: "bom-001", Name: "Objective", Description: "20x water dipping", Vendor: "Nikon",
				PartNumber: "MRD77220", Quantity: 1, UnitPrice: 2469, TotalPrice: 2469,
				Category: domain.CategoryOptics, BuildPhase: domain.PhaseImaging,
				OrderDate: &ordered, VendorURL: "https://nikon.example/mrd77220",
			},
			{
				ID: "bom-002", Name: "Screw", Description: "Screw", Vendor: "McMaster-Carr",
				PartNumber: "91290A115", Quantity: 3, UnitPrice: 10.5, TotalPrice: 30.5,
				Category: domain.CategoryMechanics, BuildPhase: domain.PhaseSampleHandling,
				Subassembly: "Sample Mount", Notes: "zinc plated",
			},
		},
	}
}

func TestItemRows(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := ItemRows("run-9", sampleDocument().Items, created)

	want := []*BOMItemRow{
		{
			RunID: "run-9", ItemID: "bom-001", Name: "Objective", Description: "20x water dipping",
			Vendor: "Nikon", PartNumber: "MRD77220", Quantity: 1,
			UnitPrice: big.NewRat(2469, 1), TotalPrice: big.NewRat(2469, 1),
			VendorURL: bigquery.NullString{StringVal: "https://nikon.example/mrd77220", Valid: true},
			Category: "Optics", BuildPhase: 3,
			OrderDate: bigquery.NullDate{Date: civil.Date{Year: 2024, Month: time.March, Day: 15}, Valid: true},
			CreatedTS: created,
		},
		{
			RunID: "run-9", ItemID: "bom-002", Name: "Screw", Description: "Screw",
			Vendor: "McMaster-Carr", PartNumber: "91290A115",
			Quantity: 3, UnitPrice: big.NewRat(21, 2), TotalPrice: big.NewRat(61, 2),
			Category: "Mechanics", BuildPhase: 1,
			Notes:       bigquery.NullString{StringVal: "zinc plated", Valid: true},
			Subassembly: bigquery.NullString{StringVal: "Sample Mount", Valid: true},
			CreatedTS:   created,
		},
	}

	ratEqual := cmp.Comparer(func(a, b *big.Rat) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.Cmp(b) == 0
	})
	if diff := cmp.Diff(want, rows, ratEqual); diff != "" {
		t.Errorf("ItemRows() mismatch (-want +got):\n%s", diff)
	}
}

func TestItemRows_Empty(t *testing.T) {
	rows := ItemRows("run", nil, time.Now())
	if rows == nil || len(rows) != 0 {
		t.Errorf("ItemRows(nil) = %#v, want empty non-nil slice", rows)
	}
}

func TestTruncateError(t *testing.T) {
	if got := truncateError(nil); got != "" {
		t.Errorf("truncateError(nil) = %q", got)
	}
	long := errors.New(strings.Repeat("x", maxErrorLen+50))
	if got := truncateError(long); len(got) != maxErrorLen {
		t.Errorf("len(truncateError) = %d, want %d", len(got), maxErrorLen)
	}
}

func TestTableDDL(t *testing.T) {
	ddl := tableDDL("lab-project", "microscope_bom")
	if len(ddl) != 2 {
		t.Fatalf("tableDDL() returned %d statements, want 2", len(ddl))
	}
	if !strings.Contains(ddl[0], "`lab-project.microscope_bom.build_runs`") {
		t.Errorf("first statement does not create build_runs:\n%s", ddl[0])
	}
	if !strings.Contains(ddl[1], "`lab-project.microscope_bom.bom_items`") {
		t.Errorf("second statement does not create bom_items:\n%s", ddl[1])
	}
	for _, col := range []string{"unit_price   NUMERIC", "order_date   DATE", "build_phase  INT64"} {
		if !strings.Contains(ddl[1], col) {
			t.Errorf("bom_items DDL missing %q", col)
		}
	}
}

func TestRecordBuild_Success(t *testing.T) {
	repo := &MockBuildRunRepository{}
	var gotSource, gotSheet string
	repo.StartBuildRunFunc = func(ctx context.Context, sourceFile, sourceSheet string) (string, error) {
		gotSource, gotSheet = sourceFile, sourceSheet
		return "run-42", nil
	}

	doc, runID, err := RecordBuild(testContext(), repo, "bom.xlsx", "BOM", func(ctx context.Context) (*domain.Document, error) {
		return sampleDocument(), nil
	})
	if err != nil {
		t.Fatalf("RecordBuild() error = %v", err)
	}

	if runID != "run-42" || doc == nil {
		t.Fatalf("RecordBuild() = %v, %q", doc, runID)
	}
	if gotSource != "bom.xlsx" || gotSheet != "BOM" {
		t.Errorf("StartBuildRun(%q, %q)", gotSource, gotSheet)
	}
	if len(repo.Inserted) != 2 || repo.Inserted[0].RunID != "run-42" {
		t.Errorf("inserted rows = %d", len(repo.Inserted))
	}
	if diff := cmp.Diff([]string{"run-42"}, repo.Succeeded); diff != "" {
		t.Errorf("succeeded runs mismatch (-want +got):\n%s", diff)
	}
	if len(repo.Failed) != 0 {
		t.Errorf("unexpected failed runs: %v", repo.Failed)
	}
}

func TestRecordBuild_Failures(t *testing.T) {
	buildErr := errors.New("no rows")
	insertErr := errors.New("quota")

	tests := []struct {
		name       string
		repo       *MockBuildRunRepository
		build      BuildFunc
		wantErr    error
		wantFailed bool
	}{
		{
			name:       "build error marks failed",
			repo:       &MockBuildRunRepository{},
			build:      func(context.Context) (*domain.Document, error) { return nil, buildErr },
			wantErr:    buildErr,
			wantFailed: true,
		},
		{
			name: "insert error marks failed",
			repo: &MockBuildRunRepository{InsertItemsFunc: func(context.Context, []*BOMItemRow) error {
				return insertErr
			}},
			build:      func(context.Context) (*domain.Document, error) { return sampleDocument(), nil },
			wantErr:    insertErr,
			wantFailed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, runID, err := RecordBuild(testContext(), tt.repo, "bom.xlsx", "", tt.build)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RecordBuild() error = %v, want %v", err, tt.wantErr)
			}
			if _, failed := tt.repo.Failed[runID]; failed != tt.wantFailed {
				t.Errorf("run %q failed = %v, want %v", runID, failed, tt.wantFailed)
			}
			if len(tt.repo.Succeeded) != 0 {
				t.Error("failed run must not be marked succeeded")
			}
		})
	}
}

func TestRecordBuild_StartError(t *testing.T) {
	called := false
	repo := &MockBuildRunRepository{StartBuildRunFunc: func(context.Context, string, string) (string, error) {
		return "", errors.New("permission denied")
	}}

	_, _, err := RecordBuild(testContext(), repo, "bom.xlsx", "", func(context.Context) (*domain.Document, error) {
		called = true
		return sampleDocument(), nil
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if called {
		t.Error("build must not run when the run cannot be started")
	}
}
