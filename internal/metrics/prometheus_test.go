package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBuildMetrics_RecordBuild(t *testing.T) {
	m := NewBuildMetrics("record-build.xlsx")

	m.RecordRows(10, 8)
	m.RecordSkipped("missing_vendor", 2)
	m.RecordAmbiguous(1)
	m.RecordBuild(StatusSuccess, 250*time.Millisecond, 1234.5)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"rows read", testutil.ToFloat64(RowsRead.WithLabelValues("record-build.xlsx")), 10},
		{"rows kept", testutil.ToFloat64(RowsKept.WithLabelValues("record-build.xlsx")), 8},
		{"rows skipped", testutil.ToFloat64(RowsSkipped.WithLabelValues("record-build.xlsx", "missing_vendor")), 2},
		{"ambiguous", testutil.ToFloat64(AmbiguousRows.WithLabelValues("record-build.xlsx")), 1},
		{"builds", testutil.ToFloat64(BuildsTotal.WithLabelValues("record-build.xlsx", StatusSuccess)), 1},
		{"total cost", testutil.ToFloat64(TotalCost.WithLabelValues("record-build.xlsx")), 1234.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestBuildMetrics_FailedBuildKeepsCost(t *testing.T) {
	m := NewBuildMetrics("failed-build.xlsx")

	m.RecordBuild(StatusSuccess, time.Second, 50)
	m.RecordBuild(StatusFailed, time.Second, 0)

	if got := testutil.ToFloat64(TotalCost.WithLabelValues("failed-build.xlsx")); got != 50 {
		t.Errorf("TotalCost = %v, want 50 from the last successful build", got)
	}
	if got := testutil.ToFloat64(BuildsTotal.WithLabelValues("failed-build.xlsx", StatusFailed)); got != 1 {
		t.Errorf("failed builds = %v, want 1", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	NewBuildMetrics("textfile.xlsx").RecordRows(3, 3)

	path := filepath.Join(t.TempDir(), "bom.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `bom_rows_read_total{source="textfile.xlsx"} 3`) {
		t.Errorf("textfile missing rows read sample:\n%s", data)
	}
}

func TestRecordRequest(t *testing.T) {
	RecordRequest("GET", "/api/bom/test", 200, 10*time.Millisecond)

	if got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/bom/test", "200")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
}
