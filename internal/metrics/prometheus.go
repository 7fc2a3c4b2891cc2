// Package metrics provides Prometheus metrics for BOM builds and the API server
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric in this package. It is separate from the default registry
// so textfile output only carries BOM metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Build metrics
	RowsRead = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bom_rows_read_total",
			Help: "Total number of data rows read from the spreadsheet",
		},
		[]string{"source"},
	)

	RowsKept = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bom_rows_kept_total",
			Help: "Total number of rows kept as items",
		},
		[]string{"source"},
	)

	RowsSkipped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bom_rows_skipped_total",
			Help: "Total number of rows skipped, by reason",
		},
		[]string{"source", "reason"},
	)

	AmbiguousRows = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bom_rows_ambiguous_total",
			Help: "Total number of kept rows matching more than one category rule",
		},
		[]string{"source"},
	)

	BuildsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bom_builds_total",
			Help: "Total number of build runs",
		},
		[]string{"source", "status"},
	)

	BuildDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bom_build_duration_seconds",
			Help:    "Time taken for one build run",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	TotalCost = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bom_total_cost_dollars",
			Help: "Total cost of the last successful build",
		},
		[]string{"source"},
	)

	LastSuccess = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bom_last_success_timestamp_seconds",
			Help: "Unix time of the last successful build",
		},
		[]string{"source"},
	)

	// API metrics
	HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bom_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bom_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// BuildMetrics records metrics for builds of one source spreadsheet.
type BuildMetrics struct {
	source string
}

// NewBuildMetrics creates a recorder labeled with the source file name.
func NewBuildMetrics(source string) *BuildMetrics {
	return &BuildMetrics{source: source}
}

// RecordRows records how many rows were read and kept.
func (m *BuildMetrics) RecordRows(read, kept int) {
	RowsRead.WithLabelValues(m.source).Add(float64(read))
	RowsKept.WithLabelValues(m.source).Add(float64(kept))
}

// RecordSkipped records n skipped rows for one reason.
func (m *BuildMetrics) RecordSkipped(reason string, n int) {
	RowsSkipped.WithLabelValues(m.source, reason).Add(float64(n))
}

// RecordAmbiguous records n rows flagged for review.
func (m *BuildMetrics) RecordAmbiguous(n int) {
	AmbiguousRows.WithLabelValues(m.source).Add(float64(n))
}

// RecordBuild records the outcome of a run. totalCost is only used on success.
func (m *BuildMetrics) RecordBuild(status string, duration time.Duration, totalCost float64) {
	BuildsTotal.WithLabelValues(m.source, status).Inc()
	BuildDuration.WithLabelValues(m.source).Observe(duration.Seconds())
	if status == StatusSuccess {
		TotalCost.WithLabelValues(m.source).Set(totalCost)
		LastSuccess.WithLabelValues(m.source).SetToCurrentTime()
	}
}

// Build outcomes used as the status label.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// RecordRequest records one served HTTP request.
func RecordRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, fmt.Sprintf("%d", status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry to path for the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("WriteTextfile: %w", err)
	}
	return nil
}

// Timer is a helper for measuring duration
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
