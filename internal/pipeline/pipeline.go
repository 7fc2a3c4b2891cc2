// Package pipeline turns a purchasing spreadsheet into the normalized BOM document:
// extract and classify each row, drop unusable rows, aggregate, sort and serialize.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/metrics"
)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Options configure one build run.
type Options struct {
	// Input is the spreadsheet path.
	Input string
	// Output is the document path. Empty means build without writing.
	Output string
	// SheetName selects a worksheet; empty means the first.
	SheetName string

	// Now stamps metadata.generatedAt. Defaults to time.Now.
	Now    func() time.Time
	Reader SheetReader
	Writer DocumentWriter
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Reader == nil {
		o.Reader = FileSheetReader{}
	}
	if o.Writer == nil {
		o.Writer = AtomicFileWriter{}
	}
	return o
}

// NewBOMBuildPipeline creates the standard 6-step pipeline for building the document.
func NewBOMBuildPipeline(opts Options) *Pipeline {
	opts = opts.withDefaults()
	return NewPipeline(
		&ReadSheetStep{Reader: opts.Reader, SheetName: opts.SheetName},
		&ExtractRowsStep{Validator: NewRowValidator()},
		&SortItemsStep{},
		&AggregateStep{},
		&BuildDocumentStep{Now: opts.Now},
		&WriteDocumentStep{Writer: opts.Writer},
	)
}

// Result is the outcome of a successful build.
type Result struct {
	Document  *domain.Document
	RowsRead  int
	Skipped   SkipTally
	RowErrors []RowError
	Ambiguous []AmbiguousRow
	// MissingFields names logical fields with no matching column in the sheet.
	MissingFields []string
	Output        string
	Duration      time.Duration
}

// Build runs the full pipeline. On error no document is written.
func Build(ctx context.Context, opts Options) (*Result, error) {
	timer := metrics.NewTimer()
	recorder := metrics.NewBuildMetrics(filepath.Base(opts.Input))

	state := &PipelineState{Input: opts.Input, Output: opts.Output}
	if err := NewBOMBuildPipeline(opts).Execute(ctx, state); err != nil {
		recorder.RecordBuild(metrics.StatusFailed, timer.Duration(), 0)
		return nil, fmt.Errorf("Build: %w", err)
	}

	result := &Result{
		Document:      state.Document,
		RowsRead:      len(state.Table.Rows),
		Skipped:       state.Skipped,
		RowErrors:     state.RowErrors,
		Ambiguous:     state.Ambiguous,
		MissingFields: state.Missing,
		Output:        state.Output,
		Duration:      timer.Duration(),
	}

	recorder.RecordRows(result.RowsRead, len(state.Items))
	for reason, n := range result.Skipped {
		recorder.RecordSkipped(string(reason), n)
	}
	recorder.RecordAmbiguous(len(result.Ambiguous))
	recorder.RecordBuild(metrics.StatusSuccess, result.Duration, result.Document.Summary.TotalCost)
	return result, nil
}
