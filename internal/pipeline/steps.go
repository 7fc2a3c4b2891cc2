package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/logger"
	"github.com/lightsheet-rebuild/bomtool/internal/sheet"
)

// PipelineStep represents a single step in the build pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Input  string
	Output string

	Table     *sheet.Table
	Items     []domain.NormalizedItem
	Skipped   SkipTally
	RowErrors []RowError
	Ambiguous []AmbiguousRow
	Missing   []string
	Summary   domain.Summary
	Document  *domain.Document
}

// RowError records a row dropped because it could not be read.
type RowError struct {
	Index    int
	SheetRow int
	Err      error
}

// AmbiguousRow is a kept row whose keywords matched more than one category tier.
type AmbiguousRow struct {
	Index       int               `json:"row"`
	SheetRow    int               `json:"sheetRow"`
	PartNumber  string            `json:"partNumber"`
	Description string            `json:"description"`
	Vendor      string            `json:"vendor"`
	Subassembly string            `json:"subassembly,omitempty"`
	Chosen      domain.Category   `json:"chosen"`
	Matched     []domain.Category `json:"matched"`
}

// Step 1: ReadSheetStep loads the first (or named) sheet of the input.
type ReadSheetStep struct {
	Reader    SheetReader
	SheetName string
}

func (s *ReadSheetStep) Execute(ctx context.Context, state *PipelineState) error {
	table, err := s.Reader.Open(state.Input, sheet.Options{SheetName: s.SheetName})
	if err != nil {
		return err
	}
	state.Table = table

	log := logger.FromContext(ctx)
	log.Info().
		Str("source", table.SourceFile).
		Str("sheet", table.SheetName).
		Int("rows", len(table.Rows)).
		Msg("Read spreadsheet")
	return nil
}

// Step 2: ExtractRowsStep extracts, classifies and validates every row independently.
// Bad rows are logged and counted, never fatal.
type ExtractRowsStep struct {
	Validator *RowValidator

	// newExtractor defaults to NewExtractor.
	newExtractor func(headers []string, date1904 bool) *Extractor
}

func (s *ExtractRowsStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Table == nil {
		return fmt.Errorf("ExtractRowsStep: no table loaded")
	}
	log := logger.FromContext(ctx)

	newExtractor := s.newExtractor
	if newExtractor == nil {
		newExtractor = NewExtractor
	}
	extractor := newExtractor(state.Table.Headers, state.Table.Date1904)
	state.Missing = extractor.MissingColumns()
	if len(state.Missing) > 0 {
		log.Warn().Strs("fields", state.Missing).Msg("No column found for some fields; defaults will be used")
	}

	state.Skipped = make(SkipTally)
	state.Items = make([]domain.NormalizedItem, 0, len(state.Table.Rows))

	for _, row := range state.Table.Rows {
		rowLog := logger.ForRow(log, row.Index, row.SheetRow)

		item, class, err := extractor.Extract(row)
		if err != nil {
			rowLog.Warn().Err(err).Msg("Skipping row that could not be read")
			state.Skipped[SkipRowError]++
			state.RowErrors = append(state.RowErrors, RowError{Index: row.Index, SheetRow: row.SheetRow, Err: err})
			continue
		}

		if reason := s.Validator.Validate(item); reason != SkipNone {
			rowLog.Debug().Str("reason", string(reason)).Msg("Skipping row")
			state.Skipped[reason]++
			continue
		}

		if class.Ambiguous() {
			rowLog.Debug().
				Str("category", string(class.Category)).
				Interface("matched", class.Matched).
				Msg("Row matches several category rules")
			state.Ambiguous = append(state.Ambiguous, AmbiguousRow{
				Index:       row.Index,
				SheetRow:    row.SheetRow,
				PartNumber:  item.PartNumber,
				Description: item.Description,
				Vendor:      item.Vendor,
				Subassembly: item.Subassembly,
				Chosen:      class.Category,
				Matched:     class.Matched,
			})
		}
		state.Items = append(state.Items, item)
	}
	return nil
}

// Step 3: SortItemsStep orders the kept items and assigns ids.
type SortItemsStep struct{}

func (s *SortItemsStep) Execute(ctx context.Context, state *PipelineState) error {
	SortItems(state.Items)
	return nil
}

// Step 4: AggregateStep computes the summary over the kept items.
type AggregateStep struct{}

func (s *AggregateStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Summary = Aggregate(state.Items)
	return nil
}

// Step 5: BuildDocumentStep assembles the output document.
type BuildDocumentStep struct {
	Now func() time.Time
}

func (s *BuildDocumentStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Table == nil {
		return fmt.Errorf("BuildDocumentStep: no table loaded")
	}
	src := Source{File: state.Table.SourceFile, Sheet: state.Table.SheetName}
	state.Document = NewDocument(src, state.Items, state.Summary, state.Skipped.Total(), s.Now())
	return nil
}

// Step 6: WriteDocumentStep persists the document. An empty output path skips writing.
type WriteDocumentStep struct {
	Writer DocumentWriter
}

func (s *WriteDocumentStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Output == "" {
		return nil
	}
	if err := s.Writer.Write(state.Output, state.Document); err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Info().Str("output", state.Output).Msg("Wrote BOM document")
	return nil
}
