package pipeline

import (
	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/sheet"
)

// SheetReader loads a spreadsheet into a table.
// This interface enables mocking of the input file in tests.
type SheetReader interface {
	Open(path string, opts sheet.Options) (*sheet.Table, error)
}

// FileSheetReader reads spreadsheets from the local filesystem.
type FileSheetReader struct{}

// Open delegates to sheet.Open.
func (FileSheetReader) Open(path string, opts sheet.Options) (*sheet.Table, error) {
	return sheet.Open(path, opts)
}

// DocumentWriter persists a finished document.
type DocumentWriter interface {
	Write(path string, doc *domain.Document) error
}

// AtomicFileWriter writes documents with WriteDocument.
type AtomicFileWriter struct{}

// Write delegates to WriteDocument.
func (AtomicFileWriter) Write(path string, doc *domain.Document) error {
	return WriteDocument(path, doc)
}
