package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
)

// ErrDocumentMissing is returned by LoadDocument when no document exists at the path.
var ErrDocumentMissing = errors.New("BOM document not found")

// SortItems orders items by build phase, then vendor, keeping sheet order for ties, and
// numbers them over the sorted order.
func SortItems(items []domain.NormalizedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].BuildPhase != items[j].BuildPhase {
			return items[i].BuildPhase < items[j].BuildPhase
		}
		return items[i].Vendor < items[j].Vendor
	})
	for i := range items {
		items[i].ID = fmt.Sprintf(IDFormat, i+1)
	}
}

// Source identifies where a document's rows came from.
type Source struct {
	File  string
	Sheet string
}

// NewDocument assembles the output document. items must already be sorted.
func NewDocument(src Source, items []domain.NormalizedItem, summary domain.Summary, skipped int, generatedAt time.Time) *domain.Document {
	if items == nil {
		items = []domain.NormalizedItem{}
	}
	return &domain.Document{
		Metadata: domain.Metadata{
			GeneratedAt: generatedAt.UTC().Format(GeneratedAtLayout),
			SourceFile:  src.File,
			SourceSheet: src.Sheet,
			TotalItems:  summary.TotalItems,
			TotalCost:   summary.TotalCost,
			SkippedRows: skipped,
		},
		Summary: summary,
		Items:   items,
	}
}

// MarshalDocument encodes doc as two-space indented JSON ending in a newline. Map keys
// are emitted in sorted order, so equal documents encode to equal bytes.
func MarshalDocument(doc *domain.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("MarshalDocument: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteDocument replaces the file at path with doc. The bytes go to a temporary file in
// the same directory which is synced and renamed over path; on failure nothing is left
// behind and any previous document is untouched.
func WriteDocument(path string, doc *domain.Document) (err error) {
	data, err := MarshalDocument(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("WriteDocument: creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("WriteDocument: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	closed := false
	defer func() {
		if err != nil {
			if !closed {
				tmp.Close()
			}
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("WriteDocument: writing %s: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("WriteDocument: syncing %s: %w", tmpName, err)
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("WriteDocument: closing %s: %w", tmpName, err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("WriteDocument: chmod %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("WriteDocument: renaming to %s: %w", path, err)
	}
	return nil
}

// LoadDocument reads a document written by WriteDocument.
func LoadDocument(path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentMissing, path)
		}
		return nil, fmt.Errorf("LoadDocument: reading %s: %w", path, err)
	}
	return DecodeDocument(data)
}

// DecodeDocument parses document JSON.
func DecodeDocument(data []byte) (*domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("DecodeDocument: %w", err)
	}
	return &doc, nil
}
