package sheet

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Options tune how a workbook is read.
type Options struct {
	// SheetName selects a worksheet by name. Empty means the first sheet.
	SheetName string
}

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Open reads the spreadsheet at path.
func Open(path string, opts Options) (*Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, path)
		}
		return nil, fmt.Errorf("sheet.Open: opening %s: %w", path, err)
	}
	defer f.Close()

	table, err := Read(f, format, opts)
	if err != nil {
		return nil, fmt.Errorf("sheet.Open: %s: %w", path, err)
	}
	table.SourceFile = filepath.Base(path)
	return table, nil
}

// Read decodes a spreadsheet of the given format from r.
func Read(r io.Reader, format Format, opts Options) (*Table, error) {
	switch format {
	case FormatXLSX:
		return readXLSX(r, opts)
	case FormatCSV:
		return readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// buildTable turns a grid of cells into a header-keyed table. The first non-empty row is
// the header; blank rows after it are dropped.
func buildTable(grid [][]Value) (*Table, error) {
	headerAt := -1
	for i, row := range grid {
		if !blankRow(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrNoHeader
	}

	headers := headerLabels(grid[headerAt])
	table := &Table{Headers: headers}

	for i := headerAt + 1; i < len(grid); i++ {
		row := grid[i]
		if blankRow(row) {
			continue
		}
		cells := make(map[string]Value, len(headers))
		for col, label := range headers {
			if col < len(row) {
				cells[label] = row[col]
			} else {
				cells[label] = Value{}
			}
		}
		table.Rows = append(table.Rows, RawRow{
			Index:    len(table.Rows) + 1,
			SheetRow: i + 1,
			Cells:    cells,
		})
	}

	if len(table.Rows) == 0 {
		return nil, ErrNoRows
	}
	return table, nil
}

// headerLabels trims header cells, names empty ones __EMPTY_<n> and suffixes repeats
// with _<n> so no column is lost.
func headerLabels(row []Value) []string {
	// Trailing empty header cells carry no column.
	last := len(row) - 1
	for last >= 0 && row[last].IsEmpty() {
		last--
	}

	labels := make([]string, 0, last+1)
	taken := make(map[string]bool)
	repeats := make(map[string]int)
	for col := 0; col <= last; col++ {
		label := row[col].String()
		if label == "" {
			label = fmt.Sprintf("__EMPTY_%d", col)
		}
		// A suffixed label can itself appear later in the header, so keep
		// counting until the name is free.
		base := label
		for taken[label] {
			repeats[base]++
			label = fmt.Sprintf("%s_%d", base, repeats[base])
		}
		taken[label] = true
		labels = append(labels, label)
	}
	return labels
}

func blankRow(row []Value) bool {
	for _, v := range row {
		if !v.IsEmpty() {
			return false
		}
	}
	return true
}
