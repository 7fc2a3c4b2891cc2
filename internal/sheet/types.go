// Package sheet reads the first worksheet of a purchasing spreadsheet into header-keyed
// raw rows. Cells keep the loose typing of the source: numeric cells arrive as numbers,
// everything else as text.
package sheet

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// Fatal conditions. Callers check them with errors.Is.
var (
	ErrSourceMissing     = errors.New("spreadsheet not found")
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrNoSheets          = errors.New("workbook has no sheets")
	ErrNoHeader          = errors.New("sheet has no header row")
	ErrNoRows            = errors.New("sheet has no data rows")
)

// Format identifies the container of a spreadsheet.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// Value is one cell. IsNumber is set when the source stored the cell as a number.
type Value struct {
	Text     string
	Number   float64
	IsNumber bool
}

// Text builds a text cell.
func Text(s string) Value {
	return Value{Text: s}
}

// Number builds a numeric cell.
func Number(f float64) Value {
	return Value{Text: strconv.FormatFloat(f, 'f', -1, 64), Number: f, IsNumber: true}
}

// String returns the trimmed display text of the cell.
func (v Value) String() string {
	if v.IsNumber && v.Text == "" {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return strings.TrimSpace(v.Text)
}

// IsEmpty reports whether the cell carries no usable content.
func (v Value) IsEmpty() bool {
	return !v.IsNumber && strings.TrimSpace(v.Text) == ""
}

// RawRow maps column labels to cell values for one data row.
type RawRow struct {
	// Index is the 1-based position among data rows.
	Index int
	// SheetRow is the 1-based row number in the worksheet.
	SheetRow int
	Cells    map[string]Value
}

// Get returns the cell under an exact column label.
func (r RawRow) Get(label string) (Value, bool) {
	v, ok := r.Cells[label]
	return v, ok
}

// Table is the decoded content of one worksheet.
type Table struct {
	SourceFile string
	SheetName  string
	Format     Format
	// Date1904 is true when the workbook uses the 1904 date system.
	Date1904 bool
	Headers  []string
	Rows     []RawRow
}

// Columns returns every distinct column label in sorted order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.Headers))
	copy(cols, t.Headers)
	sort.Strings(cols)
	return cols
}

// Preview returns up to n leading rows.
func (t *Table) Preview(n int) []RawRow {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}
