package sheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

func readXLSX(r io.Reader, opts Options) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("readXLSX: opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	name := sheets[0]
	if opts.SheetName != "" {
		name = ""
		for _, s := range sheets {
			if strings.EqualFold(s, opts.SheetName) {
				name = s
				break
			}
		}
		if name == "" {
			return nil, fmt.Errorf("readXLSX: sheet %q not found (have %v)", opts.SheetName, sheets)
		}
	}

	// Raw values keep numbers unformatted ("1234.5", date serials) so typed
	// parsing downstream sees what the workbook stores.
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("readXLSX: reading sheet %q: %w", name, err)
	}

	grid := make([][]Value, len(rows))
	for i, row := range rows {
		grid[i] = make([]Value, len(row))
		for j, raw := range row {
			grid[i][j] = xlsxValue(f, name, j+1, i+1, raw)
		}
	}

	table, err := buildTable(grid)
	if err != nil {
		return nil, err
	}
	table.SheetName = name
	table.Format = FormatXLSX

	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		table.Date1904 = *props.Date1904
	}
	return table, nil
}

// xlsxValue types one cell. Cells stored without a type attribute or as numbers are
// numeric when their raw value parses as a float.
func xlsxValue(f *excelize.File, sheetName string, col, row int, raw string) Value {
	if strings.TrimSpace(raw) == "" {
		return Value{}
	}

	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return Text(raw)
	}
	cellType, err := f.GetCellType(sheetName, ref)
	if err != nil {
		return Text(raw)
	}

	switch cellType {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return Value{Text: raw, Number: n, IsNumber: true}
		}
	}
	return Text(raw)
}
