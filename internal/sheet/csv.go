package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// readCSV treats every cell as text; numeric coercion happens in the extractor.
func readCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var grid [][]Value
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("readCSV: reading record %d: %w", len(grid)+1, err)
		}
		if len(grid) == 0 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
		}
		row := make([]Value, len(record))
		for i, cell := range record {
			row[i] = Text(cell)
		}
		grid = append(grid, row)
	}

	table, err := buildTable(grid)
	if err != nil {
		return nil, err
	}
	table.Format = FormatCSV
	return table, nil
}
