package pipeline

import (
	"fmt"
	"math"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/sheet"
)

// Extractor turns raw rows of one sheet into candidate items.
type Extractor struct {
	columns  columnIndex
	date1904 bool
	classify func(subassembly, vendor, part string) Classification
}

// NewExtractor prepares alias lookup for a sheet's headers.
func NewExtractor(headers []string, date1904 bool) *Extractor {
	return &Extractor{
		columns:  newColumnIndex(headers),
		date1904: date1904,
		classify: Classify,
	}
}

// MissingColumns names the logical fields for which no alias appears in the headers.
// Rows can still be extracted; those fields simply take their defaults.
func (e *Extractor) MissingColumns() []string {
	fields := []struct {
		name    string
		aliases []string
	}{
		{"part number", PartNumberAliases},
		{"vendor", VendorAliases},
		{"description", DescriptionAliases},
		{"subassembly", SubassemblyAliases},
		{"quantity", append(append(append([]string{}, QtyBuyAliases...), QtyDesignAliases...), QtyStockAliases...)},
		{"unit price", UnitPriceAliases},
	}

	var missing []string
	for _, f := range fields {
		if !e.columns.has(f.aliases) {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Extract resolves every field of row and classifies it. The item has no id yet and is
// not validated. A panic while reading the row is returned as an error.
func (e *Extractor) Extract(row sheet.RawRow) (item domain.NormalizedItem, class Classification, err error) {
	defer func() {
		if r := recover(); r != nil {
			item = domain.NormalizedItem{}
			class = Classification{}
			err = fmt.Errorf("Extract: row %d: %v", row.Index, r)
		}
	}()

	cols := e.columns

	partNumber := cols.lookupText(row, PartNumberAliases)
	name := cols.lookupText(row, NameAliases)
	if name == "" {
		name = partNumber
	}
	description := cols.lookupText(row, DescriptionAliases)
	if description == "" {
		description = name
	}
	vendor := cols.lookupText(row, VendorAliases)
	subassembly := cols.lookupText(row, SubassemblyAliases)

	quantity := resolveQuantity(
		e.quantity(row, QtyBuyAliases),
		e.quantity(row, QtyDesignAliases),
		e.quantity(row, QtyStockAliases),
	)

	unitPrice, _ := e.currency(row, UnitPriceAliases)
	if unitPrice < 0 {
		unitPrice = 0
	}
	totalPrice := float64(quantity) * unitPrice
	if subtotal, ok := e.currency(row, SubtotalAliases); ok && subtotal > 0 {
		totalPrice = subtotal
	}
	if totalPrice < 0 {
		totalPrice = 0
	}
	if math.IsInf(totalPrice, 0) {
		return domain.NormalizedItem{}, Classification{}, fmt.Errorf("Extract: row %d: total price overflows", row.Index)
	}

	class = e.classify(subassembly, vendor, partNumber)

	item = domain.NormalizedItem{
		Name:        name,
		Description: description,
		Vendor:      vendor,
		PartNumber:  partNumber,
		VendorURL:   cols.lookupText(row, VendorURLAliases),
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  totalPrice,
		Category:    class.Category,
		BuildPhase:  class.Phase,
		Notes:       cols.lookupText(row, NotesAliases),
		Subassembly: subassembly,
	}
	if v, ok := cols.lookup(row, OrderDateAliases); ok {
		if d, ok := parseDate(v, e.date1904); ok {
			item.OrderDate = &d
		}
	}
	return item, class, nil
}

func (e *Extractor) quantity(row sheet.RawRow, aliases []string) int {
	v, ok := e.columns.lookup(row, aliases)
	if !ok {
		return 0
	}
	n, ok := parseQuantity(v)
	if !ok {
		return 0
	}
	return n
}

func (e *Extractor) currency(row sheet.RawRow, aliases []string) (float64, bool) {
	v, ok := e.columns.lookup(row, aliases)
	if !ok {
		return 0, false
	}
	return parseCurrency(v)
}

// resolveQuantity returns the first positive count, or DefaultQuantity.
func resolveQuantity(counts ...int) int {
	for _, n := range counts {
		if n > 0 {
			return n
		}
	}
	return DefaultQuantity
}
