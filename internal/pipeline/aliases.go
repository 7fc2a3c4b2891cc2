package pipeline

import (
	"strings"

	"github.com/lightsheet-rebuild/bomtool/internal/sheet"
)

// Header aliases per logical field, in priority order. The first alias whose cell is
// non-empty wins. Add a new sheet revision's label here.
var (
	PartNumberAliases  = []string{"Part Num", "Part Number", "Part #", "Part No.", "SKU", "Name", "Item", "Component"}
	NameAliases        = []string{"Name", "Item", "Component", "Part Num", "Part Number", "Part #", "Part No.", "SKU"}
	DescriptionAliases = []string{"Description", "Desc.", "Item Description"}
	VendorAliases      = []string{"Vendor", "Supplier", "Manufacturer"}
	SubassemblyAliases = []string{"Subassm.", "Subassembly", "Sub-assembly", "Category"}
	NotesAliases       = []string{"Note", "Notes", "Comments"}
	QtyBuyAliases      = []string{"Q. Buy", "Q.Buy", "Qty Buy", "Quantity", "Qty"}
	QtyDesignAliases   = []string{"Q. Design", "Q.Design", "Qty Design"}
	QtyStockAliases    = []string{"Q. Stock", "Q.Stock", "Qty Stock", "In Stock"}
	UnitPriceAliases   = []string{"U. Price", "Unit Price", "Price", "Unit Cost"}
	SubtotalAliases    = []string{"Subtot.", "Subtotal", "Total Price", "Total", "Ext. Price"}
	OrderDateAliases   = []string{"Order Date", "Date", "Ordered"}
	VendorURLAliases   = []string{"URL", "Link", "Vendor URL"}
)

// columnIndex maps normalized header labels to the labels used in the sheet.
type columnIndex map[string]string

// newColumnIndex indexes headers. When two headers normalize to the same key the one
// further left wins.
func newColumnIndex(headers []string) columnIndex {
	idx := make(columnIndex, len(headers))
	for _, h := range headers {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, exists := idx[key]; !exists {
			idx[key] = h
		}
	}
	return idx
}

// lookup returns the first non-empty cell among aliases.
func (c columnIndex) lookup(row sheet.RawRow, aliases []string) (sheet.Value, bool) {
	for _, alias := range aliases {
		label, ok := c[normalizeHeader(alias)]
		if !ok {
			continue
		}
		if v, ok := row.Get(label); ok && !v.IsEmpty() {
			return v, true
		}
	}
	return sheet.Value{}, false
}

// lookupText is lookup reduced to trimmed text; absent cells give "".
func (c columnIndex) lookupText(row sheet.RawRow, aliases []string) string {
	v, ok := c.lookup(row, aliases)
	if !ok {
		return ""
	}
	return v.String()
}

// has reports whether any alias names a column in the sheet.
func (c columnIndex) has(aliases []string) bool {
	for _, alias := range aliases {
		if _, ok := c[normalizeHeader(alias)]; ok {
			return true
		}
	}
	return false
}

// normalizeHeader lowercases a label and collapses runs of whitespace.
func normalizeHeader(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}
