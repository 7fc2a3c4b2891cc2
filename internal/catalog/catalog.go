// Package catalog derives filtered and sorted views of a BOM document's items for
// browsing. It never mutates the document it reads from.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
)

// ErrUnknownField is returned when a sort field does not name an item attribute.
var ErrUnknownField = errors.New("unknown sort field")

// Field names a sortable NormalizedItem attribute using its JSON key.
type Field string

const (
	FieldID          Field = "id"
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldVendor      Field = "vendor"
	FieldPartNumber  Field = "partNumber"
	FieldVendorURL   Field = "vendorUrl"
	FieldQuantity    Field = "quantity"
	FieldUnitPrice   Field = "unitPrice"
	FieldTotalPrice  Field = "totalPrice"
	FieldCategory    Field = "category"
	FieldBuildPhase  Field = "buildPhase"
	FieldOrderDate   Field = "orderDate"
	FieldNotes       Field = "notes"
	FieldSubassembly Field = "subassembly"
)

// Fields lists every sortable field.
var Fields = []Field{
	FieldID, FieldName, FieldDescription, FieldVendor, FieldPartNumber, FieldVendorURL,
	FieldQuantity, FieldUnitPrice, FieldTotalPrice, FieldCategory, FieldBuildPhase,
	FieldOrderDate, FieldNotes, FieldSubassembly,
}

// ParseField resolves s case-insensitively. An empty string yields FieldID.
func ParseField(s string) (Field, error) {
	if s == "" {
		return FieldID, nil
	}
	for _, f := range Fields {
		if strings.EqualFold(string(f), s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Query is the browsing view state. Zero values mean "no constraint".
type Query struct {
	Search     string
	Vendor     string
	Category   domain.Category
	Phase      domain.Phase
	SortBy     Field
	Descending bool
}

// Apply filters items by q and sorts the result. The input slice is left untouched.
func Apply(items []domain.NormalizedItem, q Query) []domain.NormalizedItem {
	out := Filter(items, q)
	if q.SortBy != "" {
		Sort(out, q.SortBy, q.Descending)
	}
	return out
}

// Filter returns the items matching every constraint set in q, in input order.
func Filter(items []domain.NormalizedItem, q Query) []domain.NormalizedItem {
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]domain.NormalizedItem, 0, len(items))
	for _, item := range items {
		if needle != "" && !matchesSearch(item, needle) {
			continue
		}
		if q.Vendor != "" && item.Vendor != q.Vendor {
			continue
		}
		if q.Category != "" && item.Category != q.Category {
			continue
		}
		if q.Phase != 0 && item.BuildPhase != q.Phase {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesSearch(item domain.NormalizedItem, needle string) bool {
	for _, hay := range []string{item.Name, item.Description, item.Vendor, item.PartNumber, item.ID} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

// Sort orders items in place by field. Text fields use English collation, numeric
// fields compare numerically and missing order dates sort before present ones.
// Equal elements keep their relative order in both directions.
func Sort(items []domain.NormalizedItem, field Field, descending bool) {
	cmp := comparator(field)
	sort.SliceStable(items, func(i, j int) bool {
		if descending {
			return cmp(items[j], items[i]) < 0
		}
		return cmp(items[i], items[j]) < 0
	})
}

type compareFunc func(a, b domain.NormalizedItem) int

func comparator(field Field) compareFunc {
	switch field {
	case FieldQuantity:
		return func(a, b domain.NormalizedItem) int { return compareFloat(float64(a.Quantity), float64(b.Quantity)) }
	case FieldUnitPrice:
		return func(a, b domain.NormalizedItem) int { return compareFloat(a.UnitPrice, b.UnitPrice) }
	case FieldTotalPrice:
		return func(a, b domain.NormalizedItem) int { return compareFloat(a.TotalPrice, b.TotalPrice) }
	case FieldBuildPhase:
		return func(a, b domain.NormalizedItem) int { return compareFloat(float64(a.BuildPhase), float64(b.BuildPhase)) }
	case FieldOrderDate:
		return compareOrderDate
	}

	text := textOf(field)
	col := collate.New(language.English)
	return func(a, b domain.NormalizedItem) int { return col.CompareString(text(a), text(b)) }
}

func textOf(field Field) func(domain.NormalizedItem) string {
	switch field {
	case FieldName:
		return func(i domain.NormalizedItem) string { return i.Name }
	case FieldDescription:
		return func(i domain.NormalizedItem) string { return i.Description }
	case FieldVendor:
		return func(i domain.NormalizedItem) string { return i.Vendor }
	case FieldPartNumber:
		return func(i domain.NormalizedItem) string { return i.PartNumber }
	case FieldVendorURL:
		return func(i domain.NormalizedItem) string { return i.VendorURL }
	case FieldCategory:
		return func(i domain.NormalizedItem) string { return string(i.Category) }
	case FieldNotes:
		return func(i domain.NormalizedItem) string { return i.Notes }
	case FieldSubassembly:
		return func(i domain.NormalizedItem) string { return i.Subassembly }
	default:
		return func(i domain.NormalizedItem) string { return i.ID }
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareOrderDate(a, b domain.NormalizedItem) int {
	switch {
	case a.OrderDate == nil && b.OrderDate == nil:
		return 0
	case a.OrderDate == nil:
		return -1
	case b.OrderDate == nil:
		return 1
	case a.OrderDate.Before(*b.OrderDate):
		return -1
	case a.OrderDate.After(*b.OrderDate):
		return 1
	default:
		return 0
	}
}

// Vendors returns the distinct vendor names in collation order.
func Vendors(items []domain.NormalizedItem) []string {
	seen := make(map[string]bool)
	vendors := make([]string, 0)
	for _, item := range items {
		if !seen[item.Vendor] {
			seen[item.Vendor] = true
			vendors = append(vendors, item.Vendor)
		}
	}
	collate.New(language.English).SortStrings(vendors)
	return vendors
}
