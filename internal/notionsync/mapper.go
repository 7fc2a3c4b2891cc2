package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
)

// Property names of the BOM database. PropItemID is the title column and the upsert key.
const (
	PropItemID      = "Item ID"
	PropName        = "Name"
	PropVendor      = "Vendor"
	PropPartNumber  = "Part Number"
	PropQuantity    = "Quantity"
	PropUnitPrice   = "Unit Price"
	PropTotalPrice  = "Total Price"
	PropCategory    = "Category"
	PropBuildPhase  = "Build Phase"
	PropOrderDate   = "Order Date"
	PropSubassembly = "Subassembly"
	PropVendorURL   = "Vendor URL"
	PropNotes       = "Notes"
)

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}

// ItemToNotionProperties maps a BOM item onto the BOM database's columns. Optional
// text columns are left out when empty so an update never blanks them with "".
func ItemToNotionProperties(item domain.NormalizedItem) notionapi.Properties {
	props := notionapi.Properties{
		PropItemID:     notionapi.TitleProperty{Title: richText(item.ID)},
		PropName:       notionapi.RichTextProperty{RichText: richText(item.Name)},
		PropQuantity:   notionapi.NumberProperty{Number: float64(item.Quantity)},
		PropUnitPrice:  notionapi.NumberProperty{Number: item.UnitPrice},
		PropTotalPrice: notionapi.NumberProperty{Number: item.TotalPrice},
		PropCategory:   notionapi.SelectProperty{Select: notionapi.Option{Name: string(item.Category)}},
		PropBuildPhase: notionapi.SelectProperty{Select: notionapi.Option{Name: item.BuildPhase.Label()}},
	}

	if item.Vendor != "" {
		props[PropVendor] = notionapi.SelectProperty{Select: notionapi.Option{Name: item.Vendor}}
	}
	if item.PartNumber != "" {
		props[PropPartNumber] = notionapi.RichTextProperty{RichText: richText(item.PartNumber)}
	}
	if item.Subassembly != "" {
		props[PropSubassembly] = notionapi.SelectProperty{Select: notionapi.Option{Name: item.Subassembly}}
	}
	if item.VendorURL != "" {
		props[PropVendorURL] = notionapi.URLProperty{URL: item.VendorURL}
	}
	if item.Notes != "" {
		props[PropNotes] = notionapi.RichTextProperty{RichText: richText(item.Notes)}
	}
	if item.OrderDate != nil {
		d := notionapi.Date(item.OrderDate.In(time.UTC))
		props[PropOrderDate] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
	}

	return props
}

// itemIDOf reads the upsert key back from a queried page. Returns "" when the page
// has no title.
func itemIDOf(page notionapi.Page) string {
	prop, ok := page.Properties[PropItemID]
	if !ok {
		return ""
	}
	title, ok := prop.(*notionapi.TitleProperty)
	if !ok || len(title.Title) == 0 {
		return ""
	}
	return title.Title[0].PlainText
}
