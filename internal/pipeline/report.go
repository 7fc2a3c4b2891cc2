package pipeline

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders a dollar amount with thousands separators, e.g. $1,234.50.
func FormatMoney(amount float64) string {
	return moneyPrinter.Sprintf("$%.2f", amount)
}

// WriteReport prints the console summary of a build.
func WriteReport(w io.Writer, r *Result) error {
	var b strings.Builder
	s := r.Document.Summary

	b.WriteString("BOM build complete\n\n")
	b.WriteString("SUMMARY:\n")
	fmt.Fprintf(&b, "   Rows Read: %d\n", r.RowsRead)
	fmt.Fprintf(&b, "   Total Items: %d\n", s.TotalItems)
	fmt.Fprintf(&b, "   Skipped Rows: %d%s\n", r.Skipped.Total(), skipBreakdown(r.Skipped))
	fmt.Fprintf(&b, "   Ambiguous Rows: %d\n", len(r.Ambiguous))
	fmt.Fprintf(&b, "   Total Cost: %s\n", FormatMoney(s.TotalCost))
	if len(r.MissingFields) > 0 {
		fmt.Fprintf(&b, "   Missing Columns: %s\n", strings.Join(r.MissingFields, ", "))
	}

	b.WriteString("\nCOST BY PHASE:\n")
	for _, share := range s.PhaseShares() {
		fmt.Fprintf(&b, "   %s: %s (%.1f%%)\n", share.Label, FormatMoney(share.Amount), share.Percent)
	}

	fmt.Fprintf(&b, "\nCOST BY VENDOR (Top %d):\n", ReportTopN)
	for _, share := range s.TopVendors(ReportTopN) {
		fmt.Fprintf(&b, "   %s: %s (%.1f%%)\n", share.Label, FormatMoney(share.Amount), share.Percent)
	}

	b.WriteString("\nITEMS BY CATEGORY:\n")
	for _, c := range domain.RankCounts(s.ItemsByCategory, 0) {
		fmt.Fprintf(&b, "   %s: %d\n", c.Label, c.Count)
	}

	fmt.Fprintf(&b, "\nITEMS BY SUBASSEMBLY (Top %d):\n", ReportTopN)
	for _, c := range domain.RankCounts(s.ItemsBySubassembly, ReportTopN) {
		fmt.Fprintf(&b, "   %s: %d\n", c.Label, c.Count)
	}

	if len(r.Ambiguous) > 0 {
		b.WriteString("\nFLAGGED FOR REVIEW:\n")
		for _, a := range r.Ambiguous {
			fmt.Fprintf(&b, "   row %d %s (%s): %s, also matched %s\n",
				a.SheetRow, a.PartNumber, a.Vendor, a.Chosen, joinCategories(a.Matched[1:]))
		}
	}

	if r.Output != "" {
		fmt.Fprintf(&b, "\nOutput saved to: %s\n", r.Output)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func skipBreakdown(t SkipTally) string {
	var parts []string
	for _, reason := range SkipReasons {
		if n := t[reason]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", strings.ReplaceAll(string(reason), "_", " "), n))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func joinCategories(cats []domain.Category) string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
