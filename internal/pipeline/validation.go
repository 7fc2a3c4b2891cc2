package pipeline

import (
	"strings"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
)

// SkipReason says why a row was left out of the document. The empty reason means kept.
type SkipReason string

const (
	SkipNone              SkipReason = ""
	SkipMissingPartNumber SkipReason = "missing_part_number"
	SkipMissingVendor     SkipReason = "missing_vendor"
	SkipUnknownVendor     SkipReason = "unknown_vendor"
	SkipRowError          SkipReason = "row_error"
)

// SkipReasons lists every non-empty reason in report order.
var SkipReasons = []SkipReason{SkipMissingPartNumber, SkipMissingVendor, SkipUnknownVendor, SkipRowError}

// SkipTally counts skipped rows per reason.
type SkipTally map[SkipReason]int

// Total is the number of skipped rows over all reasons.
func (t SkipTally) Total() int {
	n := 0
	for _, c := range t {
		n += c
	}
	return n
}

// RowValidator decides whether an extracted row is kept.
type RowValidator struct {
	unknownVendors map[string]bool // Normalized vendor placeholders that count as missing
}

// NewRowValidator creates a validator. Vendor placeholders are compared case-insensitively
// after trimming; with none given, UnknownVendor is used.
func NewRowValidator(placeholders ...string) *RowValidator {
	if len(placeholders) == 0 {
		placeholders = []string{UnknownVendor}
	}
	v := &RowValidator{unknownVendors: make(map[string]bool, len(placeholders))}
	for _, p := range placeholders {
		v.unknownVendors[normalizeVendor(p)] = true
	}
	return v
}

// Validate returns SkipNone for a kept item, otherwise the first failing check.
// A category or phase outside the fixed sets is treated as a row error.
func (v *RowValidator) Validate(item domain.NormalizedItem) SkipReason {
	if strings.TrimSpace(item.PartNumber) == "" {
		return SkipMissingPartNumber
	}

	vendor := normalizeVendor(item.Vendor)
	if vendor == "" {
		return SkipMissingVendor
	}
	if v.unknownVendors[vendor] {
		return SkipUnknownVendor
	}

	if !item.Category.Valid() || !item.BuildPhase.Valid() {
		return SkipRowError
	}
	return SkipNone
}

// normalizeVendor normalizes a vendor name for comparison.
func normalizeVendor(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
