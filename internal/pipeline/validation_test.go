package pipeline

import (
	"testing"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
)

func TestRowValidator_Validate(t *testing.T) {
	valid := domain.NormalizedItem{
		PartNumber: "LA1951",
		Vendor:     "Thorlabs",
		Category:   domain.CategoryOptics,
		BuildPhase: domain.PhaseIllumination,
	}
	with := func(mutate func(*domain.NormalizedItem)) domain.NormalizedItem {
		item := valid
		mutate(&item)
		return item
	}

	validator := NewRowValidator()

	tests := []struct {
		name string
		item domain.NormalizedItem
		want SkipReason
	}{
		{
			name: "valid row",
			item: valid,
			want: SkipNone,
		},
		{
			name: "missing part number",
			item: with(func(i *domain.NormalizedItem) { i.PartNumber = "" }),
			want: SkipMissingPartNumber,
		},
		{
			name: "blank part number",
			item: with(func(i *domain.NormalizedItem) { i.PartNumber = "   " }),
			want: SkipMissingPartNumber,
		},
		{
			name: "missing vendor",
			item: with(func(i *domain.NormalizedItem) { i.Vendor = "" }),
			want: SkipMissingVendor,
		},
		{
			name: "unknown vendor sentinel",
			item: with(func(i *domain.NormalizedItem) { i.Vendor = "(unknown)" }),
			want: SkipUnknownVendor,
		},
		{
			name: "unknown vendor with different case and spaces",
			item: with(func(i *domain.NormalizedItem) { i.Vendor = "  (Unknown) " }),
			want: SkipUnknownVendor,
		},
		{
			name: "part number checked before vendor",
			item: with(func(i *domain.NormalizedItem) { i.PartNumber = ""; i.Vendor = "" }),
			want: SkipMissingPartNumber,
		},
		{
			name: "category outside the fixed set",
			item: with(func(i *domain.NormalizedItem) { i.Category = "Lasers" }),
			want: SkipRowError,
		},
		{
			name: "phase outside 1..4",
			item: with(func(i *domain.NormalizedItem) { i.BuildPhase = 7 }),
			want: SkipRowError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validator.Validate(tt.item); got != tt.want {
				t.Errorf("Validate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRowValidator_CustomPlaceholders(t *testing.T) {
	validator := NewRowValidator("TBD", "n/a")

	tests := []struct {
		vendor string
		want   SkipReason
	}{
		{"tbd", SkipUnknownVendor},
		{"N/A", SkipUnknownVendor},
		{"(unknown)", SkipNone},
	}

	for _, tt := range tests {
		t.Run(tt.vendor, func(t *testing.T) {
			item := domain.NormalizedItem{
				PartNumber: "X",
				Vendor:     tt.vendor,
				Category:   domain.CategoryMisc,
				BuildPhase: domain.PhaseSampleHandling,
			}
			if got := validator.Validate(item); got != tt.want {
				t.Errorf("Validate(%q) = %q, want %q", tt.vendor, got, tt.want)
			}
		})
	}
}

func TestSkipTally_Total(t *testing.T) {
	tally := SkipTally{SkipMissingVendor: 2, SkipRowError: 1}
	if got := tally.Total(); got != 3 {
		t.Errorf("Total() = %d, want 3", got)
	}
	if got := (SkipTally{}).Total(); got != 0 {
		t.Errorf("empty Total() = %d, want 0", got)
	}
}
