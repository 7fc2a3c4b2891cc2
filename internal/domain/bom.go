package domain

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
)

// Category is the top-level bucket a component is filed under.
type Category string

const (
	CategoryOptics         Category = "Optics"
	CategoryMechanics      Category = "Mechanics"
	CategoryElectronics    Category = "Electronics"
	CategoryCustomParts    Category = "Custom Parts"
	CategorySampleHandling Category = "Sample Handling"
	CategoryMisc           Category = "Misc"
)

// Categories lists every category label in display order.
var Categories = []Category{
	CategoryOptics,
	CategoryMechanics,
	CategoryElectronics,
	CategoryCustomParts,
	CategorySampleHandling,
	CategoryMisc,
}

// Valid reports whether c is one of the fixed category labels.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Phase is one of the four sequential build stages.
type Phase int

const (
	PhaseSampleHandling Phase = 1
	PhaseIllumination   Phase = 2
	PhaseImaging        Phase = 3
	PhaseIntegration    Phase = 4
)

// Phases lists the build phases in order.
var Phases = []Phase{PhaseSampleHandling, PhaseIllumination, PhaseImaging, PhaseIntegration}

// Valid reports whether p is in 1..4.
func (p Phase) Valid() bool {
	return p >= PhaseSampleHandling && p <= PhaseIntegration
}

// Label is the summary key for the phase, e.g. "Phase 1".
func (p Phase) Label() string {
	return fmt.Sprintf("Phase %d", int(p))
}

// NormalizedItem is one BOM row after alias resolution, coercion, classification and
// validation. It is the unit persisted to the output document.
type NormalizedItem struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Vendor      string      `json:"vendor"`
	PartNumber  string      `json:"partNumber"`
	VendorURL   string      `json:"vendorUrl,omitempty"`
	Quantity    int         `json:"quantity"`
	UnitPrice   float64     `json:"unitPrice"`
	TotalPrice  float64     `json:"totalPrice"`
	Category    Category    `json:"category"`
	BuildPhase  Phase       `json:"buildPhase"`
	OrderDate   *civil.Date `json:"orderDate,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	Subassembly string      `json:"subassembly,omitempty"`
}

// Summary holds the aggregates derived from the full item list.
type Summary struct {
	TotalItems         int                `json:"totalItems"`
	TotalCost          float64            `json:"totalCost"`
	CostByPhase        map[string]float64 `json:"costByPhase"`
	CostByVendor       map[string]float64 `json:"costByVendor"`
	ItemsByCategory    map[string]int     `json:"itemsByCategory"`
	ItemsBySubassembly map[string]int     `json:"itemsBySubassembly"`
}

// Metadata describes one pipeline run.
type Metadata struct {
	GeneratedAt string  `json:"generatedAt"`
	SourceFile  string  `json:"sourceFile"`
	SourceSheet string  `json:"sourceSheet,omitempty"`
	TotalItems  int     `json:"totalItems"`
	TotalCost   float64 `json:"totalCost"`
	SkippedRows int     `json:"skippedRows"`
}

// Document is the root artifact consumed by the website.
type Document struct {
	Metadata Metadata         `json:"metadata"`
	Summary  Summary          `json:"summary"`
	Items    []NormalizedItem `json:"items"`
}

// Share is one labeled slice of a total.
type Share struct {
	Label   string  `json:"label"`
	Amount  float64 `json:"amount"`
	Percent float64 `json:"percent"`
}

// Percent returns part as a percentage of total, or 0 when total is not positive.
func Percent(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total * 100
}

// PhaseShares returns the cost of every phase present in the summary, in phase order.
func (s Summary) PhaseShares() []Share {
	shares := make([]Share, 0, len(Phases))
	for _, p := range Phases {
		cost, ok := s.CostByPhase[p.Label()]
		if !ok {
			continue
		}
		shares = append(shares, Share{Label: p.Label(), Amount: cost, Percent: Percent(cost, s.TotalCost)})
	}
	return shares
}

// TopVendors returns up to n vendors by spend, largest first. n <= 0 returns all.
func (s Summary) TopVendors(n int) []Share {
	shares := make([]Share, 0, len(s.CostByVendor))
	for vendor, cost := range s.CostByVendor {
		shares = append(shares, Share{Label: vendor, Amount: cost, Percent: Percent(cost, s.TotalCost)})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Amount != shares[j].Amount {
			return shares[i].Amount > shares[j].Amount
		}
		return shares[i].Label < shares[j].Label
	})
	if n > 0 && len(shares) > n {
		shares = shares[:n]
	}
	return shares
}

// Count is one labeled tally.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// RankCounts orders a tally by count descending, label ascending, truncated to n when n > 0.
func RankCounts(counts map[string]int, n int) []Count {
	ranked := make([]Count, 0, len(counts))
	for label, c := range counts {
		ranked = append(ranked, Count{Label: label, Count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Label < ranked[j].Label
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
