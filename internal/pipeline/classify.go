package pipeline

import (
	"strings"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
)

// keywordRule matches when any keyword occurs in the corresponding lowercased text.
type keywordRule struct {
	vendor      []string
	subassembly []string
	part        []string
}

func (r keywordRule) matches(subassembly, vendor, part string) bool {
	return containsAny(vendor, r.vendor) ||
		containsAny(subassembly, r.subassembly) ||
		containsAny(part, r.part)
}

type categoryTier struct {
	category domain.Category
	rule     keywordRule
}

// categoryTiers are checked in order; the first match decides the category.
var categoryTiers = []categoryTier{
	{domain.CategoryElectronics, keywordRule{
		vendor: []string{"digi", "arduino", "adafruit"},
		part:   []string{"cable", "wire", "pcb"},
	}},
	{domain.CategoryOptics, keywordRule{
		vendor:      []string{"thor", "edmund", "newport", "semrock", "chroma", "spach"},
		subassembly: []string{"illumination", "imaging", "detection"},
		part:        []string{"lens", "mirror", "filter"},
	}},
	{domain.CategoryMechanics, keywordRule{
		vendor: []string{"mcmaster", "misumi"},
		part:   []string{"screw", "bracket", "mount", "post", "plate"},
	}},
	{domain.CategoryCustomParts, keywordRule{
		vendor: []string{"custom", "xometry", "3dp"},
		part:   []string{"3dp"},
	}},
	{domain.CategorySampleHandling, keywordRule{
		subassembly: []string{"sample"},
	}},
}

type phaseRule struct {
	phase    domain.Phase
	keywords []string
}

// phaseRules look at the subassembly only; the first match decides the phase.
var phaseRules = []phaseRule{
	{domain.PhaseSampleHandling, []string{"sample", "mount"}},
	{domain.PhaseIllumination, []string{"illumination", "light", "led"}},
	{domain.PhaseImaging, []string{"imaging", "detection", "camera"}},
	{domain.PhaseIntegration, []string{"electronics", "computer", "cable"}},
}

// Classification is the category and build phase derived for one row.
type Classification struct {
	Category domain.Category
	Phase    domain.Phase
	// Matched lists every category tier whose keywords hit, in precedence order.
	// Category is always Matched[0] when Matched is non-empty.
	Matched []domain.Category
}

// Ambiguous reports whether more than one category tier matched the row.
func (c Classification) Ambiguous() bool {
	return len(c.Matched) > 1
}

// Classify derives category and phase from the subassembly, vendor and part identifier.
// Matching is case-insensitive substring search.
func Classify(subassembly, vendor, part string) Classification {
	sub := strings.ToLower(subassembly)
	ven := strings.ToLower(vendor)
	prt := strings.ToLower(part)

	c := Classification{
		Category: domain.CategoryMisc,
		Phase:    ClassifyPhase(subassembly),
	}
	for _, tier := range categoryTiers {
		if tier.rule.matches(sub, ven, prt) {
			c.Matched = append(c.Matched, tier.category)
		}
	}
	if len(c.Matched) > 0 {
		c.Category = c.Matched[0]
	}
	return c
}

// ClassifyPhase maps subassembly text to a build phase, defaulting to phase 1.
func ClassifyPhase(subassembly string) domain.Phase {
	sub := strings.ToLower(subassembly)
	for _, rule := range phaseRules {
		if containsAny(sub, rule.keywords) {
			return rule.phase
		}
	}
	return domain.PhaseSampleHandling
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
