package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
)

// Aggregate folds items into a new Summary. Money is summed in decimal and converted
// once, so the result does not depend on item order.
func Aggregate(items []domain.NormalizedItem) domain.Summary {
	total := decimal.Zero
	byPhase := make(map[string]decimal.Decimal)
	byVendor := make(map[string]decimal.Decimal)
	byCategory := make(map[string]int)
	bySubassembly := make(map[string]int)

	for _, item := range items {
		price := decimal.NewFromFloat(item.TotalPrice)
		total = total.Add(price)

		phase := item.BuildPhase.Label()
		byPhase[phase] = byPhase[phase].Add(price)
		byVendor[item.Vendor] = byVendor[item.Vendor].Add(price)
		byCategory[string(item.Category)]++
		if item.Subassembly != "" {
			bySubassembly[item.Subassembly]++
		}
	}

	return domain.Summary{
		TotalItems:         len(items),
		TotalCost:          total.InexactFloat64(),
		CostByPhase:        toFloats(byPhase),
		CostByVendor:       toFloats(byVendor),
		ItemsByCategory:    byCategory,
		ItemsBySubassembly: bySubassembly,
	}
}

func toFloats(sums map[string]decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(sums))
	for k, d := range sums {
		out[k] = d.InexactFloat64()
	}
	return out
}
