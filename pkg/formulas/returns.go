// Package formulas provides the return and statistics calculations used by the
// aggregation and reporting layers. All functions are pure.
package formulas

import "sort"

// SimplePeriodReturn is the percentage change between a start and end value.
// Returns 0 when the start value is not positive (first tracked day, cash-only
// days) instead of NaN or infinity.
func SimplePeriodReturn(startValue, endValue float64) float64 {
	if startValue <= 0 {
		return 0
	}
	return ((endValue / startValue) - 1) * 100
}

// CostBasisReturn is the return of a value over its cost basis, as a
// percentage. Zero cost basis yields 0 by policy.
func CostBasisReturn(totalValue, totalCost float64) float64 {
	if totalCost <= 0 {
		return 0
	}
	return ((totalValue / totalCost) - 1) * 100
}

// SummaryPoint is one day's portfolio value and cumulative net invested
// capital, the inputs to time-weighted return chaining.
type SummaryPoint struct {
	Date        string  // YYYY-MM-DD
	Value       float64 // Total portfolio value
	NetInvested float64 // Cumulative deposits minus withdrawals through Date
}

// TimeWeightedReturn chains sub-period returns over a series of summary
// points, isolating investment performance from the effect of cash flows.
//
// For each consecutive pair the cash flow is the change in net invested
// capital, treated as occurring at the start of the sub-period:
//
//	r_i = V_end / (V_start + flow) - 1
//	TWR = Π(1 + r_i) - 1
//
// The flow-at-start convention is a fixed policy; moving the flow to the end
// of the sub-period would change the denominator. The first point establishes
// the baseline and contributes no return. A sub-period with a zero adjusted
// denominator contributes a no-op factor of 1. Fewer than two points yields 0.
// The result is a percentage.
func TimeWeightedReturn(points []SummaryPoint) float64 {
	if len(points) < 2 {
		return 0
	}

	sorted := make([]SummaryPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	twr := 1.0
	prev := sorted[0]
	for _, curr := range sorted[1:] {
		flow := curr.NetInvested - prev.NetInvested
		denom := prev.Value + flow
		if denom != 0 {
			twr *= curr.Value / denom
		}
		prev = curr
	}

	return (twr - 1) * 100
}
