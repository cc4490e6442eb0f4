package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimplePeriodReturn(t *testing.T) {
	testCases := []struct {
		name     string
		start    float64
		end      float64
		expected float64
	}{
		{"gain", 100, 110, 10},
		{"loss", 100, 90, -10},
		{"flat", 100, 100, 0},
		{"zero start yields zero", 0, 100, 0},
		{"negative start yields zero", -50, 100, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, SimplePeriodReturn(tc.start, tc.end), 1e-9)
		})
	}
}

func TestCostBasisReturn(t *testing.T) {
	assert.InDelta(t, 7.142857, CostBasisReturn(1950000, 1820000), 1e-5)
	assert.Equal(t, 0.0, CostBasisReturn(1950000, 0))
}

func TestTimeWeightedReturn_NoCashFlow(t *testing.T) {
	// ((110/100) * (121/110) - 1) * 100 = 21%
	points := []SummaryPoint{
		{Date: "2024-01-01", Value: 100, NetInvested: 100},
		{Date: "2024-01-02", Value: 110, NetInvested: 100},
		{Date: "2024-01-03", Value: 121, NetInvested: 100},
	}

	assert.InDelta(t, 21.0, TimeWeightedReturn(points), 1e-9)
}

func TestTimeWeightedReturn_WithDeposit(t *testing.T) {
	// Day 2: 50 deposited at start of period, so the sub-period return is
	// 165 / (100 + 50) - 1 = 10%.
	points := []SummaryPoint{
		{Date: "2024-01-01", Value: 100, NetInvested: 100},
		{Date: "2024-01-02", Value: 165, NetInvested: 150},
	}

	assert.InDelta(t, 10.0, TimeWeightedReturn(points), 1e-9)
}

func TestTimeWeightedReturn_UnsortedInput(t *testing.T) {
	points := []SummaryPoint{
		{Date: "2024-01-03", Value: 121, NetInvested: 100},
		{Date: "2024-01-01", Value: 100, NetInvested: 100},
		{Date: "2024-01-02", Value: 110, NetInvested: 100},
	}

	assert.InDelta(t, 21.0, TimeWeightedReturn(points), 1e-9)
}

func TestTimeWeightedReturn_ZeroDenominatorSkipped(t *testing.T) {
	// Full withdrawal leaves an adjusted denominator of zero; the sub-period
	// must contribute a factor of 1, not a division error.
	points := []SummaryPoint{
		{Date: "2024-01-01", Value: 100, NetInvested: 100},
		{Date: "2024-01-02", Value: 0, NetInvested: 0},
		{Date: "2024-01-03", Value: 50, NetInvested: 50},
	}

	assert.NotPanics(t, func() { TimeWeightedReturn(points) })
	// Period 1->2: denom = 100 + (0-100) = 0, skipped.
	// Period 2->3: denom = 0 + 50 = 50, factor 50/50 = 1.
	assert.InDelta(t, 0.0, TimeWeightedReturn(points), 1e-9)
}

func TestTimeWeightedReturn_DegenerateSeries(t *testing.T) {
	assert.Equal(t, 0.0, TimeWeightedReturn(nil))
	assert.Equal(t, 0.0, TimeWeightedReturn([]SummaryPoint{{Date: "2024-01-01", Value: 100}}))
}
