package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDailyReturns(t *testing.T) {
	returns := DailyReturns([]float64{100, 110, 99})

	assert.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)
}

func TestDailyReturns_Short(t *testing.T) {
	assert.Empty(t, DailyReturns([]float64{100}))
	assert.Empty(t, DailyReturns(nil))
}

func TestMaxDrawdown(t *testing.T) {
	// Peak 120, trough 90: drawdown 25%.
	dd := MaxDrawdown([]float64{100, 120, 90, 110})
	assert.InDelta(t, 25.0, dd, 1e-9)
}

func TestMaxDrawdown_Monotonic(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown([]float64{100, 110, 120}))
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}

func TestAnnualizedVolatility_Empty(t *testing.T) {
	assert.Equal(t, 0.0, AnnualizedVolatility(nil))
}
