package returns

import (
	"errors"
	"testing"
	"time"

	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePeriodNamed(t *testing.T) {
	// Mid-March anchor so month arithmetic has no edge cases.
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		period string
		start  string
	}{
		{"1D", "2024-03-14"},
		{"1W", "2024-03-08"},
		{"1M", "2024-02-15"},
		{"3M", "2023-12-15"},
		{"6M", "2023-09-15"},
		{"1Y", "2023-03-15"},
		{"YTD", "2024-01-01"},
		{"MTD", "2024-03-01"},
		{"something-else", "2024-02-15"}, // unknown falls back to 1M
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			start, end, err := ResolvePeriod(PeriodSpec{Period: tt.period}, now)
			require.NoError(t, err)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, "2024-03-15", end)
		})
	}
}

func TestResolvePeriodCustom(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	start, end, err := ResolvePeriod(PeriodSpec{Period: PeriodCustom, Start: "2024-01-01", End: "2024-02-01"}, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", start)
	assert.Equal(t, "2024-02-01", end)
}

func TestResolvePeriodCustomMissingBounds(t *testing.T) {
	now := time.Now()

	for _, spec := range []PeriodSpec{
		{Period: PeriodCustom, Start: "2024-01-01"},
		{Period: PeriodCustom, End: "2024-02-01"},
		{Period: PeriodCustom},
		{Period: PeriodCustom, Start: "not-a-date", End: "2024-02-01"},
	} {
		_, _, err := ResolvePeriod(spec, now)
		var verr *domain.ValidationError
		assert.True(t, errors.As(err, &verr), "spec %+v should fail validation", spec)
	}
}
