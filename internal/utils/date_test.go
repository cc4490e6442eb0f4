package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 15, d.Day())

	_, err = ParseDate("15/03/2024")
	assert.Error(t, err)
}

func TestEachDay(t *testing.T) {
	start, _ := ParseDate("2024-01-30")
	end, _ := ParseDate("2024-02-02")

	var days []string
	EachDay(start, end, func(date string) { days = append(days, date) })

	assert.Equal(t, []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"}, days)
}

func TestEachDay_StartAfterEnd(t *testing.T) {
	start, _ := ParseDate("2024-02-02")
	end, _ := ParseDate("2024-01-30")

	called := false
	EachDay(start, end, func(string) { called = true })
	assert.False(t, called)
}
