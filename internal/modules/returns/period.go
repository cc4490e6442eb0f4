// Package returns answers period-return queries: portfolio performance over a
// named or custom date range, compared against benchmark indices, with an
// optional per-instrument or per-brokerage breakdown.
package returns

import (
	"time"

	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/jaehoon-ko/wonfolio/internal/utils"
)

// Named periods accepted by ResolvePeriod.
const (
	Period1D     = "1D"
	Period1W     = "1W"
	Period1M     = "1M"
	Period3M     = "3M"
	Period6M     = "6M"
	Period1Y     = "1Y"
	PeriodYTD    = "YTD"
	PeriodMTD    = "MTD"
	PeriodCustom = "custom"
)

// PeriodSpec names a date range. For "custom", Start and End must both be set
// (YYYY-MM-DD); for named periods they are ignored.
type PeriodSpec struct {
	Period string `json:"period"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

// ResolvePeriod turns a PeriodSpec into concrete [start, end] dates, with end
// anchored at now. A custom spec missing either bound is a ValidationError;
// an unrecognized period name falls back to 1M.
func ResolvePeriod(spec PeriodSpec, now time.Time) (start, end string, err error) {
	if spec.Period == PeriodCustom {
		if spec.Start == "" || spec.End == "" {
			return "", "", &domain.ValidationError{Field: "period", Reason: "custom period requires both start and end dates"}
		}
		if _, err := utils.ParseDate(spec.Start); err != nil {
			return "", "", &domain.ValidationError{Field: "start", Reason: "invalid date: " + spec.Start}
		}
		if _, err := utils.ParseDate(spec.End); err != nil {
			return "", "", &domain.ValidationError{Field: "end", Reason: "invalid date: " + spec.End}
		}
		return spec.Start, spec.End, nil
	}

	endDate := now
	var startDate time.Time
	switch spec.Period {
	case Period1D:
		startDate = endDate.AddDate(0, 0, -1)
	case Period1W:
		startDate = endDate.AddDate(0, 0, -7)
	case Period1M:
		startDate = endDate.AddDate(0, -1, 0)
	case Period3M:
		startDate = endDate.AddDate(0, -3, 0)
	case Period6M:
		startDate = endDate.AddDate(0, -6, 0)
	case Period1Y:
		startDate = endDate.AddDate(-1, 0, 0)
	case PeriodYTD:
		startDate = time.Date(endDate.Year(), 1, 1, 0, 0, 0, 0, endDate.Location())
	case PeriodMTD:
		startDate = time.Date(endDate.Year(), endDate.Month(), 1, 0, 0, 0, 0, endDate.Location())
	default:
		startDate = endDate.AddDate(0, -1, 0)
	}

	return utils.FormatDate(startDate), utils.FormatDate(endDate), nil
}
