package returns

import (
	"fmt"
	"sort"
	"time"

	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/jaehoon-ko/wonfolio/internal/modules/snapshots"
	"github.com/jaehoon-ko/wonfolio/internal/modules/summary"
	"github.com/jaehoon-ko/wonfolio/internal/utils"
	"github.com/jaehoon-ko/wonfolio/pkg/formulas"
	"github.com/rs/zerolog"
)

// Grouping keys for the optional breakdown section.
const (
	GroupByInstrument = "instrument"
	GroupByBrokerage  = "brokerage"
)

// PeriodQuery is one period-return request.
type PeriodQuery struct {
	Spec       PeriodSpec
	GroupBy    string // "", "instrument", or "brokerage"
	Benchmarks string // benchmark selection, see domain.ParseBenchmarkSelection
}

// PortfolioSection reports portfolio performance between the first and last
// summary rows available inside the range.
type PortfolioSection struct {
	StartDate             string  `json:"start_date,omitempty"`
	EndDate               string  `json:"end_date,omitempty"`
	StartValueKRW         float64 `json:"start_value_krw"`
	EndValueKRW           float64 `json:"end_value_krw"`
	SimpleReturnPct       float64 `json:"simple_return_pct"`
	TimeWeightedReturnPct float64 `json:"time_weighted_return_pct"`
	ProfitLossKRW         float64 `json:"profit_loss_krw"`
	NetInvestedKRW        float64 `json:"net_invested_krw"`
	HasData               bool    `json:"has_data"`
}

// BenchmarkSection reports one index's move over the range, using
// backward-filled baseline and end values.
type BenchmarkSection struct {
	Index      string  `json:"index"`
	StartClose float64 `json:"start_close"`
	EndClose   float64 `json:"end_close"`
	ReturnPct  float64 `json:"return_pct"`
}

// SeriesPoint is one charting point: cumulative returns since each series'
// own baseline. Nil means no value is known for that day.
type SeriesPoint struct {
	Date       string              `json:"date"`
	Portfolio  *float64            `json:"portfolio,omitempty"`
	Benchmarks map[string]*float64 `json:"benchmarks,omitempty"`
}

// BreakdownEntry is one grouping key's return between its first and last
// snapshot values inside the range.
type BreakdownEntry struct {
	Key           string  `json:"key"`
	Name          string  `json:"name,omitempty"`
	StartValueKRW float64 `json:"start_value_krw"`
	EndValueKRW   float64 `json:"end_value_krw"`
	ReturnPct     float64 `json:"return_pct"`
}

// RiskSection carries dispersion stats over the range's daily values.
type RiskSection struct {
	AnnualizedVolatilityPct float64 `json:"annualized_volatility_pct"`
	MaxDrawdownPct          float64 `json:"max_drawdown_pct"`
}

// PeriodReport is the full answer to a PeriodQuery.
type PeriodReport struct {
	Period     string             `json:"period"`
	StartDate  string             `json:"start_date"`
	EndDate    string             `json:"end_date"`
	Portfolio  PortfolioSection   `json:"portfolio"`
	Benchmarks []BenchmarkSection `json:"benchmarks"`
	Series     []SeriesPoint      `json:"series"`
	Breakdown  []BreakdownEntry   `json:"breakdown,omitempty"`
	Risk       *RiskSection       `json:"risk,omitempty"`
}

// Service computes period reports from stored summaries and snapshots.
type Service struct {
	summaries  *summary.Repository
	snapshots  *snapshots.Repository
	benchmarks domain.BenchmarkSource
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates a period query service. benchmarks may be nil; benchmark
// sections are then omitted.
func NewService(
	summaryRepo *summary.Repository,
	snapshotRepo *snapshots.Repository,
	benchmarks domain.BenchmarkSource,
	log zerolog.Logger,
) *Service {
	return &Service{
		summaries:  summaryRepo,
		snapshots:  snapshotRepo,
		benchmarks: benchmarks,
		now:        time.Now,
		log:        log.With().Str("component", "returns_service").Logger(),
	}
}

// PeriodReturns resolves the query's date range and assembles the report.
// A range with no summary rows yields a zeroed portfolio section, not an
// error; benchmark sections are still populated when available.
func (s *Service) PeriodReturns(q PeriodQuery) (*PeriodReport, error) {
	start, end, err := ResolvePeriod(q.Spec, s.now())
	if err != nil {
		return nil, err
	}

	rows, err := s.summaries.GetRange(start, end)
	if err != nil {
		return nil, err
	}

	report := &PeriodReport{
		Period:    q.Spec.Period,
		StartDate: start,
		EndDate:   end,
		Portfolio: portfolioSection(rows),
	}

	series := s.fetchBenchmarkSeries(q.Benchmarks, start, end)
	report.Benchmarks = benchmarkSections(series, start, end)
	report.Series = dailySeries(rows, series, start, end)

	if q.GroupBy != "" {
		report.Breakdown, err = s.breakdown(q.GroupBy, start, end)
		if err != nil {
			return nil, err
		}
	}

	if risk := riskSection(rows); risk != nil {
		report.Risk = risk
	}

	s.log.Debug().
		Str("period", q.Spec.Period).
		Str("start", start).
		Str("end", end).
		Int("summaries", len(rows)).
		Msg("Period report built")
	return report, nil
}

// DailySummaries returns the ordered summary rows in [start, end]. An empty
// range is a NotFoundError, unlike PeriodReturns which degrades to zeroes.
func (s *Service) DailySummaries(start, end string) ([]domain.DailySummary, error) {
	if _, err := utils.ParseDate(start); err != nil {
		return nil, &domain.ValidationError{Field: "start", Reason: "invalid date: " + start}
	}
	if _, err := utils.ParseDate(end); err != nil {
		return nil, &domain.ValidationError{Field: "end", Reason: "invalid date: " + end}
	}

	rows, err := s.summaries.GetRange(start, end)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.NotFoundError{Resource: fmt.Sprintf("summaries in %s..%s", start, end)}
	}
	return rows, nil
}

func portfolioSection(rows []domain.DailySummary) PortfolioSection {
	if len(rows) == 0 {
		return PortfolioSection{}
	}

	first, last := rows[0], rows[len(rows)-1]
	points := make([]formulas.SummaryPoint, len(rows))
	for i, r := range rows {
		points[i] = formulas.SummaryPoint{Date: r.Date, Value: r.TotalValueKRW, NetInvested: r.NetInvestedKRW}
	}

	return PortfolioSection{
		StartDate:             first.Date,
		EndDate:               last.Date,
		StartValueKRW:         first.TotalValueKRW,
		EndValueKRW:           last.TotalValueKRW,
		SimpleReturnPct:       formulas.SimplePeriodReturn(first.TotalValueKRW, last.TotalValueKRW),
		TimeWeightedReturnPct: formulas.TimeWeightedReturn(points),
		ProfitLossKRW:         last.ProfitLossKRW,
		NetInvestedKRW:        last.NetInvestedKRW,
		HasData:               true,
	}
}

// fetchBenchmarkSeries loads each selected index's series for the range.
// Failures are absorbed: a missing index is simply absent from the result.
func (s *Service) fetchBenchmarkSeries(selection, start, end string) map[domain.BenchmarkIndex]domain.BenchmarkSeries {
	if s.benchmarks == nil {
		return nil
	}

	out := make(map[domain.BenchmarkIndex]domain.BenchmarkSeries)
	for _, index := range domain.ParseBenchmarkSelection(selection) {
		series, err := s.benchmarks.GetSeries(index, start, end)
		if err != nil {
			s.log.Warn().Err(err).Str("index", string(index)).Msg("Benchmark series unavailable, skipping")
			continue
		}
		if len(series) > 0 {
			out[index] = series
		}
	}
	return out
}

func benchmarkSections(series map[domain.BenchmarkIndex]domain.BenchmarkSeries, start, end string) []BenchmarkSection {
	var sections []BenchmarkSection
	for _, index := range domain.AllBenchmarks {
		sr, ok := series[index]
		if !ok {
			continue
		}
		startClose, _ := sr.ValueOnOrBefore(start)
		endClose, _ := sr.ValueOnOrBefore(end)
		sections = append(sections, BenchmarkSection{
			Index:      string(index),
			StartClose: startClose,
			EndClose:   endClose,
			ReturnPct:  formulas.SimplePeriodReturn(startClose, endClose),
		})
	}
	return sections
}

// dailySeries walks every calendar day in the range and emits a point when
// the portfolio or any benchmark has a value that day. Returns are cumulative
// since each series' own first available value.
func dailySeries(rows []domain.DailySummary, series map[domain.BenchmarkIndex]domain.BenchmarkSeries, start, end string) []SeriesPoint {
	startT, err := utils.ParseDate(start)
	if err != nil {
		return nil
	}
	endT, err := utils.ParseDate(end)
	if err != nil {
		return nil
	}

	valueByDate := make(map[string]float64, len(rows))
	for _, r := range rows {
		valueByDate[r.Date] = r.TotalValueKRW
	}
	var portfolioBase float64
	if len(rows) > 0 {
		portfolioBase = rows[0].TotalValueKRW
	}

	baselines := make(map[domain.BenchmarkIndex]float64, len(series))
	for index, sr := range series {
		base, ok := sr.ValueOnOrBefore(start)
		if ok {
			baselines[index] = base
		}
	}

	var points []SeriesPoint
	utils.EachDay(startT, endT, func(date string) {
		point := SeriesPoint{Date: date}
		hasData := false

		if value, ok := valueByDate[date]; ok && portfolioBase > 0 {
			ret := formulas.SimplePeriodReturn(portfolioBase, value)
			point.Portfolio = &ret
			hasData = true
		}

		for index, sr := range series {
			close, ok := sr.Value(date)
			if !ok {
				continue
			}
			base, ok := baselines[index]
			if !ok || base <= 0 {
				continue
			}
			if point.Benchmarks == nil {
				point.Benchmarks = make(map[string]*float64)
			}
			ret := formulas.SimplePeriodReturn(base, close)
			point.Benchmarks[string(index)] = &ret
			hasData = true
		}

		if hasData {
			points = append(points, point)
		}
	})
	return points
}

// breakdown groups first/last snapshot values in range by instrument or
// brokerage. Keys with a zero or unknown start value are excluded, and the
// result is sorted descending by return.
func (s *Service) breakdown(groupBy, start, end string) ([]BreakdownEntry, error) {
	if groupBy != GroupByInstrument && groupBy != GroupByBrokerage {
		return nil, &domain.ValidationError{Field: "group_by", Reason: "must be instrument or brokerage"}
	}

	bounds, err := s.snapshots.RangeBounds(start, end)
	if err != nil {
		return nil, err
	}

	var entries []BreakdownEntry
	if groupBy == GroupByInstrument {
		for _, b := range bounds {
			if b.StartValue <= 0 {
				continue
			}
			key := b.Symbol
			if key == "" {
				key = b.Name
			}
			entries = append(entries, BreakdownEntry{
				Key:           key,
				Name:          b.Name,
				StartValueKRW: b.StartValue,
				EndValueKRW:   b.EndValue,
				ReturnPct:     formulas.SimplePeriodReturn(b.StartValue, b.EndValue),
			})
		}
	} else {
		type agg struct{ start, end float64 }
		byBrokerage := make(map[string]*agg)
		for _, b := range bounds {
			key := b.Brokerage
			if key == "" {
				continue
			}
			a, ok := byBrokerage[key]
			if !ok {
				a = &agg{}
				byBrokerage[key] = a
			}
			a.start += b.StartValue
			a.end += b.EndValue
		}
		for key, a := range byBrokerage {
			if a.start <= 0 {
				continue
			}
			entries = append(entries, BreakdownEntry{
				Key:           key,
				StartValueKRW: a.start,
				EndValueKRW:   a.end,
				ReturnPct:     formulas.SimplePeriodReturn(a.start, a.end),
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ReturnPct != entries[j].ReturnPct {
			return entries[i].ReturnPct > entries[j].ReturnPct
		}
		return entries[i].Key < entries[j].Key
	})
	return entries, nil
}

func riskSection(rows []domain.DailySummary) *RiskSection {
	if len(rows) < 2 {
		return nil
	}
	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.TotalValueKRW
	}
	return &RiskSection{
		AnnualizedVolatilityPct: formulas.AnnualizedVolatility(formulas.DailyReturns(values)),
		MaxDrawdownPct:          formulas.MaxDrawdown(values),
	}
}
