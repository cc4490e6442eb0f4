package summary

import (
	"fmt"
	"time"

	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/jaehoon-ko/wonfolio/internal/modules/deposits"
	"github.com/jaehoon-ko/wonfolio/internal/modules/snapshots"
	"github.com/jaehoon-ko/wonfolio/internal/utils"
	"github.com/jaehoon-ko/wonfolio/pkg/formulas"
	"github.com/rs/zerolog"
)

// Aggregator rebuilds the daily rollup from snapshots and the deposit ledger.
// Rebuilding is idempotent: running it twice for the same date produces the
// same row.
type Aggregator struct {
	snapshots  *snapshots.Repository
	deposits   *deposits.Repository
	summaries  *Repository
	benchmarks domain.BenchmarkSource
	log        zerolog.Logger
}

// NewAggregator creates an aggregator. benchmarks may be nil, in which case
// close columns are left empty.
func NewAggregator(
	snapshotRepo *snapshots.Repository,
	depositRepo *deposits.Repository,
	summaryRepo *Repository,
	benchmarks domain.BenchmarkSource,
	log zerolog.Logger,
) *Aggregator {
	return &Aggregator{
		snapshots:  snapshotRepo,
		deposits:   depositRepo,
		summaries:  summaryRepo,
		benchmarks: benchmarks,
		log:        log.With().Str("component", "summary_aggregator").Logger(),
	}
}

// Rebuild recomputes and stores the summary row for the given date.
//
// Total value and P&L are sums over that day's snapshots; cost basis is
// avg_cost * quantity * fx_rate per snapshot. Return rate is P&L over cost,
// 0 when there is no cost basis. Benchmark closes are best effort: a fetch
// failure logs a warning and leaves the column empty rather than failing
// the rebuild.
func (a *Aggregator) Rebuild(date string, capturedAt time.Time) (*domain.DailySummary, error) {
	snaps, err := a.snapshots.GetByDate(date)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots for %s: %w", date, err)
	}

	var totalValue, totalCost float64
	for _, s := range snaps {
		totalValue += s.ValueKRW
		totalCost += s.AvgCost * s.Quantity * s.FXRate
	}

	netInvested, err := a.deposits.TotalThrough(date)
	if err != nil {
		return nil, fmt.Errorf("failed to total deposits through %s: %w", date, err)
	}

	summary := domain.DailySummary{
		Date:           date,
		CapturedAt:     capturedAt.UTC(),
		TotalValueKRW:  totalValue,
		TotalCostKRW:   totalCost,
		ProfitLossKRW:  totalValue - totalCost,
		ReturnRatePct:  formulas.CostBasisReturn(totalValue, totalCost),
		NetInvestedKRW: netInvested,
	}

	summary.KospiClose = a.fetchClose(domain.BenchmarkKospi, date)
	summary.SP500Close = a.fetchClose(domain.BenchmarkSP500, date)
	summary.NasdaqClose = a.fetchClose(domain.BenchmarkNasdaq, date)

	if err := a.summaries.Upsert(summary); err != nil {
		return nil, err
	}

	a.log.Info().
		Str("date", date).
		Int("snapshots", len(snaps)).
		Float64("total_value_krw", totalValue).
		Float64("return_rate_pct", summary.ReturnRatePct).
		Msg("Daily summary rebuilt")

	return &summary, nil
}

// fetchClose resolves the index close for the rebuild date, falling back to
// the nearest earlier trading day within two weeks. Rebuilding a past date
// must stamp that day's close, not today's.
func (a *Aggregator) fetchClose(index domain.BenchmarkIndex, date string) *float64 {
	if a.benchmarks == nil {
		return nil
	}
	day, err := utils.ParseDate(date)
	if err != nil {
		a.log.Warn().Err(err).Str("index", string(index)).Msg("Benchmark close unavailable, leaving empty")
		return nil
	}
	start := utils.FormatDate(day.AddDate(0, 0, -14))
	series, err := a.benchmarks.GetSeries(index, start, date)
	if err != nil {
		a.log.Warn().Err(err).Str("index", string(index)).Msg("Benchmark close unavailable, leaving empty")
		return nil
	}
	close, ok := series.ValueOnOrBefore(date)
	if !ok {
		a.log.Warn().Str("index", string(index)).Str("date", date).Msg("No benchmark close on or before date, leaving empty")
		return nil
	}
	return &close
}
