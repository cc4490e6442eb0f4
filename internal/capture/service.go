// Package capture drives the daily valuation pipeline: pull holdings from
// every configured feed, fold in manually tracked assets, write one snapshot
// row per instrument, then rebuild the day's summary.
package capture

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/jaehoon-ko/wonfolio/internal/modules/manual"
	"github.com/jaehoon-ko/wonfolio/internal/modules/registry"
	"github.com/jaehoon-ko/wonfolio/internal/modules/snapshots"
	"github.com/jaehoon-ko/wonfolio/internal/modules/summary"
	"github.com/jaehoon-ko/wonfolio/internal/utils"
)

// ManualBrokerage labels hand-tracked assets that carry no brokerage of
// their own.
const ManualBrokerage = "manual"

// Service captures one day's portfolio state.
type Service struct {
	feeds      []domain.HoldingsFeed
	registry   *registry.Repository
	snapshots  *snapshots.Repository
	manual     *manual.Repository
	aggregator *summary.Aggregator
	log        zerolog.Logger

	now func() time.Time
}

// NewService creates a capture service. Feeds may be empty; manual assets
// alone are enough to produce snapshots.
func NewService(
	feeds []domain.HoldingsFeed,
	registryRepo *registry.Repository,
	snapshotRepo *snapshots.Repository,
	manualRepo *manual.Repository,
	aggregator *summary.Aggregator,
	log zerolog.Logger,
) *Service {
	return &Service{
		feeds:      feeds,
		registry:   registryRepo,
		snapshots:  snapshotRepo,
		manual:     manualRepo,
		aggregator: aggregator,
		log:        log.With().Str("component", "capture").Logger(),
		now:        time.Now,
	}
}

// Result reports what one capture run wrote.
type Result struct {
	Date        string               `json:"date"`
	Snapshots   int                  `json:"snapshots"`
	FailedFeeds []string             `json:"failed_feeds,omitempty"`
	Summary     *domain.DailySummary `json:"summary"`
}

// CaptureSnapshot runs the full pipeline for one date. A feed that cannot be
// reached degrades the run to the remaining feeds plus manual assets; the run
// fails outright only when every source came up empty-handed.
func (s *Service) CaptureSnapshot(date string) (*Result, error) {
	if date == "" {
		date = utils.Today()
	}
	if _, err := utils.ParseDate(date); err != nil {
		return nil, &domain.ValidationError{Field: "date", Reason: "invalid date: " + date}
	}

	runID := uuid.NewString()[:8]
	log := s.log.With().Str("run_id", runID).Str("date", date).Logger()
	log.Info().Int("feeds", len(s.feeds)).Msg("Capture started")

	capturedAt := s.now()
	fxRates := map[string]float64{"KRW": 1.0}

	type sourced struct {
		holding   domain.Holding
		brokerage string
	}
	var observed []sourced
	var failedFeeds []string

	for _, feed := range s.feeds {
		batch, err := feed.Fetch()
		if err != nil {
			log.Warn().Err(err).Str("feed", feed.Name()).Msg("Holdings feed failed, degrading")
			failedFeeds = append(failedFeeds, feed.Name())
			continue
		}
		for currency, rate := range batch.FXRates {
			fxRates[currency] = rate
		}
		for _, h := range batch.Holdings {
			observed = append(observed, sourced{holding: h, brokerage: batch.Brokerage})
		}
	}

	manualAssets, err := s.manual.GetAll()
	if err != nil {
		return nil, err
	}
	for _, a := range manualAssets {
		observed = append(observed, sourced{holding: manualHolding(a), brokerage: brokerageOr(a.Brokerage)})
	}

	if len(observed) == 0 && len(failedFeeds) > 0 {
		return nil, &domain.ExternalFetchError{
			Source: "capture",
			Err:    fmt.Errorf("all %d holdings feeds failed and no manual assets exist", len(failedFeeds)),
		}
	}

	written := 0
	for _, o := range observed {
		h := o.holding

		rate, ok := fxRates[h.Currency]
		if !ok {
			if h.Currency == "" {
				rate = 1.0
			} else {
				log.Warn().Str("symbol", h.Symbol).Str("currency", h.Currency).Msg("No FX rate for holding, skipping")
				continue
			}
		}

		instrumentID, err := s.registry.Resolve(registry.ResolveParams{
			Symbol:     h.Symbol,
			Name:       h.Name,
			AssetClass: h.AssetClass,
			Currency:   h.Currency,
			Brokerage:  o.brokerage,
			Exchange:   h.Exchange,
		})
		if err != nil {
			log.Error().Err(err).Str("symbol", h.Symbol).Msg("Failed to resolve instrument")
			continue
		}

		valueKRW := h.EvalAmountKRW
		if valueKRW <= 0 {
			valueKRW = h.Quantity * h.CurrentPrice * rate
		}

		snap := domain.Snapshot{
			Date:         date,
			InstrumentID: instrumentID,
			CapturedAt:   capturedAt,
			Quantity:     h.Quantity,
			ClosePrice:   h.CurrentPrice,
			AvgCost:      h.AvgCost,
			FXRate:       rate,
			ValueKRW:     valueKRW,
			PnLKRW:       h.PnLKRW,
		}
		if err := s.snapshots.Upsert(snap); err != nil {
			log.Error().Err(err).Str("symbol", h.Symbol).Msg("Failed to upsert snapshot")
			continue
		}
		written++
	}

	sum, err := s.aggregator.Rebuild(date, capturedAt)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("snapshots", written).
		Int("failed_feeds", len(failedFeeds)).
		Float64("total_value_krw", sum.TotalValueKRW).
		Msg("Capture finished")

	return &Result{
		Date:        date,
		Snapshots:   written,
		FailedFeeds: failedFeeds,
		Summary:     sum,
	}, nil
}

// manualHolding maps a hand-tracked asset onto the holdings shape so the rest
// of the pipeline treats it like any brokerage position.
func manualHolding(a domain.ManualAsset) domain.Holding {
	return domain.Holding{
		Symbol:       a.Symbol,
		Name:         a.Name,
		AssetClass:   a.AssetClass,
		Quantity:     a.Quantity,
		CurrentPrice: a.CurrentPrice,
		AvgCost:      a.BuyPrice,
		Currency:     a.Currency,
	}
}

func brokerageOr(brokerage string) string {
	if brokerage == "" {
		return ManualBrokerage
	}
	return brokerage
}
