// Package domain contains the core types shared across modules.
// The domain layer is pure: no database, HTTP, or logging dependencies.
package domain

import (
	"sort"
	"time"
)

// AssetClass is the closed set of asset categories tracked by the engine.
type AssetClass string

const (
	AssetDomesticEquity AssetClass = "STOCK_DOMESTIC"
	AssetOverseasEquity AssetClass = "STOCK_OVERSEAS"
	AssetCashKRW        AssetClass = "CASH_KRW"
	AssetCashUSD        AssetClass = "CASH_USD"
	AssetCrypto         AssetClass = "CRYPTO"
	AssetManual         AssetClass = "MANUAL" // Real estate and other hand-tracked assets
)

// AllAssetClasses lists every valid asset class, used for validation and
// exhaustive iteration.
var AllAssetClasses = []AssetClass{
	AssetDomesticEquity,
	AssetOverseasEquity,
	AssetCashKRW,
	AssetCashUSD,
	AssetCrypto,
	AssetManual,
}

// Valid reports whether the asset class is one of the known values.
func (a AssetClass) Valid() bool {
	for _, c := range AllAssetClasses {
		if a == c {
			return true
		}
	}
	return false
}

// ParseAssetClass maps loose external spellings to an AssetClass.
// Unknown values return a ValidationError.
func ParseAssetClass(s string) (AssetClass, error) {
	switch s {
	case "STOCK", "STOCK_DOMESTIC":
		return AssetDomesticEquity, nil
	case "STOCK_OVERSEAS":
		return AssetOverseasEquity, nil
	case "CASH", "CASH_KRW":
		return AssetCashKRW, nil
	case "CASH_USD":
		return AssetCashUSD, nil
	case "CRYPTO":
		return AssetCrypto, nil
	case "REAL_ESTATE", "MANUAL":
		return AssetManual, nil
	default:
		return "", &ValidationError{Field: "asset_class", Reason: "unknown asset class: " + s}
	}
}

// Instrument is the identity record for a tradable or manually tracked asset.
// Identity key is (symbol, asset class, brokerage); symbol-less assets are
// keyed by display name instead of symbol.
type Instrument struct {
	ID         int64      `json:"id"`
	Symbol     string     `json:"symbol"` // Empty for symbol-less assets (e.g. real estate)
	Name       string     `json:"name"`
	AssetClass AssetClass `json:"asset_class"`
	Currency   string     `json:"currency"`
	Brokerage  string     `json:"brokerage"`
	Exchange   string     `json:"exchange"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Snapshot is one day's valuation record for one instrument.
// Unique on (Date, InstrumentID); a later capture for the same day overwrites
// the earlier one.
type Snapshot struct {
	ID           int64     `json:"id"`
	Date         string    `json:"date"` // YYYY-MM-DD
	InstrumentID int64     `json:"instrument_id"`
	CapturedAt   time.Time `json:"captured_at"`
	Quantity     float64   `json:"quantity"`
	ClosePrice   float64   `json:"close_price"` // In instrument currency
	AvgCost      float64   `json:"avg_cost"`    // Average cost basis per unit
	FXRate       float64   `json:"fx_rate"`     // Instrument currency -> KRW
	ValueKRW     float64   `json:"value_krw"`
	PnLKRW       float64   `json:"pnl_krw"`
}

// DailySummary is the portfolio-wide rollup for one day.
// Derived entirely from snapshots plus deposit history; never hand-edited.
type DailySummary struct {
	Date           string    `json:"date"` // Primary key, YYYY-MM-DD
	CapturedAt     time.Time `json:"captured_at"`
	TotalValueKRW  float64   `json:"total_value_krw"`
	TotalCostKRW   float64   `json:"total_cost_krw"`
	ProfitLossKRW  float64   `json:"profit_loss_krw"`
	ReturnRatePct  float64   `json:"return_rate_pct"`
	NetInvestedKRW float64   `json:"net_invested_krw"`
	KospiClose     *float64  `json:"kospi_close,omitempty"`
	SP500Close     *float64  `json:"sp500_close,omitempty"`
	NasdaqClose    *float64  `json:"nasdaq_close,omitempty"`
}

// BenchmarkClose returns the stored close for the given index, if present.
func (s DailySummary) BenchmarkClose(index BenchmarkIndex) *float64 {
	switch index {
	case BenchmarkKospi:
		return s.KospiClose
	case BenchmarkSP500:
		return s.SP500Close
	case BenchmarkNasdaq:
		return s.NasdaqClose
	}
	return nil
}

// Deposit is one entry in the append-only external cash flow ledger.
// Positive amounts are deposits, negative are withdrawals. Amounts are KRW.
type Deposit struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	AmountKRW float64   `json:"amount_krw"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// ManualAsset is a hand-entered holding that the capture cycle folds into
// snapshots alongside brokerage feeds.
type ManualAsset struct {
	ID           int64      `json:"id"`
	Symbol       string     `json:"symbol"`
	Name         string     `json:"name"`
	AssetClass   AssetClass `json:"asset_class"`
	Currency     string     `json:"currency"`
	Brokerage    string     `json:"brokerage"`
	Quantity     float64    `json:"quantity"`
	BuyPrice     float64    `json:"buy_price"`
	CurrentPrice float64    `json:"current_price"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// BenchmarkIndex identifies a tracked benchmark index.
type BenchmarkIndex string

const (
	BenchmarkKospi  BenchmarkIndex = "kospi"
	BenchmarkSP500  BenchmarkIndex = "sp500"
	BenchmarkNasdaq BenchmarkIndex = "nasdaq"
)

// AllBenchmarks lists every tracked benchmark index.
var AllBenchmarks = []BenchmarkIndex{BenchmarkKospi, BenchmarkSP500, BenchmarkNasdaq}

// ParseBenchmarkSelection resolves a selection string ("kospi", "sp500",
// "nasdaq", "both", "all", "none") to the concrete index set. "both" is the
// historical spelling for kospi+sp500 and is kept for compatibility.
func ParseBenchmarkSelection(s string) []BenchmarkIndex {
	switch s {
	case "none":
		return nil
	case "kospi":
		return []BenchmarkIndex{BenchmarkKospi}
	case "sp500":
		return []BenchmarkIndex{BenchmarkSP500}
	case "nasdaq":
		return []BenchmarkIndex{BenchmarkNasdaq}
	case "both":
		return []BenchmarkIndex{BenchmarkKospi, BenchmarkSP500}
	default:
		return AllBenchmarks
	}
}

// BenchmarkSeries is a sparse mapping from trading date (YYYY-MM-DD) to index
// closing value. Trading calendars rarely align with capture calendars, so
// lookups use backward fill.
type BenchmarkSeries map[string]float64

// ValueOnOrBefore returns the closing value on the given date, or on the
// nearest earlier date with data. If the series has no value on or before the
// date it falls back to the earliest available value. Returns false only for
// an empty series.
func (b BenchmarkSeries) ValueOnOrBefore(date string) (float64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	if v, ok := b[date]; ok {
		return v, true
	}

	dates := b.sortedDates()
	// Walk backwards to the nearest earlier trading day.
	for i := len(dates) - 1; i >= 0; i-- {
		if dates[i] <= date {
			return b[dates[i]], true
		}
	}
	// No value on or before: fall back to the earliest point in the series.
	return b[dates[0]], true
}

// Value returns the exact close for the date, if one exists.
func (b BenchmarkSeries) Value(date string) (float64, bool) {
	v, ok := b[date]
	return v, ok
}

// Latest returns the most recent close in the series.
func (b BenchmarkSeries) Latest() (float64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	dates := b.sortedDates()
	return b[dates[len(dates)-1]], true
}

func (b BenchmarkSeries) sortedDates() []string {
	dates := make([]string, 0, len(b))
	for d := range b {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Holding is the fixed, typed shape every external balance feed is converted
// into at the collaborator boundary. The engine never sees untyped payloads.
type Holding struct {
	Symbol       string
	Name         string
	AssetClass   AssetClass
	Quantity     float64
	CurrentPrice float64 // In Currency
	AvgCost      float64 // In Currency
	Currency     string
	Exchange     string
	// EvalAmountKRW is the brokerage-reported valuation in KRW, when the feed
	// provides one. Zero means "compute from quantity * price * fx".
	EvalAmountKRW float64
	PnLKRW        float64
}

// HoldingsBatch is one feed refresh: the holdings plus the FX rates reported
// alongside them (foreign currency -> KRW).
type HoldingsBatch struct {
	Brokerage string
	Holdings  []Holding
	FXRates   map[string]float64
}

// FXRate returns the rate for a currency, defaulting KRW to 1.
func (b HoldingsBatch) FXRate(currency string) (float64, bool) {
	if currency == "" || currency == "KRW" {
		return 1.0, true
	}
	rate, ok := b.FXRates[currency]
	return rate, ok
}
