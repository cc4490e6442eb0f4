package capture

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehoon-ko/wonfolio/internal/database"
	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/jaehoon-ko/wonfolio/internal/modules/deposits"
	"github.com/jaehoon-ko/wonfolio/internal/modules/manual"
	"github.com/jaehoon-ko/wonfolio/internal/modules/registry"
	"github.com/jaehoon-ko/wonfolio/internal/modules/snapshots"
	"github.com/jaehoon-ko/wonfolio/internal/modules/summary"
)

type stubFeed struct {
	name  string
	batch domain.HoldingsBatch
	err   error
}

func (f *stubFeed) Name() string { return f.name }

func (f *stubFeed) Fetch() (domain.HoldingsBatch, error) {
	if f.err != nil {
		return domain.HoldingsBatch{}, f.err
	}
	return f.batch, nil
}

func setupService(t *testing.T, feeds ...domain.HoldingsFeed) (*Service, *sql.DB) {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "portfolio.db"),
		Profile: database.ProfileLedger,
		Name:    "portfolio",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	conn := db.Conn()
	depositRepo := deposits.NewRepository(conn, log)
	snapshotRepo := snapshots.NewRepository(conn, log)
	summaryRepo := summary.NewRepository(conn, log)
	aggregator := summary.NewAggregator(snapshotRepo, depositRepo, summaryRepo, nil, log)

	svc := NewService(
		feeds,
		registry.NewRepository(conn, log),
		snapshotRepo,
		manual.NewRepository(conn, log),
		aggregator,
		log,
	)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 15, 40, 0, 0, time.UTC) }
	return svc, conn
}

func brokerageBatch() domain.HoldingsBatch {
	return domain.HoldingsBatch{
		Brokerage: "Korea Investment",
		FXRates:   map[string]float64{"USD": 1300.0},
		Holdings: []domain.Holding{
			{
				Symbol:       "AAPL",
				Name:         "Apple Inc",
				AssetClass:   domain.AssetOverseasEquity,
				Quantity:     10,
				CurrentPrice: 150.0,
				AvgCost:      140.0,
				Currency:     "USD",
				Exchange:     "NASD",
			},
		},
	}
}

func TestCaptureSnapshotFreshDay(t *testing.T) {
	feed := &stubFeed{name: "kis", batch: brokerageBatch()}
	svc, conn := setupService(t, feed)

	res, err := svc.CaptureSnapshot("2024-03-15")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Snapshots)
	assert.Empty(t, res.FailedFeeds)
	require.NotNil(t, res.Summary)
	// 10 shares * $150 * 1300 KRW/USD
	assert.Equal(t, 1950000.0, res.Summary.TotalValueKRW)
	// Cost basis 10 * $140 * 1300
	assert.Equal(t, 1820000.0, res.Summary.TotalCostKRW)
	assert.InDelta(t, 7.14, res.Summary.ReturnRatePct, 0.01)

	var instruments int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM instruments`).Scan(&instruments))
	assert.Equal(t, 1, instruments)
}

func TestCaptureSnapshotRerunOverwrites(t *testing.T) {
	feed := &stubFeed{name: "kis", batch: brokerageBatch()}
	svc, conn := setupService(t, feed)

	_, err := svc.CaptureSnapshot("2024-03-15")
	require.NoError(t, err)

	// The price moved intraday; a later run for the same date replaces the
	// earlier rows instead of stacking new ones.
	feed.batch.Holdings[0].CurrentPrice = 160.0
	res, err := svc.CaptureSnapshot("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 2080000.0, res.Summary.TotalValueKRW)

	var snapshotRows, summaryRows int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM daily_snapshots`).Scan(&snapshotRows))
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM daily_summary`).Scan(&summaryRows))
	assert.Equal(t, 1, snapshotRows)
	assert.Equal(t, 1, summaryRows)
}

func TestCaptureSnapshotPrefersReportedValuation(t *testing.T) {
	batch := domain.HoldingsBatch{
		Brokerage: "Korea Investment",
		FXRates:   map[string]float64{},
		Holdings: []domain.Holding{
			{
				Symbol:        "005930",
				Name:          "삼성전자",
				AssetClass:    domain.AssetDomesticEquity,
				Quantity:      20,
				CurrentPrice:  72500,
				AvgCost:       68000,
				Currency:      "KRW",
				EvalAmountKRW: 1450000,
				PnLKRW:        90000,
			},
		},
	}
	svc, _ := setupService(t, &stubFeed{name: "kis", batch: batch})

	res, err := svc.CaptureSnapshot("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 1450000.0, res.Summary.TotalValueKRW)
}

func TestCaptureSnapshotIncludesManualAssets(t *testing.T) {
	svc, conn := setupService(t)

	log := zerolog.Nop()
	manualRepo := manual.NewRepository(conn, log)
	_, err := manualRepo.Create(domain.ManualAsset{
		Name:         "Apartment",
		AssetClass:   domain.AssetManual,
		Quantity:     1,
		BuyPrice:     500000000,
		CurrentPrice: 550000000,
	})
	require.NoError(t, err)

	res, err := svc.CaptureSnapshot("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Snapshots)
	assert.Equal(t, 550000000.0, res.Summary.TotalValueKRW)

	var brokerage string
	require.NoError(t, conn.QueryRow(`SELECT brokerage FROM instruments`).Scan(&brokerage))
	assert.Equal(t, ManualBrokerage, brokerage)
}

func TestCaptureSnapshotDegradesOnFeedFailure(t *testing.T) {
	failing := &stubFeed{name: "kis", err: &domain.ExternalFetchError{Source: "kis:auth", Err: errors.New("boom")}}
	working := &stubFeed{name: "other", batch: domain.HoldingsBatch{
		Brokerage: "Other Securities",
		FXRates:   map[string]float64{},
		Holdings: []domain.Holding{
			{Symbol: "KODEX200", Name: "KODEX 200", AssetClass: domain.AssetDomesticEquity,
				Quantity: 5, CurrentPrice: 35000, AvgCost: 33000, Currency: "KRW"},
		},
	}}
	svc, _ := setupService(t, failing, working)

	res, err := svc.CaptureSnapshot("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, []string{"kis"}, res.FailedFeeds)
	assert.Equal(t, 1, res.Snapshots)
	assert.Equal(t, 175000.0, res.Summary.TotalValueKRW)
}

func TestCaptureSnapshotAllFeedsDown(t *testing.T) {
	failing := &stubFeed{name: "kis", err: errors.New("timeout")}
	svc, _ := setupService(t, failing)

	_, err := svc.CaptureSnapshot("2024-03-15")
	var ferr *domain.ExternalFetchError
	require.True(t, errors.As(err, &ferr))
}

func TestCaptureSnapshotInvalidDate(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.CaptureSnapshot("15-03-2024")
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestCaptureSnapshotSkipsUnpricedCurrency(t *testing.T) {
	batch := domain.HoldingsBatch{
		Brokerage: "Korea Investment",
		FXRates:   map[string]float64{},
		Holdings: []domain.Holding{
			{Symbol: "VOD", Name: "Vodafone", AssetClass: domain.AssetOverseasEquity,
				Quantity: 3, CurrentPrice: 80, AvgCost: 75, Currency: "GBP"},
			{Symbol: "005930", Name: "삼성전자", AssetClass: domain.AssetDomesticEquity,
				Quantity: 1, CurrentPrice: 72500, AvgCost: 68000, Currency: "KRW", EvalAmountKRW: 72500},
		},
	}
	svc, _ := setupService(t, &stubFeed{name: "kis", batch: batch})

	res, err := svc.CaptureSnapshot("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Snapshots, "holding without an FX rate is skipped, not mispriced")
}
