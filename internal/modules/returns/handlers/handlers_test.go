package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/jaehoon-ko/wonfolio/internal/modules/returns"
	"github.com/jaehoon-ko/wonfolio/internal/modules/snapshots"
	"github.com/jaehoon-ko/wonfolio/internal/modules/summary"
)

func setupTestRouter(t *testing.T, bench domain.BenchmarkSource) (*chi.Mux, *summary.Repository) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
	CREATE TABLE daily_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		instrument_id INTEGER NOT NULL,
		captured_at INTEGER NOT NULL,
		quantity REAL NOT NULL DEFAULT 0,
		close_price REAL NOT NULL DEFAULT 0,
		avg_cost REAL NOT NULL DEFAULT 0,
		fx_rate REAL NOT NULL DEFAULT 1,
		value_krw REAL NOT NULL DEFAULT 0,
		pnl_krw REAL NOT NULL DEFAULT 0,
		UNIQUE(date, instrument_id)
	);
	CREATE TABLE daily_summary (
		date TEXT PRIMARY KEY,
		captured_at INTEGER NOT NULL,
		total_value_krw REAL NOT NULL DEFAULT 0,
		total_cost_krw REAL NOT NULL DEFAULT 0,
		profit_loss_krw REAL NOT NULL DEFAULT 0,
		return_rate_pct REAL NOT NULL DEFAULT 0,
		net_invested_krw REAL NOT NULL DEFAULT 0,
		kospi_close REAL,
		sp500_close REAL,
		nasdaq_close REAL
	);`)
	require.NoError(t, err)

	log := zerolog.Nop()
	sumRepo := summary.NewRepository(db, log)
	snapRepo := snapshots.NewRepository(db, log)
	svc := returns.NewService(sumRepo, snapRepo, bench, log)

	router := chi.NewRouter()
	NewHandlers(svc, log).RegisterRoutes(router)
	return router, sumRepo
}

type fixedBenchmarks struct {
	series domain.BenchmarkSeries
}

func (f *fixedBenchmarks) GetSeries(index domain.BenchmarkIndex, start, end string) (domain.BenchmarkSeries, error) {
	return f.series, nil
}

func (f *fixedBenchmarks) LatestClose(index domain.BenchmarkIndex) (float64, error) {
	v, _ := f.series.Latest()
	return v, nil
}

func TestHandlePeriodReturns(t *testing.T) {
	router, sumRepo := setupTestRouter(t, nil)

	now := time.Now()
	for i, value := range []float64{1000000, 1100000} {
		require.NoError(t, sumRepo.Upsert(domain.DailySummary{
			Date:          now.AddDate(0, 0, i-10).Format("2006-01-02"),
			CapturedAt:    now,
			TotalValueKRW: value,
		}))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/returns/period?period=1M", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data returns.PeriodReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Portfolio.HasData)
	assert.InDelta(t, 10.0, body.Data.Portfolio.SimpleReturnPct, 0.0001)
}

func TestHandlePeriodReturnsBadCustomRange(t *testing.T) {
	router, _ := setupTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/returns/period?period=custom&start=2024-01-01", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Metadata struct {
			Error string `json:"error"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Metadata.Error, "custom period")
}

func TestHandlePeriodReturnsNoPortfolioData(t *testing.T) {
	bench := &fixedBenchmarks{series: domain.BenchmarkSeries{
		"2024-01-02": 2500,
		"2024-01-31": 2600,
	}}
	router, _ := setupTestRouter(t, bench)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/returns/period?period=custom&start=2024-01-01&end=2024-01-31&benchmarks=kospi", nil))

	require.Equal(t, http.StatusOK, rec.Code, "missing portfolio data is not an error")

	var body struct {
		Data returns.PeriodReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Data.Portfolio.HasData)
	require.NotEmpty(t, body.Data.Benchmarks)
	assert.InDelta(t, 4.0, body.Data.Benchmarks[0].ReturnPct, 0.0001)
}

func TestHandleDailySummaries(t *testing.T) {
	router, sumRepo := setupTestRouter(t, nil)

	require.NoError(t, sumRepo.Upsert(domain.DailySummary{
		Date:          "2024-03-11",
		CapturedAt:    time.Now(),
		TotalValueKRW: 1000000,
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summaries?start=2024-03-01&end=2024-03-31", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Empty ranges are 404.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summaries?start=2020-01-01&end=2020-01-31", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDailySummariesHalfBoundedRange(t *testing.T) {
	router, sumRepo := setupTestRouter(t, nil)

	require.NoError(t, sumRepo.Upsert(domain.DailySummary{
		Date:          "2024-03-11",
		CapturedAt:    time.Now(),
		TotalValueKRW: 1000000,
	}))

	// A lone end bound is honored: start defaults to 30 days before it.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summaries?end=2024-03-31", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-03-01", body.Data.Start)
	assert.Equal(t, "2024-03-31", body.Data.End)

	// A lone start bound is honored too; end defaults to today.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summaries?start=2024-03-01", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summaries?end=not-a-date", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
