package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehoon-ko/wonfolio/internal/capture"
	"github.com/jaehoon-ko/wonfolio/internal/database"
	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/jaehoon-ko/wonfolio/internal/modules/deposits"
	"github.com/jaehoon-ko/wonfolio/internal/modules/manual"
	"github.com/jaehoon-ko/wonfolio/internal/modules/registry"
	"github.com/jaehoon-ko/wonfolio/internal/modules/returns"
	returnshandlers "github.com/jaehoon-ko/wonfolio/internal/modules/returns/handlers"
	"github.com/jaehoon-ko/wonfolio/internal/modules/snapshots"
	"github.com/jaehoon-ko/wonfolio/internal/modules/summary"
)

type stubFeed struct {
	batch domain.HoldingsBatch
}

func (f *stubFeed) Name() string { return "stub" }

func (f *stubFeed) Fetch() (domain.HoldingsBatch, error) { return f.batch, nil }

func setupServer(t *testing.T) *Server {
	t.Helper()
	dataDir := t.TempDir()

	openDB := func(name string) *database.DB {
		db, err := database.New(database.Config{
			Path:    filepath.Join(dataDir, name+".db"),
			Profile: database.ProfileStandard,
			Name:    name,
		})
		require.NoError(t, err)
		require.NoError(t, db.Migrate())
		t.Cleanup(func() { db.Close() })
		return db
	}
	portfolioDB := openDB("portfolio")
	cacheDB := openDB("cache")

	log := zerolog.Nop()
	conn := portfolioDB.Conn()

	registryRepo := registry.NewRepository(conn, log)
	snapshotRepo := snapshots.NewRepository(conn, log)
	depositRepo := deposits.NewRepository(conn, log)
	summaryRepo := summary.NewRepository(conn, log)
	manualRepo := manual.NewRepository(conn, log)
	aggregator := summary.NewAggregator(snapshotRepo, depositRepo, summaryRepo, nil, log)

	feed := &stubFeed{batch: domain.HoldingsBatch{
		Brokerage: "Korea Investment",
		FXRates:   map[string]float64{"USD": 1300.0},
		Holdings: []domain.Holding{
			{Symbol: "AAPL", Name: "Apple Inc", AssetClass: domain.AssetOverseasEquity,
				Quantity: 10, CurrentPrice: 150, AvgCost: 140, Currency: "USD"},
		},
	}}
	captureSvc := capture.NewService([]domain.HoldingsFeed{feed}, registryRepo, snapshotRepo, manualRepo, aggregator, log)

	returnsSvc := returns.NewService(summaryRepo, snapshotRepo, nil, log)

	return New(Config{
		Log:              log,
		Port:             0,
		DataDir:          dataDir,
		PortfolioDB:      portfolioDB,
		CacheDB:          cacheDB,
		Capture:          captureSvc,
		ReturnsHandlers:  returnshandlers.NewHandlers(returnsSvc, log),
		DepositHandlers:  deposits.NewHandlers(depositRepo, log),
		ManualHandlers:   manual.NewHandlers(manualRepo, log),
		RegistryHandlers: registry.NewHandlers(registryRepo, log),
		SnapshotHandlers: snapshots.NewHandlers(snapshotRepo, log),
	})
}

func TestHealthEndpoint(t *testing.T) {
	s := setupServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCaptureRunEndpoint(t *testing.T) {
	s := setupServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/capture/run?date=2024-03-15", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"snapshots":1`)

	// The captured day is now visible through the query surface.
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summaries?start=2024-03-15&end=2024-03-15", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1950000")

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/instruments/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "AAPL")
}

func TestCaptureRunBadDate(t *testing.T) {
	s := setupServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/capture/run?date=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDepositRoundTrip(t *testing.T) {
	s := setupServer(t)

	body := strings.NewReader(`{"date":"2024-03-01","amount_krw":1000000,"note":"first"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/deposits/", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/deposits/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1000000")
}

func TestSystemInfoEndpoint(t *testing.T) {
	s := setupServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/system/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cpu_percent")
}

func TestDatabaseStatsEndpoint(t *testing.T) {
	s := setupServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/system/databases", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portfolio")
}
