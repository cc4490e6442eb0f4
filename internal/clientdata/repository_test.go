package clientdata

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestRepo(t *testing.T) *Repository {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
	CREATE TABLE benchmark_series (
		cache_key  TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE TABLE fx_rates (
		pair       TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	);`)
	require.NoError(t, err)

	return NewRepository(db)
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo := setupTestRepo(t)

	series := map[string]float64{"2024-03-11": 2600.5, "2024-03-12": 2626.0}
	require.NoError(t, repo.Store("benchmark_series", "kospi:2024-03-01:2024-03-15", series, TTLBenchmarkSeries))

	raw, err := repo.GetIfFresh("benchmark_series", "kospi:2024-03-01:2024-03-15")
	require.NoError(t, err)
	require.NotNil(t, raw)

	var got map[string]float64
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, series, got)
}

func TestGetIfFreshMissingKey(t *testing.T) {
	repo := setupTestRepo(t)

	raw, err := repo.GetIfFresh("benchmark_series", "nope")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestExpiredEntryServedOnlyByGet(t *testing.T) {
	repo := setupTestRepo(t)

	// Negative TTL writes an already-expired row.
	require.NoError(t, repo.Store("fx_rates", "USD/KRW", 1333.2, -time.Minute))

	fresh, err := repo.GetIfFresh("fx_rates", "USD/KRW")
	require.NoError(t, err)
	assert.Nil(t, fresh, "expired data must not be served as fresh")

	stale, err := repo.Get("fx_rates", "USD/KRW")
	require.NoError(t, err)
	require.NotNil(t, stale, "stale fallback must still serve the data")

	var rate float64
	require.NoError(t, json.Unmarshal(stale, &rate))
	assert.Equal(t, 1333.2, rate)
}

func TestStoreOverwrites(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.Store("fx_rates", "USD/KRW", 1300.0, TTLExchangeRate))
	require.NoError(t, repo.Store("fx_rates", "USD/KRW", 1310.0, TTLExchangeRate))

	raw, err := repo.GetIfFresh("fx_rates", "USD/KRW")
	require.NoError(t, err)

	var rate float64
	require.NoError(t, json.Unmarshal(raw, &rate))
	assert.Equal(t, 1310.0, rate)
}

func TestInvalidTable(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.Store("instruments; DROP TABLE fx_rates", "k", 1, time.Hour)
	assert.Error(t, err)

	_, err = repo.Get("unknown_table", "k")
	assert.Error(t, err)
}

func TestDeleteExpired(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.Store("fx_rates", "USD/KRW", 1300.0, -time.Minute))
	require.NoError(t, repo.Store("fx_rates", "JPY/KRW", 9.1, time.Hour))

	deleted, err := repo.DeleteExpired("fx_rates")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	raw, err := repo.Get("fx_rates", "JPY/KRW")
	require.NoError(t, err)
	assert.NotNil(t, raw)
}

func TestDeleteAllExpired(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.Store("benchmark_series", "old", map[string]float64{}, -time.Minute))
	require.NoError(t, repo.Store("fx_rates", "USD/KRW", 1300.0, -time.Minute))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results["benchmark_series"])
	assert.Equal(t, int64(1), results["fx_rates"])
}
