package registry

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestRepo(t *testing.T) *Repository {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE instruments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL DEFAULT '',
		identity_key TEXT NOT NULL,
		name TEXT NOT NULL,
		asset_class TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'KRW',
		brokerage TEXT NOT NULL DEFAULT '',
		exchange TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE UNIQUE INDEX idx_instruments_identity ON instruments(identity_key, asset_class, brokerage)`)
	require.NoError(t, err)

	return NewRepository(db, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestResolve_CreatesOnFirstObservation(t *testing.T) {
	repo := setupTestRepo(t)

	id, err := repo.Resolve(ResolveParams{
		Symbol:     "AAPL",
		Name:       "Apple Inc.",
		AssetClass: domain.AssetOverseasEquity,
		Currency:   "USD",
		Brokerage:  "Korea Investment",
		Exchange:   "NASD",
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	inst, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, inst)
	assert.Equal(t, "AAPL", inst.Symbol)
	assert.Equal(t, "Apple Inc.", inst.Name)
	assert.Equal(t, domain.AssetOverseasEquity, inst.AssetClass)
	assert.Equal(t, "USD", inst.Currency)
}

func TestResolve_IdentityStability(t *testing.T) {
	repo := setupTestRepo(t)

	params := ResolveParams{
		Symbol:     "AAPL",
		AssetClass: domain.AssetOverseasEquity,
		Brokerage:  "Korea Investment",
		Name:       "Apple Inc.",
	}

	id1, err := repo.Resolve(params)
	require.NoError(t, err)

	// Same identity with a drifted display name returns the same id and
	// updates the stored name.
	params.Name = "Apple Inc. (Common Stock)"
	id2, err := repo.Resolve(params)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	inst, err := repo.GetByID(id1)
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc. (Common Stock)", inst.Name)

	instruments, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, instruments, 1)
}

func TestResolve_SameSymbolDifferentBrokerage(t *testing.T) {
	repo := setupTestRepo(t)

	id1, err := repo.Resolve(ResolveParams{
		Symbol: "AAPL", Name: "Apple", AssetClass: domain.AssetOverseasEquity, Brokerage: "Korea Investment",
	})
	require.NoError(t, err)

	id2, err := repo.Resolve(ResolveParams{
		Symbol: "AAPL", Name: "Apple", AssetClass: domain.AssetOverseasEquity, Brokerage: "Toss Securities",
	})
	require.NoError(t, err)

	// The same symbol at different brokers carries a separate cost basis.
	assert.NotEqual(t, id1, id2)
}

func TestResolve_SymbollessAssetsKeyedByName(t *testing.T) {
	repo := setupTestRepo(t)

	id1, err := repo.Resolve(ResolveParams{
		Name: "Seoul Apartment", AssetClass: domain.AssetManual,
	})
	require.NoError(t, err)

	id2, err := repo.Resolve(ResolveParams{
		Name: "Jeju Land", AssetClass: domain.AssetManual,
	})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	// Re-resolving the same name returns the same instrument.
	id3, err := repo.Resolve(ResolveParams{
		Name: "Seoul Apartment", AssetClass: domain.AssetManual,
	})
	require.NoError(t, err)
	assert.Equal(t, id1, id3)
}

func TestResolve_UnknownAssetClass(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Resolve(ResolveParams{
		Symbol: "AAPL", Name: "Apple", AssetClass: domain.AssetClass("POGS"),
	})
	require.Error(t, err)

	var vErr *domain.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestResolve_NoSymbolNoName(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Resolve(ResolveParams{AssetClass: domain.AssetManual})
	assert.Error(t, err)
}

func TestGetByID_Missing(t *testing.T) {
	repo := setupTestRepo(t)

	inst, err := repo.GetByID(9999)
	require.NoError(t, err)
	assert.Nil(t, inst)
}

func TestBrokerages(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Resolve(ResolveParams{Symbol: "005930", Name: "삼성전자", AssetClass: domain.AssetDomesticEquity, Brokerage: "Korea Investment"})
	require.NoError(t, err)
	_, err = repo.Resolve(ResolveParams{Symbol: "AAPL", Name: "Apple", AssetClass: domain.AssetOverseasEquity, Brokerage: "Toss Securities"})
	require.NoError(t, err)
	_, err = repo.Resolve(ResolveParams{Name: "Seoul Apartment", AssetClass: domain.AssetManual})
	require.NoError(t, err)

	brokerages, err := repo.Brokerages()
	require.NoError(t, err)
	assert.Equal(t, []string{"Korea Investment", "Toss Securities"}, brokerages)
}
