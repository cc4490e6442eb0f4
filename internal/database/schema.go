package database

// schemas maps database names to their embedded schema definitions.
// Every statement is idempotent so Migrate can run on every startup.
var schemas = map[string]string{
	"portfolio": portfolioSchema,
	"cache":     cacheSchema,
}

// portfolioSchema holds the owned state: the instrument registry, the daily
// valuation snapshots, the daily portfolio summaries, the append-only deposit
// ledger, and manually tracked assets.
const portfolioSchema = `
CREATE TABLE IF NOT EXISTS instruments (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol       TEXT NOT NULL DEFAULT '',
    identity_key TEXT NOT NULL,
    name         TEXT NOT NULL,
    asset_class  TEXT NOT NULL,
    currency     TEXT NOT NULL DEFAULT 'KRW',
    brokerage    TEXT NOT NULL DEFAULT '',
    exchange     TEXT NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);

-- Identity key: (symbol-or-name, asset class, brokerage). The same symbol at
-- two brokers is two instruments with independent cost bases.
CREATE UNIQUE INDEX IF NOT EXISTS idx_instruments_identity
    ON instruments(identity_key, asset_class, brokerage);

CREATE TABLE IF NOT EXISTS daily_snapshots (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    date          TEXT NOT NULL,
    instrument_id INTEGER NOT NULL REFERENCES instruments(id),
    captured_at   INTEGER NOT NULL,
    quantity      REAL NOT NULL DEFAULT 0,
    close_price   REAL NOT NULL DEFAULT 0,
    avg_cost      REAL NOT NULL DEFAULT 0,
    fx_rate       REAL NOT NULL DEFAULT 1,
    value_krw     REAL NOT NULL,
    pnl_krw       REAL NOT NULL DEFAULT 0,
    UNIQUE(date, instrument_id)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_date ON daily_snapshots(date);
CREATE INDEX IF NOT EXISTS idx_snapshots_instrument ON daily_snapshots(instrument_id, date);

CREATE TABLE IF NOT EXISTS daily_summary (
    date             TEXT PRIMARY KEY,
    captured_at      INTEGER NOT NULL,
    total_value_krw  REAL NOT NULL DEFAULT 0,
    total_cost_krw   REAL NOT NULL DEFAULT 0,
    profit_loss_krw  REAL NOT NULL DEFAULT 0,
    return_rate_pct  REAL NOT NULL DEFAULT 0,
    net_invested_krw REAL NOT NULL DEFAULT 0,
    kospi_close      REAL,
    sp500_close      REAL,
    nasdaq_close     REAL
);

CREATE TABLE IF NOT EXISTS deposits (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    date       TEXT NOT NULL,
    amount_krw REAL NOT NULL,
    note       TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deposits_date ON deposits(date);

CREATE TABLE IF NOT EXISTS manual_assets (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol        TEXT NOT NULL DEFAULT '',
    name          TEXT NOT NULL,
    asset_class   TEXT NOT NULL,
    currency      TEXT NOT NULL DEFAULT 'KRW',
    brokerage     TEXT NOT NULL DEFAULT '',
    quantity      REAL NOT NULL DEFAULT 0,
    buy_price     REAL NOT NULL DEFAULT 0,
    current_price REAL NOT NULL DEFAULT 0,
    created_at    INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL
);
`

// cacheSchema holds ephemeral external data: benchmark series responses and
// the last seen FX rates. Blobs are JSON with an expiration timestamp.
const cacheSchema = `
CREATE TABLE IF NOT EXISTS benchmark_series (
    cache_key  TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fx_rates (
    pair       TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);
`
