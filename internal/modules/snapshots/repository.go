// Package snapshots persists the daily valuation facts: one row per calendar
// date per instrument. The upsert contract makes capture re-runs safe.
package snapshots

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles snapshot persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new snapshot repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Upsert writes a snapshot for (date, instrument). An existing row for the
// same key is overwritten in place in a single statement, so no reader ever
// observes a transient delete-then-insert state and repeated captures for a
// date converge to the last write.
//
// The caller is the source of truth for ValueKRW: different asset classes
// derive value differently (brokerage-reported evaluation amount vs computed
// quantity * price * fx), so the store does not recompute it.
func (r *Repository) Upsert(s domain.Snapshot) error {
	if err := validate(s); err != nil {
		return err
	}

	_, err := r.db.Exec(`
		INSERT INTO daily_snapshots
			(date, instrument_id, captured_at, quantity, close_price, avg_cost, fx_rate, value_krw, pnl_krw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, instrument_id) DO UPDATE SET
			captured_at = excluded.captured_at,
			quantity    = excluded.quantity,
			close_price = excluded.close_price,
			avg_cost    = excluded.avg_cost,
			fx_rate     = excluded.fx_rate,
			value_krw   = excluded.value_krw,
			pnl_krw     = excluded.pnl_krw
	`,
		s.Date,
		s.InstrumentID,
		s.CapturedAt.Unix(),
		s.Quantity,
		s.ClosePrice,
		s.AvgCost,
		s.FXRate,
		s.ValueKRW,
		s.PnLKRW,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot for %s/%d: %w", s.Date, s.InstrumentID, err)
	}

	r.log.Debug().
		Str("date", s.Date).
		Int64("instrument_id", s.InstrumentID).
		Float64("value_krw", s.ValueKRW).
		Msg("Snapshot upserted")
	return nil
}

func validate(s domain.Snapshot) error {
	switch {
	case s.Date == "":
		return &domain.ValidationError{Field: "date", Reason: "date is required"}
	case s.InstrumentID <= 0:
		return &domain.ValidationError{Field: "instrument_id", Reason: "instrument id must come from the registry"}
	case s.Quantity < 0:
		return &domain.ValidationError{Field: "quantity", Reason: "quantity must be non-negative"}
	case s.ClosePrice < 0:
		return &domain.ValidationError{Field: "close_price", Reason: "close price must be non-negative"}
	case s.FXRate <= 0:
		return &domain.ValidationError{Field: "fx_rate", Reason: "fx rate must be positive"}
	}
	return nil
}

// GetByDate returns every snapshot for one calendar date.
func (r *Repository) GetByDate(date string) ([]domain.Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT id, date, instrument_id, captured_at, quantity, close_price, avg_cost, fx_rate, value_krw, pnl_krw
		FROM daily_snapshots
		WHERE date = ?
		ORDER BY instrument_id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots for %s: %w", date, err)
	}
	defer rows.Close()

	return collect(rows)
}

// CountForDate returns the number of snapshot rows on a date.
func (r *Repository) CountForDate(date string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM daily_snapshots WHERE date = ?`, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots for %s: %w", date, err)
	}
	return count, nil
}

// InstrumentBounds is the first and last snapshot value for one instrument
// within a date range, the inputs to a period breakdown entry.
type InstrumentBounds struct {
	InstrumentID int64
	Symbol       string
	Name         string
	Brokerage    string
	StartDate    string
	EndDate      string
	StartValue   float64
	EndValue     float64
}

// RangeBounds returns, for every instrument with at least one snapshot in
// [start, end], the value at its first and last snapshot inside the range.
func (r *Repository) RangeBounds(start, end string) ([]InstrumentBounds, error) {
	rows, err := r.db.Query(`
		SELECT s.instrument_id, i.symbol, i.name, i.brokerage,
		       MIN(s.date), MAX(s.date)
		FROM daily_snapshots s
		JOIN instruments i ON i.id = s.instrument_id
		WHERE s.date BETWEEN ? AND ?
		GROUP BY s.instrument_id
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot bounds: %w", err)
	}
	defer rows.Close()

	var bounds []InstrumentBounds
	for rows.Next() {
		var b InstrumentBounds
		if err := rows.Scan(&b.InstrumentID, &b.Symbol, &b.Name, &b.Brokerage, &b.StartDate, &b.EndDate); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot bounds: %w", err)
		}
		bounds = append(bounds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot bounds: %w", err)
	}

	// Second pass fills in the values at the boundary dates. The data set is
	// one row per instrument per day, so these point lookups stay cheap.
	for i := range bounds {
		if err := r.valueAt(bounds[i].InstrumentID, bounds[i].StartDate, &bounds[i].StartValue); err != nil {
			return nil, err
		}
		if err := r.valueAt(bounds[i].InstrumentID, bounds[i].EndDate, &bounds[i].EndValue); err != nil {
			return nil, err
		}
	}

	return bounds, nil
}

func (r *Repository) valueAt(instrumentID int64, date string, dest *float64) error {
	err := r.db.QueryRow(
		`SELECT value_krw FROM daily_snapshots WHERE instrument_id = ? AND date = ?`,
		instrumentID, date,
	).Scan(dest)
	if err != nil {
		return fmt.Errorf("failed to query snapshot value for %d@%s: %w", instrumentID, date, err)
	}
	return nil
}

func collect(rows *sql.Rows) ([]domain.Snapshot, error) {
	var snapshots []domain.Snapshot
	for rows.Next() {
		var s domain.Snapshot
		var capturedAt int64
		err := rows.Scan(
			&s.ID,
			&s.Date,
			&s.InstrumentID,
			&capturedAt,
			&s.Quantity,
			&s.ClosePrice,
			&s.AvgCost,
			&s.FXRate,
			&s.ValueKRW,
			&s.PnLKRW,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s.CapturedAt = time.Unix(capturedAt, 0).UTC()
		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}
