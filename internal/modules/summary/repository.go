// Package summary maintains the daily portfolio-wide rollup. The repository
// persists one row per date; the aggregator rebuilds a row from that day's
// snapshots and the deposit ledger.
package summary

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles daily summary persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new summary repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "daily_summary").Logger(),
	}
}

// Upsert writes the summary row for its date, replacing any previous rollup.
func (r *Repository) Upsert(s domain.DailySummary) error {
	if s.Date == "" {
		return &domain.ValidationError{Field: "date", Reason: "date is required"}
	}

	_, err := r.db.Exec(`
		INSERT INTO daily_summary (date, captured_at, total_value_krw, total_cost_krw, profit_loss_krw, return_rate_pct, net_invested_krw, kospi_close, sp500_close, nasdaq_close)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			captured_at      = excluded.captured_at,
			total_value_krw  = excluded.total_value_krw,
			total_cost_krw   = excluded.total_cost_krw,
			profit_loss_krw  = excluded.profit_loss_krw,
			return_rate_pct  = excluded.return_rate_pct,
			net_invested_krw = excluded.net_invested_krw,
			kospi_close      = excluded.kospi_close,
			sp500_close      = excluded.sp500_close,
			nasdaq_close     = excluded.nasdaq_close`,
		s.Date, s.CapturedAt.Unix(), s.TotalValueKRW, s.TotalCostKRW, s.ProfitLossKRW,
		s.ReturnRatePct, s.NetInvestedKRW, s.KospiClose, s.SP500Close, s.NasdaqClose,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily summary for %s: %w", s.Date, err)
	}
	return nil
}

// GetByDate returns the summary for a single date, or a NotFoundError when
// no rollup exists for it.
func (r *Repository) GetByDate(date string) (*domain.DailySummary, error) {
	row := r.db.QueryRow(`
		SELECT date, captured_at, total_value_krw, total_cost_krw, profit_loss_krw, return_rate_pct, net_invested_krw, kospi_close, sp500_close, nasdaq_close
		FROM daily_summary WHERE date = ?`, date)

	s, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Resource: fmt.Sprintf("daily summary for %s", date)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily summary for %s: %w", date, err)
	}
	return s, nil
}

// GetRange returns summaries with start <= date <= end, in date order.
// An empty result is not an error; callers decide how to treat it.
func (r *Repository) GetRange(start, end string) ([]domain.DailySummary, error) {
	rows, err := r.db.Query(`
		SELECT date, captured_at, total_value_krw, total_cost_krw, profit_loss_krw, return_rate_pct, net_invested_krw, kospi_close, sp500_close, nasdaq_close
		FROM daily_summary WHERE date >= ? AND date <= ? ORDER BY date`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries %s..%s: %w", start, end, err)
	}
	defer rows.Close()

	var summaries []domain.DailySummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily summary: %w", err)
		}
		summaries = append(summaries, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summaries: %w", err)
	}
	return summaries, nil
}

// Latest returns the most recent summary, or a NotFoundError when the table
// is empty.
func (r *Repository) Latest() (*domain.DailySummary, error) {
	row := r.db.QueryRow(`
		SELECT date, captured_at, total_value_krw, total_cost_krw, profit_loss_krw, return_rate_pct, net_invested_krw, kospi_close, sp500_close, nasdaq_close
		FROM daily_summary ORDER BY date DESC LIMIT 1`)

	s, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Resource: "latest daily summary"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest daily summary: %w", err)
	}
	return s, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSummary(sc scanner) (*domain.DailySummary, error) {
	var s domain.DailySummary
	var capturedAt int64
	err := sc.Scan(&s.Date, &capturedAt, &s.TotalValueKRW, &s.TotalCostKRW,
		&s.ProfitLossKRW, &s.ReturnRatePct, &s.NetInvestedKRW,
		&s.KospiClose, &s.SP500Close, &s.NasdaqClose)
	if err != nil {
		return nil, err
	}
	s.CapturedAt = time.Unix(capturedAt, 0).UTC()
	return &s, nil
}
