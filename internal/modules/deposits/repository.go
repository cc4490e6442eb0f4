// Package deposits keeps the append-only ledger of external cash flows into
// and out of the portfolio. Rows are never mutated once written; the ledger is
// only ever summed into net invested capital.
package deposits

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/jaehoon-ko/wonfolio/internal/utils"
	"github.com/rs/zerolog"
)

// Repository handles deposit ledger persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new deposit ledger repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "deposits").Logger(),
	}
}

// Add appends one cash flow. Positive amounts are deposits, negative are
// withdrawals.
func (r *Repository) Add(date string, amountKRW float64, note string) (*domain.Deposit, error) {
	if _, err := utils.ParseDate(date); err != nil {
		return nil, &domain.ValidationError{Field: "date", Reason: "invalid date: " + date}
	}
	if amountKRW == 0 {
		return nil, &domain.ValidationError{Field: "amount_krw", Reason: "amount must be non-zero"}
	}

	createdAt := time.Now().Unix()
	res, err := r.db.Exec(
		`INSERT INTO deposits (date, amount_krw, note, created_at) VALUES (?, ?, ?, ?)`,
		date, amountKRW, note, createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert deposit: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit id: %w", err)
	}

	r.log.Info().
		Int64("id", id).
		Str("date", date).
		Float64("amount_krw", amountKRW).
		Msg("Cash flow recorded")

	return &domain.Deposit{
		ID:        id,
		Date:      date,
		AmountKRW: amountKRW,
		Note:      note,
		CreatedAt: time.Unix(createdAt, 0).UTC(),
	}, nil
}

// List returns the full ledger in date order.
func (r *Repository) List() ([]domain.Deposit, error) {
	rows, err := r.db.Query(
		`SELECT id, date, amount_krw, note, created_at FROM deposits ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query deposits: %w", err)
	}
	defer rows.Close()

	var deposits []domain.Deposit
	for rows.Next() {
		var d domain.Deposit
		var createdAt int64
		if err := rows.Scan(&d.ID, &d.Date, &d.AmountKRW, &d.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		d.CreatedAt = time.Unix(createdAt, 0).UTC()
		deposits = append(deposits, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposits: %w", err)
	}
	return deposits, nil
}

// TotalThrough returns the cumulative net invested capital: the sum of signed
// amounts with date on or before the given date.
func (r *Repository) TotalThrough(date string) (float64, error) {
	var total float64
	err := r.db.QueryRow(
		`SELECT COALESCE(SUM(amount_krw), 0) FROM deposits WHERE date <= ?`, date,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum deposits through %s: %w", date, err)
	}
	return total, nil
}
