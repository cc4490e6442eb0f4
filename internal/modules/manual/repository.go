// Package manual stores hand-entered holdings (real estate, cash outside
// brokerages, crypto on exchanges without an API). The capture cycle folds
// these into daily snapshots alongside the brokerage feeds.
package manual

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles manual asset persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new manual asset repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "manual_assets").Logger(),
	}
}

// Create inserts a manual asset.
func (r *Repository) Create(a domain.ManualAsset) (*domain.ManualAsset, error) {
	if err := validate(a); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	res, err := r.db.Exec(`
		INSERT INTO manual_assets (symbol, name, asset_class, currency, brokerage, quantity, buy_price, current_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Symbol, a.Name, string(a.AssetClass), currencyOrKRW(a.Currency), a.Brokerage,
		a.Quantity, a.BuyPrice, a.CurrentPrice, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert manual asset: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get manual asset id: %w", err)
	}

	a.ID = id
	a.CreatedAt = time.Unix(now, 0).UTC()
	a.UpdatedAt = a.CreatedAt

	r.log.Info().Int64("id", id).Str("name", a.Name).Msg("Manual asset created")
	return &a, nil
}

// Update overwrites the mutable fields of an existing manual asset.
func (r *Repository) Update(a domain.ManualAsset) error {
	if a.ID <= 0 {
		return &domain.ValidationError{Field: "id", Reason: "id is required"}
	}
	if err := validate(a); err != nil {
		return err
	}

	res, err := r.db.Exec(`
		UPDATE manual_assets
		SET symbol = ?, name = ?, asset_class = ?, currency = ?, brokerage = ?,
		    quantity = ?, buy_price = ?, current_price = ?, updated_at = ?
		WHERE id = ?`,
		a.Symbol, a.Name, string(a.AssetClass), currencyOrKRW(a.Currency), a.Brokerage,
		a.Quantity, a.BuyPrice, a.CurrentPrice, time.Now().Unix(), a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update manual asset: %w", err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &domain.NotFoundError{Resource: fmt.Sprintf("manual asset %d", a.ID)}
	}
	return nil
}

// Delete removes a manual asset. Historical snapshots derived from it are
// kept; only future captures stop including it.
func (r *Repository) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM manual_assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete manual asset: %w", err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &domain.NotFoundError{Resource: fmt.Sprintf("manual asset %d", id)}
	}

	r.log.Info().Int64("id", id).Msg("Manual asset deleted")
	return nil
}

// GetAll returns every manual asset.
func (r *Repository) GetAll() ([]domain.ManualAsset, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, name, asset_class, currency, brokerage, quantity, buy_price, current_price, created_at, updated_at
		FROM manual_assets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query manual assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.ManualAsset
	for rows.Next() {
		var a domain.ManualAsset
		var class string
		var createdAt, updatedAt int64
		err := rows.Scan(&a.ID, &a.Symbol, &a.Name, &class, &a.Currency, &a.Brokerage,
			&a.Quantity, &a.BuyPrice, &a.CurrentPrice, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan manual asset: %w", err)
		}
		a.AssetClass = domain.AssetClass(class)
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		assets = append(assets, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating manual assets: %w", err)
	}
	return assets, nil
}

func validate(a domain.ManualAsset) error {
	switch {
	case a.Name == "":
		return &domain.ValidationError{Field: "name", Reason: "name is required"}
	case !a.AssetClass.Valid():
		return &domain.ValidationError{Field: "asset_class", Reason: fmt.Sprintf("unknown asset class: %s", a.AssetClass)}
	case a.Quantity < 0:
		return &domain.ValidationError{Field: "quantity", Reason: "quantity must be non-negative"}
	}
	return nil
}

func currencyOrKRW(currency string) string {
	if currency == "" {
		return "KRW"
	}
	return currency
}
