// Package registry maintains the master instrument table. Every holding
// observed by a capture cycle is resolved here before a snapshot row is
// written, so each identity (symbol, asset class, brokerage) has exactly one
// live instrument row.
package registry

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jaehoon-ko/wonfolio/internal/database"
	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles instrument identity resolution and lookups.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new instrument registry repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "registry").Logger(),
	}
}

// ResolveParams describes one observed holding identity.
type ResolveParams struct {
	Symbol     string
	Name       string
	AssetClass domain.AssetClass
	Currency   string
	Brokerage  string
	Exchange   string
}

// identityKey returns the lookup key for the (symbol, asset class, brokerage)
// identity. Symbol-less holdings (real estate, hand-tracked cash) are keyed by
// display name so two distinct manual assets never collide.
func (p ResolveParams) identityKey() string {
	symbol := strings.TrimSpace(p.Symbol)
	if symbol != "" {
		return strings.ToUpper(symbol)
	}
	return "name:" + strings.TrimSpace(p.Name)
}

// Resolve looks up an instrument by identity and returns its id, inserting a
// new row on first observation. A changed display name is updated in place;
// nothing else about an existing instrument is touched. Safe to call
// concurrently for the same identity: the transactional read-then-insert is
// backed by a uniqueness constraint on the identity key.
func (r *Repository) Resolve(p ResolveParams) (int64, error) {
	if !p.AssetClass.Valid() {
		return 0, &domain.ValidationError{Field: "asset_class", Reason: fmt.Sprintf("unknown asset class: %s", p.AssetClass)}
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.TrimSpace(p.Symbol)
	}
	if name == "" {
		return 0, &domain.ValidationError{Field: "name", Reason: "instrument needs a symbol or a display name"}
	}

	key := p.identityKey()
	now := time.Now().Unix()

	var id int64
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		var existingName string
		err := tx.QueryRow(
			`SELECT id, name FROM instruments WHERE identity_key = ? AND asset_class = ? AND brokerage = ?`,
			key, string(p.AssetClass), p.Brokerage,
		).Scan(&id, &existingName)

		switch {
		case err == sql.ErrNoRows:
			res, insErr := tx.Exec(
				`INSERT INTO instruments (symbol, identity_key, name, asset_class, currency, brokerage, exchange, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				strings.ToUpper(strings.TrimSpace(p.Symbol)), key, name, string(p.AssetClass),
				defaultCurrency(p.Currency), p.Brokerage, p.Exchange, now, now,
			)
			if insErr != nil {
				return fmt.Errorf("failed to insert instrument: %w", insErr)
			}
			id, insErr = res.LastInsertId()
			if insErr != nil {
				return fmt.Errorf("failed to get instrument id: %w", insErr)
			}
			r.log.Info().
				Int64("id", id).
				Str("key", key).
				Str("asset_class", string(p.AssetClass)).
				Str("brokerage", p.Brokerage).
				Msg("Instrument registered")
			return nil

		case err != nil:
			return fmt.Errorf("failed to query instrument: %w", err)
		}

		// Known identity: track display name drift only.
		if existingName != name {
			if _, updErr := tx.Exec(
				`UPDATE instruments SET name = ?, updated_at = ? WHERE id = ?`,
				name, now, id,
			); updErr != nil {
				return fmt.Errorf("failed to update instrument name: %w", updErr)
			}
			r.log.Debug().
				Int64("id", id).
				Str("old_name", existingName).
				Str("new_name", name).
				Msg("Instrument name updated")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// GetByID returns an instrument by id, or nil if it does not exist.
func (r *Repository) GetByID(id int64) (*domain.Instrument, error) {
	row := r.db.QueryRow(
		`SELECT id, symbol, name, asset_class, currency, brokerage, exchange, created_at, updated_at
		 FROM instruments WHERE id = ?`, id)

	inst, err := scanInstrument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query instrument by id: %w", err)
	}
	return inst, nil
}

// GetAll returns every registered instrument.
func (r *Repository) GetAll() ([]domain.Instrument, error) {
	rows, err := r.db.Query(
		`SELECT id, symbol, name, asset_class, currency, brokerage, exchange, created_at, updated_at
		 FROM instruments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	var instruments []domain.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		instruments = append(instruments, *inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instruments: %w", err)
	}
	return instruments, nil
}

// Brokerages returns the distinct non-empty brokerage names in the registry.
func (r *Repository) Brokerages() ([]string, error) {
	rows, err := r.db.Query(
		`SELECT DISTINCT brokerage FROM instruments WHERE brokerage != '' ORDER BY brokerage`)
	if err != nil {
		return nil, fmt.Errorf("failed to query brokerages: %w", err)
	}
	defer rows.Close()

	var brokerages []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("failed to scan brokerage: %w", err)
		}
		brokerages = append(brokerages, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating brokerages: %w", err)
	}
	return brokerages, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInstrument(s scanner) (*domain.Instrument, error) {
	var inst domain.Instrument
	var class string
	var createdAt, updatedAt int64

	err := s.Scan(
		&inst.ID,
		&inst.Symbol,
		&inst.Name,
		&class,
		&inst.Currency,
		&inst.Brokerage,
		&inst.Exchange,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	inst.AssetClass = domain.AssetClass(class)
	inst.CreatedAt = time.Unix(createdAt, 0).UTC()
	inst.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &inst, nil
}

func defaultCurrency(currency string) string {
	if currency == "" {
		return "KRW"
	}
	return currency
}
