package promo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPromoNotFound indicates no promo exists for the code.
var ErrPromoNotFound = errors.New("promo: code not found")

// Store persists promo codes in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetByCode loads a promo rule by its case-insensitive code.
func (s *Store) GetByCode(ctx context.Context, code string) (Rule, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT code, percent_bps, min_quantity, label, product_ids, valid_from, valid_to, usage_limit, used_count, disabled
		FROM promo_codes
		WHERE lower(code) = lower($1)`, code)
	var r Rule
	if err := row.Scan(&r.Code, &r.PercentBps, &r.MinQuantity, &r.Label, &r.ProductIDs, &r.ValidFrom, &r.ValidTo, &r.UsageLimit, &r.UsedCount, &r.Disabled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, ErrPromoNotFound
		}
		return Rule{}, fmt.Errorf("get promo by code: %w", err)
	}
	return r, nil
}

// Create inserts a promo rule. Codes are unique, case-insensitively.
func (s *Store) Create(ctx context.Context, r Rule) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO promo_codes (code, percent_bps, min_quantity, label, product_ids, valid_from, valid_to, usage_limit, used_count, disabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, false, now())`,
		strings.TrimSpace(r.Code), r.PercentBps, r.MinQuantity, r.Label, r.ProductIDs, r.ValidFrom, r.ValidTo, r.UsageLimit); err != nil {
		return fmt.Errorf("create promo: %w", err)
	}
	return nil
}

// List returns all promo rules, newest first.
func (s *Store) List(ctx context.Context) ([]Rule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, percent_bps, min_quantity, label, product_ids, valid_from, valid_to, usage_limit, used_count, disabled
		FROM promo_codes
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list promos: %w", err)
	}
	defer rows.Close()
	var result []Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.Code, &r.PercentBps, &r.MinQuantity, &r.Label, &r.ProductIDs, &r.ValidFrom, &r.ValidTo, &r.UsageLimit, &r.UsedCount, &r.Disabled); err != nil {
			return nil, fmt.Errorf("scan promo: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promos: %w", err)
	}
	return result, nil
}

// Disable switches a promo off without deleting its usage history.
func (s *Store) Disable(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE promo_codes SET disabled = true WHERE lower(code) = lower($1)`, code)
	if err != nil {
		return fmt.Errorf("disable promo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPromoNotFound
	}
	return nil
}

// IncrementUsage bumps the usage counter for a successfully applied promo.
func (s *Store) IncrementUsage(ctx context.Context, code string) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE promo_codes SET used_count = used_count + 1 WHERE lower(code) = lower($1)`, code); err != nil {
		return fmt.Errorf("increment promo usage: %w", err)
	}
	return nil
}
