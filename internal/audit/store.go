package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ListParams filters the audit listing.
type ListParams struct {
	RestaurantID string
	VariantID    string
	Limit        int
	Offset       int
}

// Store persists pricing audit records in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert writes one audit record. Replayed tasks are absorbed by the
// primary key so at-least-once delivery cannot duplicate rows.
func (s *Store) Insert(ctx context.Context, r Record) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO pricing_audit_logs
			(id, restaurant_id, variant_id, product_id, quantity, applied_tier, applied_rule, promo_code,
			 subtotal, discount, total, margin_percent, viable, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.RestaurantID, r.VariantID, r.ProductID, r.Quantity, r.AppliedTier, r.AppliedRule, r.PromoCode,
		r.Subtotal, r.Discount, r.Total, r.MarginPercent, r.Viable, r.Reason, r.CreatedAt); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// List returns audit records matching the filter, newest first.
func (s *Store) List(ctx context.Context, params ListParams) ([]Record, error) {
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, restaurant_id, variant_id, product_id, quantity, applied_tier, applied_rule, promo_code,
		       subtotal, discount, total, margin_percent, viable, reason, created_at
		FROM pricing_audit_logs
		WHERE ($1 = '' OR restaurant_id = $1)
		  AND ($2 = '' OR variant_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, params.RestaurantID, params.VariantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()
	var result []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.RestaurantID, &r.VariantID, &r.ProductID, &r.Quantity, &r.AppliedTier, &r.AppliedRule, &r.PromoCode,
			&r.Subtotal, &r.Discount, &r.Total, &r.MarginPercent, &r.Viable, &r.Reason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return result, nil
}
