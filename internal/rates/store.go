package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-fooddist/internal/pricing"
)

// ErrRateNotFound indicates the negotiated rate does not exist or was
// already revoked.
var ErrRateNotFound = errors.New("rates: negotiated rate not found")

// Rate is a stored negotiated rate together with its identifier and
// revocation marker.
type Rate struct {
	ID string `json:"id"`
	pricing.NegotiatedRate
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// Store persists negotiated rates in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// BestRate returns the cheapest rate eligible for the restaurant,
// product, and quantity at the given instant, or nil when none applies.
func (s *Store) BestRate(ctx context.Context, restaurantID, productID string, qty int, now time.Time) (*pricing.NegotiatedRate, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT restaurant_id, product_id, price_per_unit, min_quantity, valid_from, valid_until, negotiated_by, created_at
		FROM negotiated_rates
		WHERE restaurant_id = $1
		  AND product_id = $2
		  AND min_quantity <= $3
		  AND valid_from <= $4
		  AND valid_until >= $4
		  AND revoked_at IS NULL
		ORDER BY price_per_unit ASC, created_at DESC
		LIMIT 1`, restaurantID, productID, qty, now)
	var r pricing.NegotiatedRate
	if err := row.Scan(&r.RestaurantID, &r.ProductID, &r.PricePerUnit, &r.MinQuantity, &r.ValidFrom, &r.ValidUntil, &r.NegotiatedBy, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("best negotiated rate: %w", err)
	}
	return &r, nil
}

// Create inserts a negotiated rate and returns its identifier.
func (s *Store) Create(ctx context.Context, r pricing.NegotiatedRate) (string, error) {
	id := uuid.NewString()
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO negotiated_rates (id, restaurant_id, product_id, price_per_unit, min_quantity, valid_from, valid_until, negotiated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		id, r.RestaurantID, r.ProductID, r.PricePerUnit, r.MinQuantity, r.ValidFrom, r.ValidUntil, r.NegotiatedBy); err != nil {
		return "", fmt.Errorf("create negotiated rate: %w", err)
	}
	return id, nil
}

// Revoke marks a rate as revoked. Revoking twice is an error so callers
// can surface stale admin actions.
func (s *Store) Revoke(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE negotiated_rates
		SET revoked_at = now()
		WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke negotiated rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRateNotFound
	}
	return nil
}

// ListByRestaurant returns every rate for the restaurant, newest first,
// revoked ones included.
func (s *Store) ListByRestaurant(ctx context.Context, restaurantID string) ([]Rate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, restaurant_id, product_id, price_per_unit, min_quantity, valid_from, valid_until, negotiated_by, created_at, revoked_at
		FROM negotiated_rates
		WHERE restaurant_id = $1
		ORDER BY created_at DESC`, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list negotiated rates: %w", err)
	}
	defer rows.Close()
	var result []Rate
	for rows.Next() {
		var r Rate
		if err := rows.Scan(&r.ID, &r.RestaurantID, &r.ProductID, &r.PricePerUnit, &r.MinQuantity, &r.ValidFrom, &r.ValidUntil, &r.NegotiatedBy, &r.CreatedAt, &r.RevokedAt); err != nil {
			return nil, fmt.Errorf("scan negotiated rate: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate negotiated rates: %w", err)
	}
	return result, nil
}

// RevokeExpired marks every rate whose validity window has passed.
// It returns the number of rates revoked.
func (s *Store) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE negotiated_rates
		SET revoked_at = now()
		WHERE valid_until < $1 AND revoked_at IS NULL`, now)
	if err != nil {
		return 0, fmt.Errorf("revoke expired rates: %w", err)
	}
	return tag.RowsAffected(), nil
}
