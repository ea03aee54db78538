package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-fooddist/internal/pricing"
)

// ErrPricingNotFound indicates the variant has no pricing configuration.
var ErrPricingNotFound = errors.New("catalog: variant pricing not found")

// Store persists variant pricing configurations in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetVariantPricing loads a variant's full pricing configuration: the
// variant row plus its tiers and discount rules.
func (s *Store) GetVariantPricing(ctx context.Context, variantID string) (pricing.VariantPricing, error) {
	var p pricing.VariantPricing
	row := s.pool.QueryRow(ctx, `
		SELECT id, product_id, base_price, cost, min_margin_percent
		FROM product_variants
		WHERE id = $1`, variantID)
	if err := row.Scan(&p.VariantID, &p.ProductID, &p.BasePrice, &p.Cost, &p.MinMarginPercent); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.VariantPricing{}, ErrPricingNotFound
		}
		return pricing.VariantPricing{}, fmt.Errorf("get variant pricing: %w", err)
	}

	tierRows, err := s.pool.Query(ctx, `
		SELECT name, min_quantity, max_quantity, price_per_unit
		FROM price_tiers
		WHERE variant_id = $1
		ORDER BY min_quantity`, variantID)
	if err != nil {
		return pricing.VariantPricing{}, fmt.Errorf("list price tiers: %w", err)
	}
	defer tierRows.Close()
	for tierRows.Next() {
		var tier pricing.PriceTier
		if err := tierRows.Scan(&tier.Name, &tier.MinQuantity, &tier.MaxQuantity, &tier.PricePerUnit); err != nil {
			return pricing.VariantPricing{}, fmt.Errorf("scan price tier: %w", err)
		}
		p.Tiers = append(p.Tiers, tier)
	}
	if err := tierRows.Err(); err != nil {
		return pricing.VariantPricing{}, fmt.Errorf("iterate price tiers: %w", err)
	}

	ruleRows, err := s.pool.Query(ctx, `
		SELECT quantity, percent_bps, label
		FROM discount_rules
		WHERE variant_id = $1
		ORDER BY quantity`, variantID)
	if err != nil {
		return pricing.VariantPricing{}, fmt.Errorf("list discount rules: %w", err)
	}
	defer ruleRows.Close()
	for ruleRows.Next() {
		var rule pricing.DiscountRule
		if err := ruleRows.Scan(&rule.Quantity, &rule.PercentBps, &rule.Label); err != nil {
			return pricing.VariantPricing{}, fmt.Errorf("scan discount rule: %w", err)
		}
		p.DiscountRules = append(p.DiscountRules, rule)
	}
	if err := ruleRows.Err(); err != nil {
		return pricing.VariantPricing{}, fmt.Errorf("iterate discount rules: %w", err)
	}
	return p, nil
}

// UpsertVariantPricing replaces a variant's pricing configuration
// atomically. Tiers and rules are rewritten wholesale so the stored
// configuration always matches exactly what the caller submitted.
func (s *Store) UpsertVariantPricing(ctx context.Context, p pricing.VariantPricing) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert pricing: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO product_variants (id, product_id, base_price, cost, min_margin_percent, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			base_price = EXCLUDED.base_price,
			cost = EXCLUDED.cost,
			min_margin_percent = EXCLUDED.min_margin_percent,
			updated_at = now()`,
		p.VariantID, p.ProductID, p.BasePrice, p.Cost, p.MinMarginPercent); err != nil {
		return fmt.Errorf("upsert variant: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM price_tiers WHERE variant_id = $1`, p.VariantID); err != nil {
		return fmt.Errorf("clear price tiers: %w", err)
	}
	for _, tier := range p.Tiers {
		if _, err := tx.Exec(ctx, `
			INSERT INTO price_tiers (variant_id, name, min_quantity, max_quantity, price_per_unit)
			VALUES ($1, $2, $3, $4, $5)`,
			p.VariantID, tier.Name, tier.MinQuantity, tier.MaxQuantity, tier.PricePerUnit); err != nil {
			return fmt.Errorf("insert price tier: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM discount_rules WHERE variant_id = $1`, p.VariantID); err != nil {
		return fmt.Errorf("clear discount rules: %w", err)
	}
	for _, rule := range p.DiscountRules {
		if _, err := tx.Exec(ctx, `
			INSERT INTO discount_rules (variant_id, quantity, percent_bps, label)
			VALUES ($1, $2, $3, $4)`,
			p.VariantID, rule.Quantity, rule.PercentBps, rule.Label); err != nil {
			return fmt.Errorf("insert discount rule: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert pricing: %w", err)
	}
	return nil
}
