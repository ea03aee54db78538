package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTiers indicates the configuration carries no price tiers at all.
	ErrNoTiers = errors.New("pricing: at least one price tier is required")
	// ErrDuplicateTierMin indicates two tiers share a minimum quantity,
	// which makes closest-below selection ambiguous.
	ErrDuplicateTierMin = errors.New("pricing: duplicate tier minimum quantity")
	// ErrInvalidTier indicates a tier with a malformed band or price.
	ErrInvalidTier = errors.New("pricing: invalid tier")
	// ErrInvalidDiscountRule indicates a rule with a malformed threshold or percentage.
	ErrInvalidDiscountRule = errors.New("pricing: invalid discount rule")
	// ErrNegativeCost indicates a negative per-unit cost of goods.
	ErrNegativeCost = errors.New("pricing: cost must not be negative")
	// ErrMarginFloorRange indicates a margin floor outside [0, 100).
	ErrMarginFloorRange = errors.New("pricing: min margin percent must be in [0, 100)")
)

// Validate rejects malformed pricing configuration eagerly, before any
// calculation can observe it. Overlapping tier bands are legal (selection
// picks the highest qualifying minimum); duplicate minimums are not.
func (p VariantPricing) Validate() error {
	if p.Cost < 0 {
		return ErrNegativeCost
	}
	if p.MinMarginPercent < 0 || p.MinMarginPercent >= 100 {
		return ErrMarginFloorRange
	}
	if len(p.Tiers) == 0 {
		return ErrNoTiers
	}
	seen := make(map[int]string, len(p.Tiers))
	for _, tier := range p.Tiers {
		if tier.MinQuantity <= 0 {
			return fmt.Errorf("%w: %q minimum quantity %d", ErrInvalidTier, tier.Name, tier.MinQuantity)
		}
		if tier.MaxQuantity != nil && *tier.MaxQuantity < tier.MinQuantity {
			return fmt.Errorf("%w: %q empty quantity band", ErrInvalidTier, tier.Name)
		}
		if tier.PricePerUnit <= 0 {
			return fmt.Errorf("%w: %q price per unit %d", ErrInvalidTier, tier.Name, tier.PricePerUnit)
		}
		if prev, ok := seen[tier.MinQuantity]; ok {
			return fmt.Errorf("%w: %d shared by %q and %q", ErrDuplicateTierMin, tier.MinQuantity, prev, tier.Name)
		}
		seen[tier.MinQuantity] = tier.Name
	}
	for _, rule := range p.DiscountRules {
		if rule.Quantity <= 0 {
			return fmt.Errorf("%w: threshold %d", ErrInvalidDiscountRule, rule.Quantity)
		}
		if rule.PercentBps <= 0 || rule.PercentBps >= 10000 {
			return fmt.Errorf("%w: %d bps", ErrInvalidDiscountRule, rule.PercentBps)
		}
	}
	return nil
}
