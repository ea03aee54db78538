package pricing

import "errors"

// ErrNoTierFound is returned when no configured tier covers the
// requested quantity. Callers must treat this as a hard failure and
// never substitute a default tier.
var ErrNoTierFound = errors.New("pricing: no tier covers the requested quantity")

// ResolveTier selects, among tiers whose band contains qty, the one with
// the highest MinQuantity. Tier sets with duplicate minimums are rejected
// by Validate before they reach this point.
func ResolveTier(qty int, tiers []PriceTier) (PriceTier, error) {
	var (
		best  PriceTier
		found bool
	)
	for _, tier := range tiers {
		if !tier.Contains(qty) {
			continue
		}
		if !found || tier.MinQuantity > best.MinQuantity {
			best = tier
			found = true
		}
	}
	if !found {
		return PriceTier{}, ErrNoTierFound
	}
	return best, nil
}
