package promo

import (
	"errors"
	"strings"
	"time"

	"github.com/noah-isme/backend-fooddist/internal/pricing"
)

var (
	// ErrPromoDisabled is returned when the promo code has been switched off.
	ErrPromoDisabled = errors.New("promo code disabled")
	// ErrPromoInactive is returned when the promo is used before its window opens.
	ErrPromoInactive = errors.New("promo code not active yet")
	// ErrPromoExpired is returned when the promo window has closed.
	ErrPromoExpired = errors.New("promo code expired")
	// ErrUsageLimitReached indicates the promo exhausted its global quota.
	ErrUsageLimitReached = errors.New("promo usage limit reached")
	// ErrNotApplicable is returned when the promo does not cover the product.
	ErrNotApplicable = errors.New("promo code not applicable to product")
)

// Rule captures the runtime constraints of a promo code. A valid rule
// translates into one extra discount-rule candidate for the evaluation,
// competing with the variant's configured rules on threshold.
type Rule struct {
	Code        string
	PercentBps  int32
	MinQuantity int
	Label       string
	ProductIDs  []string
	ValidFrom   *time.Time
	ValidTo     *time.Time
	UsageLimit  *int32
	UsedCount   int32
	Disabled    bool
}

// Validate ensures the rule can be applied at the provided instant.
func (r Rule) Validate(now time.Time) error {
	if r.Disabled {
		return ErrPromoDisabled
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrPromoInactive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrPromoExpired
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// AppliesTo reports whether the rule covers the product. An unscoped
// rule covers every product.
func (r Rule) AppliesTo(productID string) bool {
	if len(r.ProductIDs) == 0 {
		return true
	}
	for _, id := range r.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// AsDiscountRule converts the promo into a discount-rule candidate.
func (r Rule) AsDiscountRule() pricing.DiscountRule {
	threshold := r.MinQuantity
	if threshold < 1 {
		threshold = 1
	}
	label := strings.TrimSpace(r.Label)
	if label == "" {
		label = "promo:" + r.Code
	}
	return pricing.DiscountRule{
		Quantity:   threshold,
		PercentBps: r.PercentBps,
		Label:      label,
	}
}
