package pricing

import "time"

// Money represents a monetary value stored in minor units.
type Money = int64

// AppliedRuleNegotiated labels results produced by a negotiated rate
// bypassing the tier and discount logic.
const AppliedRuleNegotiated = "negotiated_rate"

// PriceTier is a quantity band with its per-unit price. MaxQuantity nil
// means the band is open-ended.
type PriceTier struct {
	Name         string `json:"name"`
	MinQuantity  int    `json:"minQuantity"`
	MaxQuantity  *int   `json:"maxQuantity,omitempty"`
	PricePerUnit Money  `json:"pricePerUnit"`
}

// Contains reports whether the tier's quantity band covers qty.
func (t PriceTier) Contains(qty int) bool {
	if qty < t.MinQuantity {
		return false
	}
	if t.MaxQuantity != nil && qty > *t.MaxQuantity {
		return false
	}
	return true
}

// DiscountRule grants a percentage discount once the ordered quantity
// reaches the threshold. Percentages are stored in basis points.
type DiscountRule struct {
	Quantity   int    `json:"quantity"`
	PercentBps int32  `json:"percentBps"`
	Label      string `json:"label,omitempty"`
}

// VariantPricing is the per-variant pricing configuration read by the
// calculation. It is configured externally and treated as read-only here.
type VariantPricing struct {
	VariantID        string         `json:"variantId"`
	ProductID        string         `json:"productId"`
	BasePrice        Money          `json:"basePrice"`
	Cost             Money          `json:"cost"`
	MinMarginPercent float64        `json:"minMarginPercent"`
	Tiers            []PriceTier    `json:"tiers"`
	DiscountRules    []DiscountRule `json:"discountRules"`
}

// NegotiatedRate is a restaurant-specific, time-bounded override price
// that supersedes tier and discount logic.
type NegotiatedRate struct {
	RestaurantID string    `json:"restaurantId"`
	ProductID    string    `json:"productId"`
	PricePerUnit Money     `json:"pricePerUnit"`
	MinQuantity  int       `json:"minQuantity"`
	ValidFrom    time.Time `json:"validFrom"`
	ValidUntil   time.Time `json:"validUntil"`
	NegotiatedBy string    `json:"negotiatedBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Eligible reports whether the rate may be applied for the quantity at
// the given instant. An expired or not-yet-valid rate is treated exactly
// like no rate at all.
func (r NegotiatedRate) Eligible(qty int, now time.Time) bool {
	if qty < r.MinQuantity {
		return false
	}
	if now.Before(r.ValidFrom) {
		return false
	}
	if !r.ValidUntil.IsZero() && now.After(r.ValidUntil) {
		return false
	}
	return true
}

// Result is the immutable output of one calculation. Callers must not
// charge a result with Viable=false.
type Result struct {
	Quantity         int     `json:"quantity"`
	BasePricePerUnit Money   `json:"basePricePerUnit"`
	AppliedTier      string  `json:"appliedTier"`
	AppliedRule      string  `json:"appliedRule,omitempty"`
	Subtotal         Money   `json:"subtotal"`
	Discount         Money   `json:"discount"`
	DiscountPercent  float64 `json:"discountPercent"`
	Total            Money   `json:"total"`
	MarginPercent    float64 `json:"marginPercent"`
	Viable           bool    `json:"viable"`
	Reason           string  `json:"reason"`
}
