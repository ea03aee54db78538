package audit

import "time"

// TaskKind is the queue kind carrying pricing audit records.
const TaskKind = "pricing-audit"

// Record captures one priced quote line for the audit trail. Records
// are written asynchronously so quoting latency never depends on the
// audit store.
type Record struct {
	ID            string    `json:"id"`
	RestaurantID  string    `json:"restaurantId,omitempty"`
	VariantID     string    `json:"variantId"`
	ProductID     string    `json:"productId"`
	Quantity      int       `json:"quantity"`
	AppliedTier   string    `json:"appliedTier"`
	AppliedRule   string    `json:"appliedRule,omitempty"`
	PromoCode     string    `json:"promoCode,omitempty"`
	Subtotal      int64     `json:"subtotal"`
	Discount      int64     `json:"discount"`
	Total         int64     `json:"total"`
	MarginPercent float64   `json:"marginPercent"`
	Viable        bool      `json:"viable"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"createdAt"`
}
