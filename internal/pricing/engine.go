package pricing

import (
	"errors"
	"time"
)

// ErrInvalidQuantity is returned before any tier or discount logic runs
// when the requested quantity is not a positive integer.
var ErrInvalidQuantity = errors.New("pricing: quantity must be a positive integer")

// Calculate runs the one-shot pipeline: tier resolution, discount
// evaluation, margin guard. It is a pure function of its inputs and the
// supplied instant; identical inputs and time yield identical results.
func Calculate(qty int, p VariantPricing, rate *NegotiatedRate, now time.Time) (Result, error) {
	if qty <= 0 {
		return Result{}, ErrInvalidQuantity
	}

	b, err := Evaluate(qty, p, rate, now)
	if err != nil {
		return Result{}, err
	}

	total := b.Total()
	check := CheckMargin(total, qty, p.Cost, p.MinMarginPercent, b.AppliedTier)

	return Result{
		Quantity:         qty,
		BasePricePerUnit: b.UnitPrice,
		AppliedTier:      b.AppliedTier,
		AppliedRule:      b.AppliedRule,
		Subtotal:         b.Subtotal,
		Discount:         b.Discount,
		DiscountPercent:  float64(b.DiscountBps) / 100,
		Total:            total,
		MarginPercent:    check.MarginPercent,
		Viable:           check.Viable,
		Reason:           check.Reason,
	}, nil
}
