package pricing

import "time"

// Breakdown is the discount evaluator's intermediate output consumed by
// the margin guard.
type Breakdown struct {
	UnitPrice   Money
	Subtotal    Money
	Discount    Money
	DiscountBps int32
	AppliedTier string
	AppliedRule string
}

// Total returns the payable amount after discount.
func (b Breakdown) Total() Money {
	return b.Subtotal - b.Discount
}

// Evaluate computes the discounted subtotal for the quantity. A valid
// negotiated rate short-circuits everything: the subtotal is priced at
// the negotiated per-unit price, discount fields stay zero, and no tier
// or rule logic runs. On the standard path the tier subtotal is reduced
// by the single best-matching discount rule, if any.
func Evaluate(qty int, p VariantPricing, rate *NegotiatedRate, now time.Time) (Breakdown, error) {
	if rate != nil && rate.Eligible(qty, now) {
		return Breakdown{
			UnitPrice:   rate.PricePerUnit,
			Subtotal:    Money(qty) * rate.PricePerUnit,
			AppliedTier: AppliedRuleNegotiated,
			AppliedRule: AppliedRuleNegotiated,
		}, nil
	}

	tier, err := ResolveTier(qty, p.Tiers)
	if err != nil {
		return Breakdown{}, err
	}
	b := Breakdown{
		UnitPrice:   tier.PricePerUnit,
		Subtotal:    Money(qty) * tier.PricePerUnit,
		AppliedTier: tier.Name,
	}
	if rule, ok := bestRule(qty, p.DiscountRules); ok {
		b.Discount = b.Subtotal * Money(rule.PercentBps) / 10000
		b.DiscountBps = rule.PercentBps
		b.AppliedRule = rule.Label
	}
	return b, nil
}

// bestRule picks the rule with the highest threshold not exceeding qty.
// At most one rule ever applies per calculation.
func bestRule(qty int, rules []DiscountRule) (DiscountRule, bool) {
	var (
		best  DiscountRule
		found bool
	)
	for _, rule := range rules {
		if rule.Quantity > qty || rule.PercentBps <= 0 {
			continue
		}
		if !found || rule.Quantity > best.Quantity {
			best = rule
			found = true
		}
	}
	return best, found
}
