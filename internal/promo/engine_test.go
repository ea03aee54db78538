package promo

import (
	"errors"
	"testing"
	"time"
)

func TestRuleValidateWindows(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		rule Rule
		want error
	}{
		{"active", Rule{Code: "SUMMER", PercentBps: 500, ValidFrom: &past, ValidTo: &future}, nil},
		{"disabled", Rule{Code: "SUMMER", PercentBps: 500, Disabled: true}, ErrPromoDisabled},
		{"not yet active", Rule{Code: "SUMMER", PercentBps: 500, ValidFrom: &future}, ErrPromoInactive},
		{"expired", Rule{Code: "SUMMER", PercentBps: 500, ValidTo: &past}, ErrPromoExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate(now)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRuleValidateUsageLimit(t *testing.T) {
	limit := int32(100)
	rule := Rule{Code: "SUMMER", PercentBps: 500, UsageLimit: &limit, UsedCount: 100}
	if err := rule.Validate(time.Now()); !errors.Is(err, ErrUsageLimitReached) {
		t.Fatalf("expected usage limit error, got %v", err)
	}
	rule.UsedCount = 99
	if err := rule.Validate(time.Now()); err != nil {
		t.Fatalf("expected valid rule, got %v", err)
	}
}

func TestRuleAppliesTo(t *testing.T) {
	unscoped := Rule{Code: "ALL"}
	if !unscoped.AppliesTo("prod-1") {
		t.Fatal("unscoped rule should apply to every product")
	}
	scoped := Rule{Code: "DAIRY", ProductIDs: []string{"prod-1", "prod-2"}}
	if !scoped.AppliesTo("prod-2") {
		t.Fatal("scoped rule should apply to listed product")
	}
	if scoped.AppliesTo("prod-9") {
		t.Fatal("scoped rule should not apply to unlisted product")
	}
}

func TestAsDiscountRule(t *testing.T) {
	rule := Rule{Code: "SUMMER", PercentBps: 750, MinQuantity: 20, Label: "summer promo"}
	got := rule.AsDiscountRule()
	if got.Quantity != 20 || got.PercentBps != 750 || got.Label != "summer promo" {
		t.Fatalf("unexpected discount rule %+v", got)
	}

	bare := Rule{Code: "SUMMER", PercentBps: 750}
	got = bare.AsDiscountRule()
	if got.Quantity != 1 {
		t.Fatalf("expected default threshold 1, got %d", got.Quantity)
	}
	if got.Label != "promo:SUMMER" {
		t.Fatalf("unexpected fallback label %q", got.Label)
	}
}
