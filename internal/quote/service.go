package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-fooddist/internal/audit"
	"github.com/noah-isme/backend-fooddist/internal/common"
	"github.com/noah-isme/backend-fooddist/internal/obs"
	"github.com/noah-isme/backend-fooddist/internal/pricing"
	"github.com/noah-isme/backend-fooddist/internal/promo"
)

// PricingSource loads validated variant pricing configurations.
type PricingSource interface {
	GetPricing(ctx context.Context, variantID string) (pricing.VariantPricing, error)
}

// RateSource finds the best eligible negotiated rate, nil when none.
type RateSource interface {
	Lookup(ctx context.Context, restaurantID, productID string, qty int) *pricing.NegotiatedRate
}

// PromoSource resolves promo codes into discount-rule candidates.
type PromoSource interface {
	Resolve(ctx context.Context, code, productID string) (pricing.DiscountRule, error)
	RecordUse(ctx context.Context, code string)
}

// Auditor receives priced lines for the audit trail.
type Auditor interface {
	Submit(ctx context.Context, r audit.Record)
}

// LineRequest is one requested quote line.
type LineRequest struct {
	VariantID string
	Quantity  int
}

// Request is a full quote request for one restaurant.
type Request struct {
	Lines     []LineRequest
	PromoCode string
}

// Line is one priced line of the quote.
type Line struct {
	VariantID string         `json:"variantId"`
	ProductID string         `json:"productId"`
	Result    pricing.Result `json:"result"`
}

// Quote is the aggregate quoting outcome. Totals cover every line;
// a quote with any non-viable line is itself non-viable and must not
// be converted into an order.
type Quote struct {
	RestaurantID string `json:"restaurantId,omitempty"`
	Currency     string `json:"currency"`
	Lines        []Line `json:"lines"`
	Subtotal     int64  `json:"subtotal"`
	Discount     int64  `json:"discount"`
	Total        int64  `json:"total"`
	Viable       bool   `json:"viable"`
}

// Service orchestrates the per-line price calculation across pricing
// configuration, negotiated rates, and promo codes.
type Service struct {
	pricings PricingSource
	rates    RateSource
	promos   PromoSource
	auditor  Auditor
	currency string
	logger   zerolog.Logger
	now      func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Pricings PricingSource
	Rates    RateSource
	Promos   PromoSource
	Auditor  Auditor
	Currency string
	Logger   zerolog.Logger
	Now      func() time.Time
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Pricings == nil {
		return nil, errors.New("quote: pricing source is required")
	}
	currency := strings.TrimSpace(cfg.Currency)
	if currency == "" {
		currency = "GEL"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		pricings: cfg.Pricings,
		rates:    cfg.Rates,
		promos:   cfg.Promos,
		auditor:  cfg.Auditor,
		currency: currency,
		logger:   cfg.Logger,
		now:      now,
	}, nil
}

// Calculate prices every requested line and aggregates the quote.
// Deterministic for a fixed instant: the same request against the same
// configuration always yields the same quote.
func (s *Service) Calculate(ctx context.Context, restaurantID string, req Request) (Quote, error) {
	started := time.Now()
	if len(req.Lines) == 0 {
		return Quote{}, &common.AppError{
			Code:       "BAD_REQUEST",
			Message:    "at least one line is required",
			HTTPStatus: http.StatusBadRequest,
		}
	}

	promoCode := strings.TrimSpace(req.PromoCode)
	now := s.now()

	q := Quote{RestaurantID: restaurantID, Currency: s.currency, Viable: true}
	promoApplied := false
	for _, lineReq := range req.Lines {
		p, err := s.pricings.GetPricing(ctx, lineReq.VariantID)
		if err != nil {
			recordLine("error")
			return Quote{}, err
		}

		// A promo that does not cover this line's product is skipped
		// for the line; a promo invalid outright fails the request.
		var promoRule *pricing.DiscountRule
		if promoCode != "" && s.promos != nil {
			rule, err := s.promos.Resolve(ctx, promoCode, p.ProductID)
			switch {
			case err == nil:
				promoRule = &rule
			case errors.Is(err, promo.ErrNotApplicable):
			default:
				return Quote{}, err
			}
		}

		var rate *pricing.NegotiatedRate
		if s.rates != nil {
			rate = s.rates.Lookup(ctx, restaurantID, p.ProductID, lineReq.Quantity)
		}

		candidate := p
		if promoRule != nil {
			candidate.DiscountRules = append(append([]pricing.DiscountRule{}, p.DiscountRules...), *promoRule)
		}

		result, err := pricing.Calculate(lineReq.Quantity, candidate, rate, now)
		if err != nil {
			recordLine("error")
			return Quote{}, mapEngineError(lineReq.VariantID, err)
		}

		// A discounted price that breaks the margin floor gets one
		// retry without discounts. Negotiated prices are deliberate,
		// their margin outcome stands.
		fellBack := false
		if !result.Viable && result.AppliedRule != "" && result.AppliedRule != pricing.AppliedRuleNegotiated {
			bare := p
			bare.DiscountRules = nil
			retry, retryErr := pricing.Calculate(lineReq.Quantity, bare, nil, now)
			if retryErr == nil && retry.Viable {
				s.logger.Info().
					Str("variant_id", lineReq.VariantID).
					Str("dropped_rule", result.AppliedRule).
					Msg("discount dropped to preserve margin floor")
				result = retry
				fellBack = true
			}
		}

		if promoRule != nil && result.AppliedRule == promoRule.Label {
			promoApplied = true
		}

		line := Line{VariantID: p.VariantID, ProductID: p.ProductID, Result: result}
		q.Lines = append(q.Lines, line)
		q.Subtotal += result.Subtotal
		q.Discount += result.Discount
		q.Total += result.Total
		// Each line counts under exactly one outcome label.
		switch {
		case !result.Viable:
			q.Viable = false
			recordLine("non_viable")
		case fellBack:
			recordLine("fallback")
		default:
			recordLine("viable")
		}
		if obs.TierSelectedTotal != nil && result.AppliedTier != "" {
			obs.TierSelectedTotal.WithLabelValues(result.AppliedTier).Inc()
		}

		if s.auditor != nil {
			s.auditor.Submit(ctx, audit.Record{
				RestaurantID:  restaurantID,
				VariantID:     p.VariantID,
				ProductID:     p.ProductID,
				Quantity:      result.Quantity,
				AppliedTier:   result.AppliedTier,
				AppliedRule:   result.AppliedRule,
				PromoCode:     promoCode,
				Subtotal:      result.Subtotal,
				Discount:      result.Discount,
				Total:         result.Total,
				MarginPercent: result.MarginPercent,
				Viable:        result.Viable,
				Reason:        result.Reason,
			})
		}
	}

	if promoApplied && s.promos != nil {
		s.promos.RecordUse(ctx, promoCode)
	}
	if obs.QuoteDuration != nil {
		obs.QuoteDuration.Observe(float64(time.Since(started).Milliseconds()))
	}
	return q, nil
}

func mapEngineError(variantID string, err error) error {
	switch {
	case errors.Is(err, pricing.ErrInvalidQuantity):
		return &common.AppError{
			Code:       "BAD_REQUEST",
			Message:    "quantity must be positive",
			HTTPStatus: http.StatusBadRequest,
			Err:        err,
			Details:    map[string]any{"variantId": variantID},
		}
	case errors.Is(err, pricing.ErrNoTierFound):
		return &common.AppError{
			Code:       "NO_TIER",
			Message:    "no price tier covers the requested quantity",
			HTTPStatus: http.StatusUnprocessableEntity,
			Err:        err,
			Details:    map[string]any{"variantId": variantID},
		}
	default:
		return fmt.Errorf("calculate line %s: %w", variantID, err)
	}
}

func recordLine(result string) {
	if obs.QuoteLinesTotal != nil {
		obs.QuoteLinesTotal.WithLabelValues(result).Inc()
	}
}
