package promo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-fooddist/internal/common"
	"github.com/noah-isme/backend-fooddist/internal/pricing"
)

type promoStore interface {
	GetByCode(ctx context.Context, code string) (Rule, error)
	Create(ctx context.Context, r Rule) error
	List(ctx context.Context) ([]Rule, error)
	Disable(ctx context.Context, code string) error
	IncrementUsage(ctx context.Context, code string) error
}

// Service resolves promo codes into discount-rule candidates and
// handles admin management of the code inventory.
type Service struct {
	store  promoStore
	logger zerolog.Logger
	now    func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  promoStore
	Logger zerolog.Logger
	Now    func() time.Time
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("promo: store is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{store: cfg.Store, logger: cfg.Logger, now: now}, nil
}

// Resolve returns the discount-rule candidate for a promo code applied
// to the given product. Invalid or inapplicable codes are rejected with
// a client error so the caller can surface the reason.
func (s *Service) Resolve(ctx context.Context, code, productID string) (pricing.DiscountRule, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return pricing.DiscountRule{}, promoError(code, errors.New("promo code is required"))
	}
	rule, err := s.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrPromoNotFound) {
			return pricing.DiscountRule{}, &common.AppError{
				Code:       "PROMO_NOT_FOUND",
				Message:    "promo code not found",
				HTTPStatus: http.StatusNotFound,
				Err:        err,
				Details:    map[string]any{"code": code},
			}
		}
		return pricing.DiscountRule{}, fmt.Errorf("resolve promo: %w", err)
	}
	if err := rule.Validate(s.now()); err != nil {
		return pricing.DiscountRule{}, promoError(code, err)
	}
	if !rule.AppliesTo(productID) {
		return pricing.DiscountRule{}, promoError(code, ErrNotApplicable)
	}
	return rule.AsDiscountRule(), nil
}

// RecordUse bumps the usage counter. Best effort: losing a count must
// never fail the quote that applied the promo.
func (s *Service) RecordUse(ctx context.Context, code string) {
	if strings.TrimSpace(code) == "" {
		return
	}
	if err := s.store.IncrementUsage(ctx, code); err != nil {
		s.logger.Warn().Err(err).Str("code", code).Msg("promo usage increment failed")
	}
}

// CreatePromo validates and stores a new promo rule.
func (s *Service) CreatePromo(ctx context.Context, r Rule) error {
	r.Code = strings.TrimSpace(r.Code)
	if r.Code == "" {
		return badRequest("code", "code is required")
	}
	if r.PercentBps <= 0 || r.PercentBps >= 10000 {
		return badRequest("percentBps", "percentBps must be between 1 and 9999")
	}
	if r.MinQuantity < 0 {
		return badRequest("minQuantity", "minQuantity cannot be negative")
	}
	if r.ValidFrom != nil && r.ValidTo != nil && !r.ValidTo.After(*r.ValidFrom) {
		return badRequest("validTo", "validTo must be after validFrom")
	}
	if err := s.store.Create(ctx, r); err != nil {
		return fmt.Errorf("create promo: %w", err)
	}
	return nil
}

// ListPromos returns the full promo inventory.
func (s *Service) ListPromos(ctx context.Context) ([]Rule, error) {
	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list promos: %w", err)
	}
	if rows == nil {
		rows = []Rule{}
	}
	return rows, nil
}

// DisablePromo switches a promo off.
func (s *Service) DisablePromo(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return badRequest("code", "code is required")
	}
	if err := s.store.Disable(ctx, code); err != nil {
		if errors.Is(err, ErrPromoNotFound) {
			return &common.AppError{
				Code:       "PROMO_NOT_FOUND",
				Message:    "promo code not found",
				HTTPStatus: http.StatusNotFound,
				Err:        err,
			}
		}
		return fmt.Errorf("disable promo: %w", err)
	}
	return nil
}

func promoError(code string, err error) *common.AppError {
	return &common.AppError{
		Code:       "PROMO_INVALID",
		Message:    err.Error(),
		HTTPStatus: http.StatusUnprocessableEntity,
		Err:        err,
		Details:    map[string]any{"code": code},
	}
}

func badRequest(field, message string) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"field": field},
	}
}
