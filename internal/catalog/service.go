package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-fooddist/internal/common"
	"github.com/noah-isme/backend-fooddist/internal/pricing"
)

type pricingStore interface {
	GetVariantPricing(ctx context.Context, variantID string) (pricing.VariantPricing, error)
	UpsertVariantPricing(ctx context.Context, p pricing.VariantPricing) error
}

// Service loads, validates, and caches variant pricing configurations.
type Service struct {
	store  pricingStore
	cache  *Cache
	logger zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  pricingStore
	Cache  *Cache
	Logger zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: pricing store is required")
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, logger: cfg.Logger}, nil
}

// GetPricing returns the validated pricing configuration for a variant.
// A stored configuration that fails validation is a data defect and is
// surfaced as an internal error rather than silently repaired.
func (s *Service) GetPricing(ctx context.Context, variantID string) (pricing.VariantPricing, error) {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return pricing.VariantPricing{}, badRequest("variantId", "variantId is required", nil)
	}
	key := pricingCacheKey(variantID)
	if s.cache != nil {
		var cached pricing.VariantPricing
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return cached, nil
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("variant_id", variantID).Msg("pricing cache read failed")
		}
	}
	p, err := s.store.GetVariantPricing(ctx, variantID)
	if err != nil {
		if errors.Is(err, ErrPricingNotFound) {
			return pricing.VariantPricing{}, &common.AppError{
				Code:       "NOT_FOUND",
				Message:    "variant pricing not found",
				HTTPStatus: http.StatusNotFound,
				Err:        err,
			}
		}
		return pricing.VariantPricing{}, fmt.Errorf("load variant pricing: %w", err)
	}
	if err := p.Validate(); err != nil {
		return pricing.VariantPricing{}, &common.AppError{
			Code:       "PRICING_CONFIG_INVALID",
			Message:    "stored pricing configuration is invalid",
			HTTPStatus: http.StatusInternalServerError,
			Err:        err,
			Details:    map[string]any{"variantId": variantID},
		}
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, p); err != nil {
			s.logger.Warn().Err(err).Str("variant_id", variantID).Msg("pricing cache write failed")
		}
	}
	return p, nil
}

// SavePricing validates and persists a pricing configuration, then
// drops the cached copy so readers pick up the new version.
func (s *Service) SavePricing(ctx context.Context, p pricing.VariantPricing) error {
	if strings.TrimSpace(p.VariantID) == "" {
		return badRequest("variantId", "variantId is required", nil)
	}
	if strings.TrimSpace(p.ProductID) == "" {
		return badRequest("productId", "productId is required", nil)
	}
	if err := p.Validate(); err != nil {
		return &common.AppError{
			Code:       "VALIDATION",
			Message:    err.Error(),
			HTTPStatus: http.StatusUnprocessableEntity,
			Err:        err,
		}
	}
	if err := s.store.UpsertVariantPricing(ctx, p); err != nil {
		return fmt.Errorf("save variant pricing: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, pricingCacheKey(p.VariantID)); err != nil {
			s.logger.Warn().Err(err).Str("variant_id", p.VariantID).Msg("pricing cache invalidation failed")
		}
	}
	return nil
}

func pricingCacheKey(variantID string) string {
	return "pricing:variant:" + variantID
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}
