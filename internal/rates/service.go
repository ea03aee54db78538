package rates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-fooddist/internal/common"
	"github.com/noah-isme/backend-fooddist/internal/obs"
	"github.com/noah-isme/backend-fooddist/internal/pricing"
	"github.com/noah-isme/backend-fooddist/internal/resilience"
)

type rateStore interface {
	BestRate(ctx context.Context, restaurantID, productID string, qty int, now time.Time) (*pricing.NegotiatedRate, error)
	Create(ctx context.Context, r pricing.NegotiatedRate) (string, error)
	Revoke(ctx context.Context, id string) error
	ListByRestaurant(ctx context.Context, restaurantID string) ([]Rate, error)
	RevokeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Service wraps negotiated-rate storage with a circuit breaker and a
// lookup deadline so rate trouble never blocks quoting.
type Service struct {
	store   rateStore
	breaker *resilience.Breaker
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store   rateStore
	Breaker *resilience.Breaker
	Timeout time.Duration
	Logger  zerolog.Logger
	Now     func() time.Time
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("rates: store is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Millisecond
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:   cfg.Store,
		breaker: cfg.Breaker,
		timeout: timeout,
		logger:  cfg.Logger,
		now:     now,
	}, nil
}

// Lookup returns the best eligible negotiated rate for the line, or nil
// when none applies. Lookup fails open: a slow or failing store yields
// nil so quoting continues on standard tier pricing.
func (s *Service) Lookup(ctx context.Context, restaurantID, productID string, qty int) *pricing.NegotiatedRate {
	if strings.TrimSpace(restaurantID) == "" || strings.TrimSpace(productID) == "" {
		return nil
	}
	if s.breaker != nil && !s.breaker.Allow(ctx) {
		recordLookup("fail_open")
		return nil
	}
	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rate, err := s.store.BestRate(lookupCtx, restaurantID, productID, qty, s.now())
	if s.breaker != nil {
		s.breaker.Report(ctx, err == nil)
	}
	if err != nil {
		s.logger.Warn().Err(err).
			Str("restaurant_id", restaurantID).
			Str("product_id", productID).
			Msg("negotiated rate lookup failed, continuing without rate")
		recordLookup("fail_open")
		return nil
	}
	if rate == nil {
		recordLookup("miss")
		return nil
	}
	recordLookup("hit")
	return rate
}

// CreateRate validates and stores a new negotiated rate.
func (s *Service) CreateRate(ctx context.Context, r pricing.NegotiatedRate) (string, error) {
	if strings.TrimSpace(r.RestaurantID) == "" {
		return "", badRequest("restaurantId", "restaurantId is required")
	}
	if strings.TrimSpace(r.ProductID) == "" {
		return "", badRequest("productId", "productId is required")
	}
	if r.PricePerUnit <= 0 {
		return "", badRequest("pricePerUnit", "pricePerUnit must be positive")
	}
	if r.MinQuantity < 1 {
		r.MinQuantity = 1
	}
	if r.ValidFrom.IsZero() {
		r.ValidFrom = s.now()
	}
	if r.ValidUntil.IsZero() || !r.ValidUntil.After(r.ValidFrom) {
		return "", badRequest("validUntil", "validUntil must be after validFrom")
	}
	id, err := s.store.Create(ctx, r)
	if err != nil {
		return "", fmt.Errorf("create rate: %w", err)
	}
	return id, nil
}

// RevokeRate revokes an active rate.
func (s *Service) RevokeRate(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return badRequest("rateId", "rateId is required")
	}
	if err := s.store.Revoke(ctx, id); err != nil {
		if errors.Is(err, ErrRateNotFound) {
			return &common.AppError{
				Code:       "NOT_FOUND",
				Message:    "negotiated rate not found",
				HTTPStatus: http.StatusNotFound,
				Err:        err,
			}
		}
		return fmt.Errorf("revoke rate: %w", err)
	}
	return nil
}

// ListRates returns all rates for a restaurant.
func (s *Service) ListRates(ctx context.Context, restaurantID string) ([]Rate, error) {
	if strings.TrimSpace(restaurantID) == "" {
		return nil, badRequest("restaurantId", "restaurantId is required")
	}
	rows, err := s.store.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	if rows == nil {
		rows = []Rate{}
	}
	return rows, nil
}

// SweepExpired revokes rates whose validity window has passed. The
// worker runs this periodically so expired rates cannot linger active.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	revoked, err := s.store.RevokeExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired rates: %w", err)
	}
	if revoked > 0 && obs.RateSweepRevoked != nil {
		obs.RateSweepRevoked.Add(float64(revoked))
	}
	return revoked, nil
}

func recordLookup(result string) {
	if obs.RateLookupTotal != nil {
		obs.RateLookupTotal.WithLabelValues(result).Inc()
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
