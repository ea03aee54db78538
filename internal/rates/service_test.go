package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-fooddist/internal/pricing"
	"github.com/noah-isme/backend-fooddist/internal/resilience"
)

type stubStore struct {
	rate    *pricing.NegotiatedRate
	err     error
	calls   int
	revoked []string
	expired int64
}

func (s *stubStore) BestRate(context.Context, string, string, int, time.Time) (*pricing.NegotiatedRate, error) {
	s.calls++
	return s.rate, s.err
}

func (s *stubStore) Create(context.Context, pricing.NegotiatedRate) (string, error) {
	return "rate-1", nil
}

func (s *stubStore) Revoke(_ context.Context, id string) error {
	s.revoked = append(s.revoked, id)
	return nil
}

func (s *stubStore) ListByRestaurant(context.Context, string) ([]Rate, error) {
	return nil, nil
}

func (s *stubStore) RevokeExpired(context.Context, time.Time) (int64, error) {
	return s.expired, nil
}

func newService(t *testing.T, store rateStore, breaker *resilience.Breaker) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Store:   store,
		Breaker: breaker,
		Timeout: 50 * time.Millisecond,
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestLookupReturnsRate(t *testing.T) {
	want := &pricing.NegotiatedRate{
		RestaurantID: "rest-1",
		ProductID:    "prod-1",
		PricePerUnit: 3500,
		MinQuantity:  20,
	}
	service := newService(t, &stubStore{rate: want}, nil)

	got := service.Lookup(context.Background(), "rest-1", "prod-1", 25)
	if got == nil || got.PricePerUnit != 3500 {
		t.Fatalf("expected negotiated rate, got %+v", got)
	}
}

func TestLookupFailsOpenOnStoreError(t *testing.T) {
	service := newService(t, &stubStore{err: errors.New("connection refused")}, nil)

	if got := service.Lookup(context.Background(), "rest-1", "prod-1", 25); got != nil {
		t.Fatalf("expected nil rate on store failure, got %+v", got)
	}
}

func TestLookupSkipsStoreWhenBreakerOpen(t *testing.T) {
	store := &stubStore{err: errors.New("connection refused")}
	breaker := resilience.NewBreaker(2, 0.5, time.Hour)
	service := newService(t, store, breaker)

	ctx := context.Background()
	service.Lookup(ctx, "rest-1", "prod-1", 25)
	service.Lookup(ctx, "rest-1", "prod-1", 25)
	callsBefore := store.calls

	if got := service.Lookup(ctx, "rest-1", "prod-1", 25); got != nil {
		t.Fatalf("expected nil rate while breaker open, got %+v", got)
	}
	if store.calls != callsBefore {
		t.Fatalf("expected store untouched while breaker open, calls %d -> %d", callsBefore, store.calls)
	}
}

func TestLookupWithoutRestaurantSkipsStore(t *testing.T) {
	store := &stubStore{}
	service := newService(t, store, nil)

	if got := service.Lookup(context.Background(), "", "prod-1", 25); got != nil {
		t.Fatalf("expected nil rate without restaurant, got %+v", got)
	}
	if store.calls != 0 {
		t.Fatalf("expected store untouched, got %d calls", store.calls)
	}
}

func TestCreateRateRejectsInvalidWindow(t *testing.T) {
	service := newService(t, &stubStore{}, nil)
	from := time.Now()
	_, err := service.CreateRate(context.Background(), pricing.NegotiatedRate{
		RestaurantID: "rest-1",
		ProductID:    "prod-1",
		PricePerUnit: 3500,
		ValidFrom:    from,
		ValidUntil:   from.Add(-time.Hour),
	})
	if err == nil {
		t.Fatal("expected invalid-window error")
	}
}

func TestCreateRateDefaultsMinQuantity(t *testing.T) {
	service := newService(t, &stubStore{}, nil)
	id, err := service.CreateRate(context.Background(), pricing.NegotiatedRate{
		RestaurantID: "rest-1",
		ProductID:    "prod-1",
		PricePerUnit: 3500,
		ValidUntil:   time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create rate: %v", err)
	}
	if id != "rate-1" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestSweepExpiredReportsCount(t *testing.T) {
	service := newService(t, &stubStore{expired: 3}, nil)
	n, err := service.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revoked, got %d", n)
	}
}
