package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newIdemHandler(t *testing.T) (Idem, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return Idem{R: client, TTL: time.Minute}, mr
}

func TestIdemMiddlewareRejectsReplay(t *testing.T) {
	idem, _ := newIdemHandler(t)
	guarded := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
	req.Header.Set("Idempotency-Key", "quote-2024-rest-1")

	rr1 := httptest.NewRecorder()
	guarded.ServeHTTP(rr1, req.Clone(req.Context()))
	if rr1.Code != http.StatusCreated {
		t.Fatalf("expected first request through, got %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	guarded.ServeHTTP(rr2, req.Clone(req.Context()))
	if rr2.Code != http.StatusConflict {
		t.Fatalf("expected 409 on replay, got %d", rr2.Code)
	}
	var body struct {
		Error ErrorBody `json:"error"`
	}
	if err := json.NewDecoder(rr2.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != "IDEMPOTENT_REPLAY" {
		t.Fatalf("unexpected error code %q", body.Error.Code)
	}
}

func TestIdemMiddlewareAllowsReuseAfterTTL(t *testing.T) {
	idem, mr := newIdemHandler(t)
	guarded := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
	req.Header.Set("Idempotency-Key", "quote-2024-rest-1")

	rr1 := httptest.NewRecorder()
	guarded.ServeHTTP(rr1, req.Clone(req.Context()))
	if rr1.Code != http.StatusCreated {
		t.Fatalf("expected first request through, got %d", rr1.Code)
	}

	mr.FastForward(2 * time.Minute)

	rr2 := httptest.NewRecorder()
	guarded.ServeHTTP(rr2, req.Clone(req.Context()))
	if rr2.Code != http.StatusCreated {
		t.Fatalf("expected key reusable after expiry, got %d", rr2.Code)
	}
}

func TestIdemMiddlewarePassesWithoutHeader(t *testing.T) {
	idem, _ := newIdemHandler(t)
	guarded := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		guarded.ServeHTTP(rr, req.Clone(req.Context()))
		if rr.Code != http.StatusCreated {
			t.Fatalf("request %d without key must pass, got %d", i+1, rr.Code)
		}
	}
}
