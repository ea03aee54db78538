package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/noah-isme/backend-fooddist/internal/app"
)

func TestRequireServiceKey(t *testing.T) {
	hash, err := app.HashServiceKey("sweep-key")
	if err != nil {
		t.Fatalf("hash key: %v", err)
	}

	var reached bool
	handler := RequireServiceKey(hash)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/internal/sweep", nil)
	req.Header.Set(ServiceKeyHeader, "sweep-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if !reached || rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got status %d", rec.Code)
	}

	reached = false
	req = httptest.NewRequest(http.MethodPost, "/internal/sweep", nil)
	req.Header.Set(ServiceKeyHeader, "wrong-key")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if reached || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected rejection, got status %d", rec.Code)
	}
}

func TestRequireServiceKeyUnconfigured(t *testing.T) {
	handler := RequireServiceKey("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without configured hash")
	}))
	req := httptest.NewRequest(http.MethodPost, "/internal/sweep", nil)
	req.Header.Set(ServiceKeyHeader, "anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
