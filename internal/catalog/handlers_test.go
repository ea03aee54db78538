package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-fooddist/internal/pricing"
)

type stubStore struct {
	byID  map[string]pricing.VariantPricing
	saved []pricing.VariantPricing
}

func (s *stubStore) GetVariantPricing(_ context.Context, variantID string) (pricing.VariantPricing, error) {
	p, ok := s.byID[variantID]
	if !ok {
		return pricing.VariantPricing{}, ErrPricingNotFound
	}
	return p, nil
}

func (s *stubStore) UpsertVariantPricing(_ context.Context, p pricing.VariantPricing) error {
	s.saved = append(s.saved, p)
	if s.byID == nil {
		s.byID = map[string]pricing.VariantPricing{}
	}
	s.byID[p.VariantID] = p
	return nil
}

func validPricing(variantID string) pricing.VariantPricing {
	max10 := 10
	return pricing.VariantPricing{
		VariantID:        variantID,
		ProductID:        "prod-1",
		BasePrice:        5000,
		Cost:             3800,
		MinMarginPercent: 15,
		Tiers: []pricing.PriceTier{
			{Name: "1-10 units", MinQuantity: 1, MaxQuantity: &max10, PricePerUnit: 5000},
			{Name: "11+ units", MinQuantity: 11, PricePerUnit: 4500},
		},
		DiscountRules: []pricing.DiscountRule{
			{Quantity: 30, PercentBps: 1000, Label: "bulk-30"},
		},
	}
}

func newTestRouter(t *testing.T, store *stubStore) http.Handler {
	t.Helper()
	service, err := NewService(ServiceConfig{Store: store, Logger: zerolog.Nop()})
	require.NoError(t, err)
	handler := NewHandler(HandlerConfig{Service: service})
	r := chi.NewRouter()
	r.Get("/api/v1/variants/{variantID}/pricing", handler.VariantPricing)
	r.Put("/api/v1/admin/variants/{variantID}/pricing", handler.UpsertPricing)
	return r
}

func TestVariantPricingReturnsConfiguration(t *testing.T) {
	store := &stubStore{byID: map[string]pricing.VariantPricing{"v-1": validPricing("v-1")}}
	router := newTestRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/variants/v-1/pricing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data pricing.VariantPricing `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "v-1", body.Data.VariantID)
	require.Len(t, body.Data.Tiers, 2)
	require.Len(t, body.Data.DiscountRules, 1)
}

func TestVariantPricingNotFound(t *testing.T) {
	router := newTestRouter(t, &stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/variants/missing/pricing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpsertPricingPersistsConfiguration(t *testing.T) {
	store := &stubStore{}
	router := newTestRouter(t, store)

	payload := validPricing("ignored")
	payload.VariantID = ""
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/variants/v-9/pricing", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.saved, 1)
	require.Equal(t, "v-9", store.saved[0].VariantID)
}

func TestUpsertPricingRejectsInvalidConfiguration(t *testing.T) {
	store := &stubStore{}
	router := newTestRouter(t, store)

	payload := validPricing("v-9")
	payload.Tiers = nil
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/variants/v-9/pricing", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Empty(t, store.saved)
}

func TestUpsertPricingRejectsDuplicateTierMinimums(t *testing.T) {
	store := &stubStore{}
	router := newTestRouter(t, store)

	payload := validPricing("v-9")
	payload.Tiers = append(payload.Tiers, pricing.PriceTier{Name: "dup", MinQuantity: 11, PricePerUnit: 4400})
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/variants/v-9/pricing", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetPricingSurfacesInvalidStoredConfiguration(t *testing.T) {
	broken := validPricing("v-1")
	broken.Tiers = nil
	store := &stubStore{byID: map[string]pricing.VariantPricing{"v-1": broken}}
	router := newTestRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/variants/v-1/pricing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "PRICING_CONFIG_INVALID")
}
