package rates

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-fooddist/internal/common"
	"github.com/noah-isme/backend-fooddist/internal/pricing"
)

// Handler exposes admin endpoints for negotiated rates.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

type createRateRequest struct {
	RestaurantID string    `json:"restaurantId"`
	ProductID    string    `json:"productId"`
	PricePerUnit int64     `json:"pricePerUnit"`
	MinQuantity  int       `json:"minQuantity"`
	ValidFrom    time.Time `json:"validFrom"`
	ValidUntil   time.Time `json:"validUntil"`
	NegotiatedBy string    `json:"negotiatedBy"`
}

// Create handles POST /api/v1/admin/rates.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rates service not configured", nil)
		return
	}
	var payload createRateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	id, err := h.service.CreateRate(r.Context(), pricing.NegotiatedRate{
		RestaurantID: payload.RestaurantID,
		ProductID:    payload.ProductID,
		PricePerUnit: payload.PricePerUnit,
		MinQuantity:  payload.MinQuantity,
		ValidFrom:    payload.ValidFrom,
		ValidUntil:   payload.ValidUntil,
		NegotiatedBy: payload.NegotiatedBy,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, map[string]string{"id": id})
}

// List handles GET /api/v1/admin/restaurants/{restaurantID}/rates.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rates service not configured", nil)
		return
	}
	rows, err := h.service.ListRates(r.Context(), chi.URLParam(r, "restaurantID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, rows)
}

// Revoke handles DELETE /api/v1/admin/rates/{rateID}.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rates service not configured", nil)
		return
	}
	if err := h.service.RevokeRate(r.Context(), chi.URLParam(r, "rateID")); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]bool{"revoked": true})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := appErr.Code
		if code == "" {
			code = "INTERNAL"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
