package promo

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-fooddist/internal/common"
)

// Handler exposes admin endpoints for promo codes.
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

type createPromoRequest struct {
	Code        string     `json:"code"`
	PercentBps  int32      `json:"percentBps"`
	MinQuantity int        `json:"minQuantity"`
	Label       string     `json:"label"`
	ProductIDs  []string   `json:"productIds"`
	ValidFrom   *time.Time `json:"validFrom"`
	ValidTo     *time.Time `json:"validTo"`
	UsageLimit  *int32     `json:"usageLimit"`
}

// Create handles POST /api/v1/admin/promos.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo service not configured", nil)
		return
	}
	var payload createPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	rule := Rule{
		Code:        payload.Code,
		PercentBps:  payload.PercentBps,
		MinQuantity: payload.MinQuantity,
		Label:       payload.Label,
		ProductIDs:  payload.ProductIDs,
		ValidFrom:   payload.ValidFrom,
		ValidTo:     payload.ValidTo,
		UsageLimit:  payload.UsageLimit,
	}
	if err := h.service.CreatePromo(r.Context(), rule); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, map[string]string{"code": rule.Code})
}

// List handles GET /api/v1/admin/promos.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo service not configured", nil)
		return
	}
	rows, err := h.service.ListPromos(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, rows)
}

// Disable handles DELETE /api/v1/admin/promos/{code}.
func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo service not configured", nil)
		return
	}
	if err := h.service.DisablePromo(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]bool{"disabled": true})
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
