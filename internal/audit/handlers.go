package audit

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-fooddist/internal/common"
)

// Handler exposes the admin audit listing endpoint.
type Handler struct {
	Service Service
}

// List handles GET /api/v1/admin/audit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ListParams{
		RestaurantID: strings.TrimSpace(q.Get("restaurantId")),
		VariantID:    strings.TrimSpace(q.Get("variantId")),
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer", nil)
			return
		}
		params.Limit = limit
	}
	if v := strings.TrimSpace(q.Get("offset")); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "offset must be a non-negative integer", nil)
			return
		}
		params.Offset = offset
	}
	rows, err := h.Service.List(r.Context(), params)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	common.JSONData(w, http.StatusOK, rows)
}
