package report

import (
	"net/http"

	"github.com/karanja-dev/duka-pos/internal/common"
)

// Handler exposes the report read endpoint.
type Handler struct {
	Svc *Service
}

// Summary returns the aggregated dashboard for the requested time range.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "REPORT_NOT_CONFIGURED", "report service not configured", nil)
		return
	}
	rng, err := ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "range must be one of day, week, month, year, all", nil)
		return
	}
	summary, err := h.Svc.Summary(r.Context(), rng)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "REPORT_ERROR", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}
