package customer

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/karanja-dev/duka-pos/internal/common"
)

// Handler exposes customer directory endpoints.
type Handler struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

// List handles GET /api/v1/customers. The optional q parameter matches
// against name, phone, and email.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Service.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": customers})
}

// Get handles GET /api/v1/customers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": record})
}

// Create handles POST /api/v1/customers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := common.DecodeJSON(r, &input); err != nil {
		common.RenderError(w, err)
		return
	}
	record, err := h.Service.Create(r.Context(), input)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": record})
}

// Update handles PUT /api/v1/customers/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := common.DecodeJSON(r, &input); err != nil {
		common.RenderError(w, err)
		return
	}
	record, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": record})
}

// Delete handles DELETE /api/v1/customers/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Purchases handles GET /api/v1/customers/{id}/purchases.
func (h *Handler) Purchases(w http.ResponseWriter, r *http.Request) {
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 20)
	history, err := h.Service.Purchases(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": history})
}

// Stats handles GET /api/v1/customers/{id}/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.PurchaseStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stats})
}
