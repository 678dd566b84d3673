package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/karanja-dev/duka-pos/internal/common"
)

// Handler exposes inventory and category endpoints.
type Handler struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

// ListItems handles GET /api/v1/inventory.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	input := ListItemsInput{
		CategoryID: r.URL.Query().Get("category_id"),
		LowStock:   r.URL.Query().Get("low_stock") == "true",
		Search:     r.URL.Query().Get("q"),
	}
	items, err := h.Service.ListItems(r.Context(), input)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// GetItem handles GET /api/v1/inventory/{id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

// CreateItem handles POST /api/v1/inventory.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var input ItemInput
	if err := common.DecodeJSON(r, &input); err != nil {
		common.RenderError(w, err)
		return
	}
	item, err := h.Service.CreateItem(r.Context(), input)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": item})
}

// UpdateItem handles PUT /api/v1/inventory/{id}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var input ItemInput
	if err := common.DecodeJSON(r, &input); err != nil {
		common.RenderError(w, err)
		return
	}
	item, err := h.Service.UpdateItem(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

// DeleteItem handles DELETE /api/v1/inventory/{id}.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/v1/inventory/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stats})
}

// ListCategories handles GET /api/v1/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.ListCategories(r.Context())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": categories})
}

// CreateCategory handles POST /api/v1/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if err := common.DecodeJSON(r, &input); err != nil {
		common.RenderError(w, err)
		return
	}
	category, err := h.Service.CreateCategory(r.Context(), input)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": category})
}

// UpdateCategory handles PUT /api/v1/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if err := common.DecodeJSON(r, &input); err != nil {
		common.RenderError(w, err)
		return
	}
	category, err := h.Service.UpdateCategory(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": category})
}

// DeleteCategory handles DELETE /api/v1/categories/{id}.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
