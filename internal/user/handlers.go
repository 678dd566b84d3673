package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/karanja-dev/duka-pos/internal/auth"
	"github.com/karanja-dev/duka-pos/internal/common"
)

// Handler exposes the staff account admin endpoints.
type Handler struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

// List handles GET /api/v1/users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.List(r.Context())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": users})
}

// Get handles GET /api/v1/users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": record})
}

// Create handles POST /api/v1/users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
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

// Update handles PUT /api/v1/users/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	session, _ := common.SessionFrom(r.Context())
	var input UpdateInput
	if err := common.DecodeJSON(r, &input); err != nil {
		common.RenderError(w, err)
		return
	}
	record, err := h.Service.Update(r.Context(), session, chi.URLParam(r, "id"), input)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": record})
}

// Delete handles DELETE /api/v1/users/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	session, _ := common.SessionFrom(r.Context())
	if err := h.Service.Delete(r.Context(), session, chi.URLParam(r, "id")); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRoles handles GET /api/v1/users/roles.
func (h *Handler) ListRoles(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": auth.Roles()})
}
