package sales

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/karanja-dev/duka-pos/internal/common"
)

// Handler exposes sales endpoints.
type Handler struct {
	Service     *Service
	PageDefault int
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, pageDefault int) *Handler {
	return &Handler{Service: service, PageDefault: pageDefault}
}

// Checkout handles POST /api/v1/sales.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	session, ok := common.SessionFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	var input CheckoutInput
	if err := common.DecodeJSON(r, &input); err != nil {
		common.RenderError(w, err)
		return
	}
	if input.CartID == "" && len(input.Items) == 0 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "cart_id or items is required", nil)
		return
	}
	sale, err := h.Service.Checkout(r.Context(), session, input)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": sale})
}

// List handles GET /api/v1/sales.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, h.PageDefault)
	sales, err := h.Service.List(r.Context(), page, perPage)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sales})
}

// Get handles GET /api/v1/sales/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sale})
}
