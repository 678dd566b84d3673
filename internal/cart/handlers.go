package cart

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/karanja-dev/duka-pos/internal/common"
	"github.com/karanja-dev/duka-pos/internal/pricing"
)

// Handler exposes cart endpoints.
type Handler struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

type addItemRequest struct {
	ItemID   string `json:"item_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"omitempty,gte=1"`
}

type updateQuantityRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// Create handles POST /api/v1/carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	cart, err := h.Service.Create(r.Context())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": cart})
}

// Get handles GET /api/v1/carts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cart})
}

// AddItem handles POST /api/v1/carts/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RenderError(w, err)
		return
	}
	cart, err := h.Service.AddItem(r.Context(), chi.URLParam(r, "id"), req.ItemID, req.Quantity)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cart})
}

// UpdateQuantity handles PATCH /api/v1/carts/{id}/items/{itemId}.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RenderError(w, err)
		return
	}
	cart, err := h.Service.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"), req.Delta)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cart})
}

// RemoveItem handles DELETE /api/v1/carts/{id}/items/{itemId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.Service.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cart})
}

// Clear handles DELETE /api/v1/carts/{id}/items.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	cart, err := h.Service.Clear(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cart})
}

// Delete handles DELETE /api/v1/carts/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Quote handles GET /api/v1/carts/{id}/quote?type=percentage&value=10.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	discount, err := parseDiscountQuery(r)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	result, err := h.Service.Quote(r.Context(), chi.URLParam(r, "id"), discount)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

func parseDiscountQuery(r *http.Request) (pricing.Discount, error) {
	kind := strings.TrimSpace(r.URL.Query().Get("type"))
	if kind == "" {
		return pricing.Discount{}, nil
	}
	if kind != string(pricing.DiscountPercentage) && kind != string(pricing.DiscountFixed) {
		return pricing.Discount{}, common.ValidationError("discount type must be percentage or fixed", nil)
	}
	value, err := strconv.ParseFloat(r.URL.Query().Get("value"), 64)
	if err != nil || value < 0 {
		return pricing.Discount{}, common.ValidationError("discount value must be a non-negative number", nil)
	}
	return pricing.Discount{Kind: pricing.DiscountKind(kind), Value: value}, nil
}
