package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/DNLCodess/ReezBlank/internal/cart"
	"github.com/DNLCodess/ReezBlank/internal/catalog"
	"github.com/DNLCodess/ReezBlank/internal/checkout"
	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/DNLCodess/ReezBlank/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxLineQuantity = 99

type Carts interface {
	Get(ctx context.Context, sessionID string) *cart.Manager
}

type CartHandler struct {
	carts   Carts
	catalog catalog.Repository
	log     *zap.Logger
}

func NewCartHandler(carts Carts, products catalog.Repository, log *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: products,
		log:     log,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	Items     []domain.LineItem `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	ItemCount int               `json:"item_count"`
	Currency  string            `json:"currency"`
}

func cartResponse(state domain.CartState) CartResponseDTO {
	return CartResponseDTO{
		Items:     state.Items,
		Total:     state.Total,
		ItemCount: domain.ItemCount(state.Items),
		Currency:  domain.Currency,
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	m := h.carts.Get(r.Context(), getSessionID(r.Context()))
	respondJSON(w, http.StatusOK, cartResponse(m.Snapshot()))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 || req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "quantity must be between 1 and 99")
		return
	}
	if req.Size != "" && !domain.IsKnownSize(req.Size) {
		respondError(w, http.StatusBadRequest, "unknown size")
		return
	}

	product, err := h.catalog.Get(r.Context(), req.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) || (err == nil && !product.Active) {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		logger.WithTrace(r.Context(), h.log).Error("catalog lookup failed",
			zap.String("product_id", req.ProductID), zap.Error(err))
		respondError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	m := h.carts.Get(r.Context(), getSessionID(r.Context()))
	if !m.AddItemUpTo(product, req.Size, req.Quantity, maxLineQuantity) {
		respondError(w, http.StatusBadRequest, "line quantity cannot exceed 99")
		return
	}
	respondJSON(w, http.StatusCreated, cartResponse(m.Snapshot()))
}

// PUT /api/v1/cart/items/{product_id}/{size}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "quantity must be at most 99")
		return
	}

	m := h.carts.Get(r.Context(), getSessionID(r.Context()))
	m.UpdateQuantity(chi.URLParam(r, "product_id"), chi.URLParam(r, "size"), req.Quantity)
	respondJSON(w, http.StatusOK, cartResponse(m.Snapshot()))
}

// DELETE /api/v1/cart/items/{product_id}/{size}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	m := h.carts.Get(r.Context(), getSessionID(r.Context()))
	m.RemoveItem(chi.URLParam(r, "product_id"), chi.URLParam(r, "size"))
	respondJSON(w, http.StatusOK, cartResponse(m.Snapshot()))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	m := h.carts.Get(r.Context(), getSessionID(r.Context()))
	m.Clear()
	respondJSON(w, http.StatusOK, cartResponse(m.Snapshot()))
}

// GET /api/v1/cart/summary?delivery_option=
func (h *CartHandler) Summary(w http.ResponseWriter, r *http.Request) {
	state := h.carts.Get(r.Context(), getSessionID(r.Context())).Snapshot()
	quote, err := checkout.QuoteFor(state.Total, domain.ItemCount(state.Items), r.URL.Query().Get("delivery_option"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, quote)
}
