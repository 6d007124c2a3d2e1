package http

import (
	"context"
	"net/http"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/DNLCodess/ReezBlank/internal/logger"
	"go.uber.org/zap"
)

type Orders interface {
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
}

type OrdersHandler struct {
	orders Orders
	log    *zap.Logger
}

func NewOrdersHandler(orders Orders, log *zap.Logger) *OrdersHandler {
	return &OrdersHandler{orders: orders, log: log}
}

// GET /api/v1/orders
func (h *OrdersHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(r.Context(), getUserID(r.Context()))
	h.respond(w, r, orders, err)
}

// GET /api/v1/admin/orders
func (h *OrdersHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	h.respond(w, r, orders, err)
}

func (h *OrdersHandler) respond(w http.ResponseWriter, r *http.Request, orders []*domain.Order, err error) {
	if err != nil {
		logger.WithTrace(r.Context(), h.log).Error("list orders failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "orders unavailable")
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}
