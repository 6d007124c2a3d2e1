package http

import (
	"errors"
	"net/http"

	"github.com/DNLCodess/ReezBlank/internal/catalog"
	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/DNLCodess/ReezBlank/internal/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProductHandler struct {
	catalog catalog.Repository
	log     *zap.Logger
}

func NewProductHandler(products catalog.Repository, log *zap.Logger) *ProductHandler {
	return &ProductHandler{catalog: products, log: log}
}

// GET /api/v1/products?category=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context(), catalog.Filter{
		Category:   r.URL.Query().Get("category"),
		ActiveOnly: true,
	})
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(products))
}

// GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrProductNotFound) || (err == nil && !p.Active) {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	logger.WithTrace(r.Context(), h.log).Error("catalog query failed", zap.Error(err))
	respondError(w, http.StatusBadGateway, "catalog unavailable")
}

func nonNil(products []domain.Product) []domain.Product {
	if products == nil {
		return []domain.Product{}
	}
	return products
}
