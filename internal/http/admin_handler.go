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

type AdminHandler struct {
	catalog catalog.Repository
	log     *zap.Logger
}

func NewAdminHandler(products catalog.Repository, log *zap.Logger) *AdminHandler {
	return &AdminHandler{catalog: products, log: log}
}

// GET /api/v1/admin/products lists inactive products too, newest first.
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context(), catalog.Filter{Category: r.URL.Query().Get("category")})
	if err != nil {
		h.catalogError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(products))
}

// POST /api/v1/admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := decodeJSON(w, r, &p); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.ID = ""
	if err := h.catalog.Create(r.Context(), &p); err != nil {
		h.catalogError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// PUT /api/v1/admin/products/{id}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := decodeJSON(w, r, &p); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.ID = chi.URLParam(r, "id")
	if err := h.catalog.Update(r.Context(), &p); err != nil {
		h.catalogError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DELETE /api/v1/admin/products/{id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.catalogError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) catalogError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *catalog.ValidationError
	switch {
	case errors.As(err, &invalid):
		respondFields(w, http.StatusBadRequest, invalid.Error(), invalid.Fields)
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		logger.WithTrace(r.Context(), h.log).Error("catalog write failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "catalog unavailable")
	}
}
