package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/DNLCodess/ReezBlank/internal/checkout"
	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/DNLCodess/ReezBlank/internal/logger"
	"github.com/DNLCodess/ReezBlank/internal/payment"
	"go.uber.org/zap"
)

type Checkouts interface {
	PlaceOrder(ctx context.Context, req checkout.Request) (*checkout.Receipt, error)
}

type CheckoutHandler struct {
	checkout Checkouts
	log      *zap.Logger
}

func NewCheckoutHandler(svc Checkouts, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: svc, log: log}
}

// POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var shipping domain.ShippingInfo
	if err := decodeJSON(w, r, &shipping); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.checkout.PlaceOrder(r.Context(), checkout.Request{
		SessionID: getSessionID(r.Context()),
		UserID:    getUserID(r.Context()),
		Shipping:  shipping,
	})
	if err != nil {
		h.checkoutError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, receipt)
}

func (h *CheckoutHandler) checkoutError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid  *checkout.ValidationError
		declined *payment.DeclinedError
	)
	switch {
	case errors.As(err, &invalid):
		respondFields(w, http.StatusBadRequest, invalid.Error(), invalid.Fields)
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, checkout.ErrInProgress):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &declined):
		respondError(w, http.StatusPaymentRequired, "payment declined: "+declined.Refusal.String())
	case errors.Is(err, payment.ErrDeclined):
		respondError(w, http.StatusPaymentRequired, "payment declined")
	case errors.Is(err, payment.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "payment service unavailable, try again shortly")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "checkout timed out")
	default:
		logger.WithTrace(r.Context(), h.log).Error("checkout failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "order could not be completed")
	}
}
