// Package checkout turns a shopper's cart into a paid, recorded order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/cart"
	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/DNLCodess/ReezBlank/internal/order"
	"github.com/DNLCodess/ReezBlank/internal/payment"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrOrderNotSaved = errors.New("payment taken but order could not be saved")
	ErrInProgress    = errors.New("checkout already in progress for this session")
)

type Carts interface {
	Get(ctx context.Context, sessionID string) *cart.Manager
}

type Orders interface {
	Create(ctx context.Context, in order.NewOrder) (*domain.Order, error)
}

// Publisher announces placed orders to other replicas.
type Publisher interface {
	OrderPlaced(ctx context.Context, sessionID string, o *domain.Order) error
}

type Request struct {
	SessionID string
	UserID    string
	Shipping  domain.ShippingInfo
}

type Receipt struct {
	Order  *domain.Order        `json:"order"`
	Quote  Quote                `json:"quote"`
	Charge payment.ChargeResult `json:"-"`
}

type Service struct {
	carts     Carts
	gateway   payment.Gateway
	orders    Orders
	publisher Publisher
	log       *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewService(carts Carts, gateway payment.Gateway, orders Orders, publisher Publisher, log *zap.Logger) *Service {
	return &Service{
		carts:     carts,
		gateway:   gateway,
		orders:    orders,
		publisher: publisher,
		log:       log,
		now:       time.Now,
		inFlight:  make(map[string]struct{}),
	}
}

// PlaceOrder charges the session's cart, records the order and removes the
// purchased lines from the cart. The cart is left untouched when any step
// before that fails. Only one checkout per session runs at a time; a second
// one gets ErrInProgress.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*Receipt, error) {
	shipping := NormalizeShipping(req.Shipping)
	if err := ValidateShipping(shipping); err != nil {
		return nil, err
	}

	if !s.begin(req.SessionID) {
		return nil, ErrInProgress
	}
	defer s.end(req.SessionID)

	m := s.carts.Get(ctx, req.SessionID)
	state := m.Snapshot()
	if len(state.Items) == 0 {
		return nil, ErrEmptyCart
	}

	quote, err := QuoteFor(state.Total, domain.ItemCount(state.Items), shipping.DeliveryOption)
	if err != nil {
		return nil, err
	}

	reference := payment.NewReference(s.now())
	log := s.log.With(zap.String("reference", reference), zap.String("session_id", req.SessionID))

	charge, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		Reference: reference,
		Email:     shipping.Email,
		Amount:    quote.Total,
		Currency:  domain.Currency,
	})
	if err != nil {
		log.Warn("payment failed", zap.Error(err))
		return nil, fmt.Errorf("charge: %w", err)
	}

	placed, err := s.orders.Create(ctx, order.NewOrder{
		UserID:           req.UserID,
		Items:            state.Items,
		Shipping:         shipping,
		Subtotal:         quote.Subtotal,
		DeliveryFee:      quote.DeliveryFee,
		Tax:              quote.Tax,
		Total:            quote.Total,
		PaymentReference: reference,
	})
	if err != nil {
		log.Error("order not saved, refunding", zap.Error(err))
		if rerr := s.gateway.Refund(context.WithoutCancel(ctx), reference); rerr != nil {
			log.Error("refund failed", zap.Error(rerr))
		}
		return nil, fmt.Errorf("%w: %w", ErrOrderNotSaved, err)
	}

	// lines added while the charge was pending stay in the cart
	m.RemovePurchased(state.Items)

	if s.publisher != nil {
		if err := s.publisher.OrderPlaced(ctx, req.SessionID, placed); err != nil {
			log.Warn("order event not published", zap.Error(err))
		}
	}

	log.Info("order placed",
		zap.String("order_id", placed.ID.String()),
		zap.String("total", domain.FormatMoney(placed.Total)))
	return &Receipt{Order: placed, Quote: quote, Charge: charge}, nil
}

func (s *Service) begin(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[sessionID]; busy {
		return false
	}
	s.inFlight[sessionID] = struct{}{}
	return true
}

func (s *Service) end(sessionID string) {
	s.mu.Lock()
	delete(s.inFlight, sessionID)
	s.mu.Unlock()
}
