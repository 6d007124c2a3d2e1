// Package order records placed orders.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicatePayment  = errors.New("order for this payment reference already exists")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrMissingReference  = errors.New("order has no payment reference")
	ErrNonPositiveAmount = errors.New("order total must be positive")
)

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type Repository interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
}

// NewOrder is what checkout hands over once payment has succeeded.
type NewOrder struct {
	UserID           string
	Items            []domain.LineItem
	Shipping         domain.ShippingInfo
	Subtotal         decimal.Decimal
	DeliveryFee      decimal.Decimal
	Tax              decimal.Decimal
	Total            decimal.Decimal
	PaymentReference string
}

type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a pending order for an already charged cart.
func (s *Service) Create(ctx context.Context, in NewOrder) (*domain.Order, error) {
	switch {
	case len(in.Items) == 0:
		return nil, ErrEmptyOrder
	case in.PaymentReference == "":
		return nil, ErrMissingReference
	case !in.Total.IsPositive():
		return nil, ErrNonPositiveAmount
	}

	items := make([]domain.LineItem, len(in.Items))
	copy(items, in.Items)

	o := &domain.Order{
		ID:               uuid.New(),
		UserID:           in.UserID,
		Items:            items,
		Shipping:         in.Shipping,
		Subtotal:         in.Subtotal,
		DeliveryFee:      in.DeliveryFee,
		Tax:              in.Tax,
		Total:            in.Total,
		Currency:         domain.Currency,
		Status:           domain.OrderStatusPending,
		PaymentReference: in.PaymentReference,
		CreatedAt:        s.now(),
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.log.Info("order created",
		zap.String("order_id", o.ID.String()),
		zap.String("payment_reference", o.PaymentReference),
		zap.String("total", o.Total.StringFixed(2)))
	return o, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) List(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.List(ctx)
}
