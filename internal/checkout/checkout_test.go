package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/cart"
	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/DNLCodess/ReezBlank/internal/order"
	"github.com/DNLCodess/ReezBlank/internal/payment"
	mock_payment "github.com/DNLCodess/ReezBlank/internal/payment/mock"
	"github.com/DNLCodess/ReezBlank/internal/store"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) OrderPlaced(_ context.Context, sessionID string, o *domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, sessionID+":"+o.PaymentReference)
	return p.err
}

type fixture struct {
	registry  *cart.Registry
	orders    *order.MemoryRepository
	gateway   *mock_payment.MockGateway
	publisher *recordingPublisher
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		registry:  cart.NewRegistry(store.NewMemoryStore(), zap.NewNop(), time.Second),
		orders:    order.NewMemoryRepository(),
		gateway:   mock_payment.NewMockGateway(ctrl),
		publisher: &recordingPublisher{},
	}
	t.Cleanup(func() { f.registry.Close(context.Background()) })

	f.svc = NewService(f.registry, f.gateway, order.NewService(f.orders, zap.NewNop()), f.publisher, zap.NewNop())
	f.svc.now = func() time.Time { return time.UnixMilli(1718000000123) }
	return f
}

func validShipping() domain.ShippingInfo {
	return domain.ShippingInfo{
		Email:      "ada@example.com",
		FirstName:  "Ada",
		LastName:   "Obi",
		Address:    "12 Marina Road",
		City:       "Lagos",
		PostalCode: "101001",
		Phone:      "+2348000000000",
	}
}

func fillCart(f *fixture, sessionID string) {
	m := f.registry.Get(context.Background(), sessionID)
	m.AddItem(domain.Product{ID: "1", Name: "Classic White Shirt", Price: decimal.RequireFromString("89.99")}, "M", 2)
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture(t)
	fillCart(f, "sid")

	f.gateway.EXPECT().
		Charge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
			assert.Equal(t, "reez_1718000000123", req.Reference)
			assert.Equal(t, "ada@example.com", req.Email)
			assert.Equal(t, "194.38", req.Amount.StringFixed(2))
			return payment.ChargeResult{Reference: req.Reference, Status: payment.StatusSuccess}, nil
		})

	receipt, err := f.svc.PlaceOrder(context.Background(), Request{SessionID: "sid", UserID: "u-1", Shipping: validShipping()})
	require.NoError(t, err)

	assert.Equal(t, "179.98", receipt.Quote.Subtotal.StringFixed(2))
	assert.True(t, receipt.Quote.DeliveryFee.IsZero())
	assert.Equal(t, "14.40", receipt.Quote.Tax.StringFixed(2))
	assert.Equal(t, "reez_1718000000123", receipt.Order.PaymentReference)
	assert.Equal(t, domain.DefaultCountry, receipt.Order.Shipping.Country)
	assert.Equal(t, DefaultDeliveryOption, receipt.Order.Shipping.DeliveryOption)
	assert.Equal(t, "u-1", receipt.Order.UserID)

	stored, err := f.orders.Get(context.Background(), receipt.Order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 2, stored.Items[0].Quantity)

	m := f.registry.Get(context.Background(), "sid")
	assert.Empty(t, m.Items())
	assert.True(t, m.Total().IsZero())
	assert.Equal(t, []string{"sid:reez_1718000000123"}, f.publisher.events)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), Request{SessionID: "sid", Shipping: validShipping()})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrder_InvalidShippingLeavesCart(t *testing.T) {
	f := newFixture(t)
	fillCart(f, "sid")

	shipping := validShipping()
	shipping.City = "  "
	shipping.Country = "France"

	_, err := f.svc.PlaceOrder(context.Background(), Request{SessionID: "sid", Shipping: shipping})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "city")
	assert.Contains(t, verr.Fields, "country")
	assert.Len(t, f.registry.Get(context.Background(), "sid").Items(), 1)
}

func TestPlaceOrder_DeclinedKeepsCart(t *testing.T) {
	f := newFixture(t)
	fillCart(f, "sid")

	f.gateway.EXPECT().
		Charge(gomock.Any(), gomock.Any()).
		Return(payment.ChargeResult{Status: payment.StatusFailed}, &payment.DeclinedError{Refusal: payment.RefusalInsufficientFunds})

	_, err := f.svc.PlaceOrder(context.Background(), Request{SessionID: "sid", Shipping: validShipping()})
	assert.ErrorIs(t, err, payment.ErrDeclined)

	m := f.registry.Get(context.Background(), "sid")
	assert.Len(t, m.Items(), 1)
	assert.Equal(t, "179.98", m.Total().StringFixed(2))

	all, err := f.orders.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, f.publisher.events)
}

func TestPlaceOrder_OrderFailureRefunds(t *testing.T) {
	f := newFixture(t)
	fillCart(f, "sid")
	require.NoError(t, f.orders.Create(context.Background(), &domain.Order{PaymentReference: "reez_1718000000123"}))

	gomock.InOrder(
		f.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).
			Return(payment.ChargeResult{Status: payment.StatusSuccess}, nil),
		f.gateway.EXPECT().Refund(gomock.Any(), "reez_1718000000123").Return(nil),
	)

	_, err := f.svc.PlaceOrder(context.Background(), Request{SessionID: "sid", Shipping: validShipping()})
	assert.ErrorIs(t, err, ErrOrderNotSaved)
	assert.ErrorIs(t, err, order.ErrDuplicatePayment)
	assert.Len(t, f.registry.Get(context.Background(), "sid").Items(), 1)
}

func TestPlaceOrder_PublishFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	fillCart(f, "sid")

	f.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).
		Return(payment.ChargeResult{Status: payment.StatusSuccess}, nil)

	receipt, err := f.svc.PlaceOrder(context.Background(), Request{SessionID: "sid", Shipping: validShipping()})
	require.NoError(t, err)
	assert.NotNil(t, receipt.Order)
	assert.Empty(t, f.registry.Get(context.Background(), "sid").Items())
}

func TestPlaceOrder_ExpressDelivery(t *testing.T) {
	f := newFixture(t)
	fillCart(f, "sid")
	shipping := validShipping()
	shipping.DeliveryOption = "express"

	f.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
			assert.Equal(t, "214.37", req.Amount.StringFixed(2))
			return payment.ChargeResult{Status: payment.StatusSuccess}, nil
		})

	receipt, err := f.svc.PlaceOrder(context.Background(), Request{SessionID: "sid", Shipping: shipping})
	require.NoError(t, err)
	assert.Equal(t, "19.99", receipt.Order.DeliveryFee.StringFixed(2))
}

func TestPlaceOrder_ItemsAddedDuringChargeStay(t *testing.T) {
	f := newFixture(t)
	fillCart(f, "sid")
	m := f.registry.Get(context.Background(), "sid")

	f.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, payment.ChargeRequest) (payment.ChargeResult, error) {
			m.AddItem(domain.Product{ID: "2", Name: "Premium Denim Jacket", Price: decimal.RequireFromString("159.99")}, "L", 1)
			m.AddItem(domain.Product{ID: "1", Name: "Classic White Shirt", Price: decimal.RequireFromString("89.99")}, "M", 1)
			return payment.ChargeResult{Status: payment.StatusSuccess}, nil
		})

	receipt, err := f.svc.PlaceOrder(context.Background(), Request{SessionID: "sid", Shipping: validShipping()})
	require.NoError(t, err)
	require.Len(t, receipt.Order.Items, 1)
	assert.Equal(t, 2, receipt.Order.Items[0].Quantity)

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, domain.ItemKey{ProductID: "1", Size: "M"}, items[0].Key())
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, domain.ItemKey{ProductID: "2", Size: "L"}, items[1].Key())
	assert.Equal(t, "249.98", m.Total().StringFixed(2))
}

func TestPlaceOrder_SecondCheckoutWhileChargingIsRejected(t *testing.T) {
	f := newFixture(t)
	fillCart(f, "sid")
	fillCart(f, "other")

	var nested, otherSession error
	f.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
			_, nested = f.svc.PlaceOrder(ctx, Request{SessionID: "sid", Shipping: validShipping()})
			return payment.ChargeResult{Status: payment.StatusSuccess}, nil
		})

	_, err := f.svc.PlaceOrder(context.Background(), Request{SessionID: "sid", Shipping: validShipping()})
	require.NoError(t, err)
	assert.ErrorIs(t, nested, ErrInProgress)

	all, err := f.orders.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// the guard is per session and released afterwards
	f.svc.now = func() time.Time { return time.UnixMilli(1718000000999) }
	f.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).
		Return(payment.ChargeResult{Status: payment.StatusSuccess}, nil)
	_, otherSession = f.svc.PlaceOrder(context.Background(), Request{SessionID: "other", Shipping: validShipping()})
	assert.NoError(t, otherSession)

	_, err = f.svc.PlaceOrder(context.Background(), Request{SessionID: "sid", Shipping: validShipping()})
	assert.ErrorIs(t, err, ErrEmptyCart)
}
