package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestInput(userID, reference string) NewOrder {
	return NewOrder{
		UserID: userID,
		Items: []domain.LineItem{
			{ProductID: "1", Name: "Classic White Shirt", Price: decimal.RequireFromString("89.99"), Size: "M", Quantity: 2},
		},
		Shipping: domain.ShippingInfo{
			Email:          "ada@example.com",
			FirstName:      "Ada",
			LastName:       "Obi",
			Address:        "12 Marina Road",
			City:           "Lagos",
			PostalCode:     "101001",
			Country:        domain.DefaultCountry,
			Phone:          "+2348000000000",
			DeliveryOption: "standard",
		},
		Subtotal:         decimal.RequireFromString("179.98"),
		DeliveryFee:      decimal.Zero,
		Tax:              decimal.RequireFromString("14.40"),
		Total:            decimal.RequireFromString("194.38"),
		PaymentReference: reference,
	}
}

func TestServiceCreate(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, zap.NewNop())
	ctx := context.Background()

	o, err := svc.Create(ctx, newTestInput("user-1", "reez_1"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, o.ID)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, domain.Currency, o.Currency)
	assert.False(t, o.CreatedAt.IsZero())

	fetched, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "reez_1", fetched.PaymentReference)
	assert.Equal(t, "Lagos", fetched.Shipping.City)
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, 2, fetched.Items[0].Quantity)
	assert.True(t, o.Total.Equal(fetched.Total))
}

func TestServiceCreate_Rejects(t *testing.T) {
	svc := NewService(NewMemoryRepository(), zap.NewNop())

	tests := []struct {
		name   string
		mutate func(*NewOrder)
		want   error
	}{
		{"no items", func(in *NewOrder) { in.Items = nil }, ErrEmptyOrder},
		{"no reference", func(in *NewOrder) { in.PaymentReference = "" }, ErrMissingReference},
		{"zero total", func(in *NewOrder) { in.Total = decimal.Zero }, ErrNonPositiveAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newTestInput("", "reez_2")
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestServiceCreate_DuplicateReference(t *testing.T) {
	svc := NewService(NewMemoryRepository(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, newTestInput("user-1", "reez_dup"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, newTestInput("user-2", "reez_dup"))
	assert.ErrorIs(t, err, ErrDuplicatePayment)
}

type failingRepository struct {
	MemoryRepository
}

func (*failingRepository) Create(context.Context, *domain.Order) error {
	return errors.New("connection refused")
}

func TestServiceCreate_RepositoryError(t *testing.T) {
	svc := NewService(&failingRepository{}, zap.NewNop())

	o, err := svc.Create(context.Background(), newTestInput("user-1", "reez_3"))
	assert.Error(t, err)
	assert.Nil(t, o)
}

func TestMemoryRepository_ListOrdering(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, zap.NewNop())
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i, ref := range []string{"reez_a", "reez_b", "reez_c"} {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		user := "user-1"
		if i == 1 {
			user = "user-2"
		}
		o, err := svc.Create(ctx, newTestInput(user, ref))
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}

	mine, err := svc.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, ids[2], mine[0].ID)
	assert.Equal(t, ids[0], mine[1].ID)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[1], all[1].ID)

	none, err := svc.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryRepository_GetMissing(t *testing.T) {
	_, err := NewMemoryRepository().Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
