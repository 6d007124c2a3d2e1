package order

import (
	"context"
	"sort"
	"sync"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/google/uuid"
)

// MemoryRepository keeps orders in process; used when no database is configured.
type MemoryRepository struct {
	mu         sync.RWMutex
	orders     map[uuid.UUID]*domain.Order
	references map[string]uuid.UUID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders:     make(map[uuid.UUID]*domain.Order),
		references: make(map[string]uuid.UUID),
	}
}

func (r *MemoryRepository) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.references[o.PaymentReference]; ok {
		return ErrDuplicatePayment
	}
	stored := cloneOrder(o)
	r.orders[o.ID] = stored
	r.references[o.PaymentReference] = o.ID
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orders []*domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			orders = append(orders, cloneOrder(o))
		}
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		orders = append(orders, cloneOrder(o))
	}
	sortNewestFirst(orders)
	return orders, nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = make([]domain.LineItem, len(o.Items))
	copy(c.Items, o.Items)
	return &c
}

func sortNewestFirst(orders []*domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
