package cart

import (
	"sync"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultSize is used when an item is added or addressed without a size.
const DefaultSize = "M"

// Listener receives the cart state after every mutation.
type Listener = func(state domain.CartState)

// Manager owns one shopper's line items and subtotal.
//
// Every mutator runs its read-modify-write under the mutex and finishes by
// recomputing the total, so no caller can observe a stale total. Listeners are
// invoked before the mutex is released, in mutation order; they must not call
// back into the Manager.
type Manager struct {
	mu        sync.Mutex
	items     []domain.LineItem
	total     decimal.Decimal
	listeners map[int]Listener
	nextID    int
}

// NewManager returns a cart holding items. The stored total of a restored cart
// is never trusted: invariants are re-applied and the total recomputed.
func NewManager(items ...domain.LineItem) *Manager {
	m := &Manager{
		items:     domain.NormalizeItems(items),
		listeners: make(map[int]Listener),
	}
	m.total = domain.SumTotal(m.items)
	return m
}

// AddItem merges quantity into the line for (product.ID, size) or appends a new
// line built from the product snapshot. A non-positive quantity is ignored.
func (m *Manager) AddItem(product domain.Product, size string, quantity int) {
	if quantity <= 0 {
		return
	}
	size = normalizeSize(size)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.add(product, size, quantity)
	m.commit()
}

// AddItemUpTo is AddItem with a ceiling on the merged line quantity. It
// reports false and leaves the cart untouched when the line would exceed limit.
func (m *Manager) AddItemUpTo(product domain.Product, size string, quantity, limit int) bool {
	if quantity <= 0 {
		return true
	}
	size = normalizeSize(size)

	m.mu.Lock()
	defer m.mu.Unlock()

	current := 0
	if i := m.indexOf(product.ID, size); i >= 0 {
		current = m.items[i].Quantity
	}
	if current+quantity > limit {
		return false
	}
	m.add(product, size, quantity)
	m.commit()
	return true
}

// RemoveItem drops the matching line. Removing an absent line is a no-op.
func (m *Manager) RemoveItem(productID, size string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.remove(productID, normalizeSize(size)) {
		m.commit()
	}
}

// UpdateQuantity sets the absolute quantity of the matching line. A quantity of
// zero or below removes the line.
func (m *Manager) UpdateQuantity(productID, size string, quantity int) {
	size = normalizeSize(size)

	m.mu.Lock()
	defer m.mu.Unlock()

	if quantity <= 0 {
		if m.remove(productID, size) {
			m.commit()
		}
		return
	}

	i := m.indexOf(productID, size)
	if i < 0 {
		return
	}
	m.items[i].Quantity = quantity
	m.commit()
}

// CalculateTotal recomputes the subtotal from the current items and returns it.
func (m *Manager) CalculateTotal() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total = domain.SumTotal(m.items)
	return m.total
}

// Clear empties the cart; used after an order has been placed.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = nil
	m.commit()
}

// RemovePurchased takes the given lines out of the cart, leaving anything added
// since they were read. A line whose quantity grew keeps the difference.
func (m *Manager) RemovePurchased(items []domain.LineItem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	for _, bought := range items {
		i := m.indexOf(bought.ProductID, bought.Size)
		if i < 0 {
			continue
		}
		if left := m.items[i].Quantity - bought.Quantity; left > 0 {
			m.items[i].Quantity = left
		} else {
			m.remove(bought.ProductID, bought.Size)
		}
		changed = true
	}
	if changed {
		m.commit()
	}
}

// ItemCount returns the number of units across all lines.
func (m *Manager) ItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return domain.ItemCount(m.items)
}

// Items returns a copy of the lines in insertion order.
func (m *Manager) Items() []domain.LineItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.copyItems()
}

// Total returns the subtotal as of the last mutation.
func (m *Manager) Total() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.total
}

// Snapshot returns a copy of items and total taken atomically.
func (m *Manager) Snapshot() domain.CartState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state()
}

// Subscribe registers fn for post-mutation notifications and returns a func
// that unregisters it.
func (m *Manager) Subscribe(fn Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// commit must be called with mu held.
func (m *Manager) commit() {
	m.total = domain.SumTotal(m.items)
	for _, fn := range m.listeners {
		fn(m.state())
	}
}

func (m *Manager) state() domain.CartState {
	return domain.CartState{Items: m.copyItems(), Total: m.total}
}

func (m *Manager) copyItems() []domain.LineItem {
	items := make([]domain.LineItem, len(m.items))
	copy(items, m.items)
	return items
}

func (m *Manager) add(product domain.Product, size string, quantity int) {
	if i := m.indexOf(product.ID, size); i >= 0 {
		m.items[i].Quantity += quantity
		return
	}
	m.items = append(m.items, domain.NewLineItem(product, size, quantity))
}

func (m *Manager) indexOf(productID, size string) int {
	for i, item := range m.items {
		if item.ProductID == productID && item.Size == size {
			return i
		}
	}
	return -1
}

func (m *Manager) remove(productID, size string) bool {
	i := m.indexOf(productID, size)
	if i < 0 {
		return false
	}
	m.items = append(m.items[:i], m.items[i+1:]...)
	return true
}

func normalizeSize(size string) string {
	if size == "" {
		return DefaultSize
	}
	return size
}
