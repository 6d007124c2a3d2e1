package cart

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string, price int64) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     "Product " + id,
		Price:    decimal.NewFromInt(price),
		Category: "shirts",
		ImageURL: "https://img.example/" + id + ".jpg",
		Stock:    10,
	}
}

func assertTotalConsistent(t *testing.T, m *Manager) {
	t.Helper()
	state := m.Snapshot()
	assert.True(t, domain.SumTotal(state.Items).Equal(state.Total),
		"total %s does not match items sum %s", state.Total, domain.SumTotal(state.Items))
}

func TestAddItem_MergesSameKey(t *testing.T) {
	m := NewManager()

	m.AddItem(product("1", 10), "M", 1)
	m.AddItem(product("1", 10), "M", 2)

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].ProductID)
	assert.Equal(t, "M", items[0].Size)
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(30).Equal(m.Total()))
}

func TestAddItem_DifferentSizesAreDistinct(t *testing.T) {
	m := NewManager()

	m.AddItem(product("1", 10), "M", 1)
	m.AddItem(product("1", 10), "L", 1)

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "M", items[0].Size)
	assert.Equal(t, "L", items[1].Size)
	assert.True(t, decimal.NewFromInt(20).Equal(m.Total()))
}

func TestAddItem_DefaultSize(t *testing.T) {
	m := NewManager()

	m.AddItem(product("1", 10), "", 1)
	m.AddItem(product("1", 10), DefaultSize, 1)

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, DefaultSize, items[0].Size)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestAddItem_NonPositiveQuantityIgnored(t *testing.T) {
	m := NewManager()
	notified := 0
	m.Subscribe(func(domain.CartState) { notified++ })

	m.AddItem(product("1", 10), "M", 0)
	m.AddItem(product("1", 10), "M", -3)

	assert.Empty(t, m.Items())
	assert.True(t, m.Total().IsZero())
	assert.Equal(t, 0, notified)
}

func TestAddItem_CopiesProductSnapshot(t *testing.T) {
	m := NewManager()
	p := product("7", 25)

	m.AddItem(p, "S", 1)
	p.Price = decimal.NewFromInt(999)
	p.Name = "renamed"

	item := m.Items()[0]
	assert.Equal(t, "Product 7", item.Name)
	assert.True(t, decimal.NewFromInt(25).Equal(item.Price))
	assert.Equal(t, "shirts", item.Category)
	assert.Equal(t, "https://img.example/7.jpg", item.ImageURL)
}

func TestUpdateQuantity_SetsAbsoluteValue(t *testing.T) {
	m := NewManager()

	m.AddItem(product("2", 20), "L", 1)
	m.UpdateQuantity("2", "L", 5)

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(100).Equal(m.Total()))
}

func TestUpdateQuantity_NonPositiveRemoves(t *testing.T) {
	for _, q := range []int{0, -1} {
		withUpdate := NewManager()
		withUpdate.AddItem(product("1", 10), "M", 2)
		withUpdate.AddItem(product("2", 20), "L", 1)
		withUpdate.UpdateQuantity("1", "M", q)

		withRemove := NewManager()
		withRemove.AddItem(product("1", 10), "M", 2)
		withRemove.AddItem(product("2", 20), "L", 1)
		withRemove.RemoveItem("1", "M")

		assert.Equal(t, withRemove.Items(), withUpdate.Items(), "quantity %d", q)
		assert.True(t, withRemove.Total().Equal(withUpdate.Total()), "quantity %d", q)
	}
}

func TestUpdateQuantity_MissingItemIsNoop(t *testing.T) {
	m := NewManager()
	m.AddItem(product("1", 10), "M", 2)

	m.UpdateQuantity("1", "XL", 4)
	m.UpdateQuantity("9", "M", 4)

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(20).Equal(m.Total()))
}

func TestRemoveItem_MissingKeyLeavesStateUnchanged(t *testing.T) {
	m := NewManager()
	m.AddItem(product("1", 10), "M", 2)
	before := m.Snapshot()

	m.RemoveItem("1", "L")
	m.RemoveItem("404", "M")

	after := m.Snapshot()
	assert.Equal(t, before.Items, after.Items)
	assert.True(t, before.Total.Equal(after.Total))
}

func TestRemoveItem_KeepsOrder(t *testing.T) {
	m := NewManager()
	m.AddItem(product("1", 10), "M", 1)
	m.AddItem(product("2", 10), "M", 1)
	m.AddItem(product("3", 10), "M", 1)

	m.RemoveItem("2", "M")

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].ProductID)
	assert.Equal(t, "3", items[1].ProductID)
}

func TestClear(t *testing.T) {
	m := NewManager()
	m.AddItem(product("1", 10), "M", 2)
	m.AddItem(product("2", 20), "L", 1)

	m.Clear()

	assert.Empty(t, m.Items())
	assert.True(t, m.Total().IsZero())
	assert.Equal(t, 0, m.ItemCount())

	m.Clear()
	assert.Empty(t, m.Items())
	assert.True(t, m.Total().IsZero())
}

func TestAddItemUpTo(t *testing.T) {
	m := NewManager()
	var notified int
	m.Subscribe(func(domain.CartState) { notified++ })

	assert.True(t, m.AddItemUpTo(product("1", 10), "M", 60, 99))
	assert.True(t, m.AddItemUpTo(product("1", 10), "M", 39, 99))
	assert.False(t, m.AddItemUpTo(product("1", 10), "M", 1, 99))
	assert.Equal(t, 2, notified)

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 99, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(990).Equal(m.Total()))

	assert.True(t, m.AddItemUpTo(product("2", 5), "", 99, 99))
	assert.False(t, m.AddItemUpTo(product("3", 5), "S", 100, 99))
	assert.Len(t, m.Items(), 2)
}

func TestRemovePurchased_KeepsLaterAdditions(t *testing.T) {
	m := NewManager()
	m.AddItem(product("1", 10), "M", 2)
	m.AddItem(product("2", 20), "L", 1)
	bought := m.Snapshot().Items

	// the shopper keeps shopping while the order is paid for
	m.AddItem(product("1", 10), "M", 1)
	m.AddItem(product("3", 30), "S", 1)
	m.RemoveItem("2", "L")

	m.RemovePurchased(bought)

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, domain.ItemKey{ProductID: "1", Size: "M"}, items[0].Key())
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, domain.ItemKey{ProductID: "3", Size: "S"}, items[1].Key())
	assert.True(t, decimal.NewFromInt(40).Equal(m.Total()))
	assertTotalConsistent(t, m)
}

func TestRemovePurchased_UnchangedCartEmpties(t *testing.T) {
	m := NewManager()
	m.AddItem(product("1", 10), "M", 2)
	m.AddItem(product("2", 20), "L", 1)

	m.RemovePurchased(m.Snapshot().Items)

	assert.Empty(t, m.Items())
	assert.True(t, m.Total().IsZero())
}

func TestItemCountAndTotal(t *testing.T) {
	m := NewManager()
	m.AddItem(product("1", 10), "M", 2)
	m.AddItem(product("2", 20), "L", 1)

	assert.Equal(t, 3, m.ItemCount())
	assert.True(t, decimal.NewFromInt(40).Equal(m.Total()))
	assert.True(t, decimal.NewFromInt(40).Equal(m.CalculateTotal()))
}

func TestTotal_DecimalPrices(t *testing.T) {
	m := NewManager()
	shirt := product("1", 0)
	shirt.Price = decimal.RequireFromString("89.99")
	jacket := product("2", 0)
	jacket.Price = decimal.RequireFromString("159.99")

	m.AddItem(shirt, "M", 3)
	m.AddItem(jacket, "L", 1)

	assert.Equal(t, "429.96", m.Total().StringFixed(2))
}

func TestNewManager_RestoresInvariants(t *testing.T) {
	m := NewManager(
		domain.LineItem{ProductID: "1", Size: "M", Quantity: 2, Price: decimal.NewFromInt(10)},
		domain.LineItem{ProductID: "2", Size: "L", Quantity: 0, Price: decimal.NewFromInt(20)},
		domain.LineItem{ProductID: "1", Size: "M", Quantity: 1, Price: decimal.NewFromInt(10)},
	)

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(30).Equal(m.Total()))
}

func TestSubscribe_ReceivesPostMutationState(t *testing.T) {
	m := NewManager()
	var states []domain.CartState
	unsubscribe := m.Subscribe(func(s domain.CartState) { states = append(states, s) })

	m.AddItem(product("1", 10), "M", 1)
	m.UpdateQuantity("1", "M", 4)
	m.RemoveItem("1", "M")
	unsubscribe()
	m.AddItem(product("2", 10), "M", 1)

	require.Len(t, states, 3)
	assert.True(t, decimal.NewFromInt(10).Equal(states[0].Total))
	assert.True(t, decimal.NewFromInt(40).Equal(states[1].Total))
	assert.Empty(t, states[2].Items)
	assert.True(t, states[2].Total.IsZero())
}

func TestSnapshot_IsACopy(t *testing.T) {
	m := NewManager()
	m.AddItem(product("1", 10), "M", 1)

	snap := m.Snapshot()
	snap.Items[0].Quantity = 50

	assert.Equal(t, 1, m.Items()[0].Quantity)
}

// Every mutator leaves total equal to the item sum, checked after each step of
// a random operation sequence.
func TestTotalInvariant_RandomSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []string{"1", "2", "3"}
	sizes := []string{"S", "M", "L"}
	m := NewManager()

	for step := 0; step < 500; step++ {
		id := ids[rng.Intn(len(ids))]
		size := sizes[rng.Intn(len(sizes))]
		switch rng.Intn(4) {
		case 0:
			m.AddItem(product(id, int64(rng.Intn(50)+1)), size, rng.Intn(3)+1)
		case 1:
			m.UpdateQuantity(id, size, rng.Intn(6)-1)
		case 2:
			m.RemoveItem(id, size)
		case 3:
			if rng.Intn(10) == 0 {
				m.Clear()
			}
		}

		assertTotalConsistent(t, m)
		seen := map[domain.ItemKey]bool{}
		for _, item := range m.Items() {
			assert.False(t, seen[item.Key()], "duplicate key %v at step %d", item.Key(), step)
			seen[item.Key()] = true
			assert.GreaterOrEqual(t, item.Quantity, 1)
		}
	}
}

func TestConcurrentAdds(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddItem(product("1", 10), "M", 2)
		}()
	}
	wg.Wait()

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 100, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(1000).Equal(m.Total()))
}
