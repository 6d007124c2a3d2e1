package domain

import "github.com/shopspring/decimal"

// ItemKey identifies a line item: the same product in two sizes is two lines.
type ItemKey struct {
	ProductID string
	Size      string
}

// LineItem is a product snapshot taken when it was added, plus size and quantity.
// The snapshot is never re-validated against the catalog.
type LineItem struct {
	ProductID   string          `json:"id"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	Stock       int             `json:"stock,omitempty"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
}

func NewLineItem(p Product, size string, quantity int) LineItem {
	return LineItem{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		Stock:       p.Stock,
		Size:        size,
		Quantity:    quantity,
	}
}

func (i LineItem) Key() ItemKey {
	return ItemKey{ProductID: i.ProductID, Size: i.Size}
}

func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CartState struct {
	Items []LineItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// SumTotal returns Σ price×quantity over items.
func SumTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount returns the number of units, not distinct lines.
func ItemCount(items []LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// NormalizeItems restores the cart invariants on untrusted input: lines with
// quantity below one are dropped and duplicate keys are merged into the first
// occurrence, preserving order.
func NormalizeItems(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	index := make(map[ItemKey]int, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		if i, ok := index[item.Key()]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.Key()] = len(out)
		out = append(out, item)
	}
	return out
}

// Normalize returns a copy with invariants restored and the total recomputed.
func (s CartState) Normalize() CartState {
	items := NormalizeItems(s.Items)
	return CartState{Items: items, Total: SumTotal(items)}
}
