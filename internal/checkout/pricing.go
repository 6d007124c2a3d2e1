package checkout

import (
	"errors"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/shopspring/decimal"
)

const DefaultDeliveryOption = "standard"

var ErrUnknownDeliveryOption = errors.New("unknown delivery option")

var (
	// FreeShippingThreshold waives the standard delivery fee at or above it.
	FreeShippingThreshold = decimal.NewFromInt(100)
	TaxRate               = decimal.RequireFromString("0.08")
)

type DeliveryOption struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

var DeliveryOptions = []DeliveryOption{
	{ID: "standard", Name: "Standard Delivery", Description: "5-7 business days", Price: decimal.RequireFromString("9.99")},
	{ID: "express", Name: "Express Delivery", Description: "2-3 business days", Price: decimal.RequireFromString("19.99")},
	{ID: "overnight", Name: "Overnight Delivery", Description: "Next business day", Price: decimal.RequireFromString("29.99")},
}

func LookupDelivery(id string) (DeliveryOption, bool) {
	for _, o := range DeliveryOptions {
		if o.ID == id {
			return o, true
		}
	}
	return DeliveryOption{}, false
}

// Quote is the price breakdown of a cart for one delivery option.
type Quote struct {
	ItemCount      int             `json:"item_count"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryOption string          `json:"delivery_option"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	// FreeShippingRemaining is how much more the shopper must add for free
	// standard delivery; zero once the threshold is reached.
	FreeShippingRemaining decimal.Decimal `json:"free_shipping_remaining"`
	Currency              string          `json:"currency"`
}

// QuoteFor prices a subtotal. Tax is rounded to two places.
func QuoteFor(subtotal decimal.Decimal, itemCount int, option string) (Quote, error) {
	if option == "" {
		option = DefaultDeliveryOption
	}
	delivery, ok := LookupDelivery(option)
	if !ok {
		return Quote{}, ErrUnknownDeliveryOption
	}

	fee := delivery.Price
	if option == DefaultDeliveryOption && subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		fee = decimal.Zero
	}
	remaining := FreeShippingThreshold.Sub(subtotal)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	tax := subtotal.Mul(TaxRate).Round(2)

	return Quote{
		ItemCount:             itemCount,
		Subtotal:              subtotal,
		DeliveryOption:        option,
		DeliveryFee:           fee,
		Tax:                   tax,
		Total:                 subtotal.Add(fee).Add(tax),
		FreeShippingRemaining: remaining,
		Currency:              domain.Currency,
	}, nil
}

// Summary is the cart page breakdown: standard delivery.
func Summary(state domain.CartState) Quote {
	q, _ := QuoteFor(state.Total, domain.ItemCount(state.Items), DefaultDeliveryOption)
	return q
}
