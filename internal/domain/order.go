package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

const DefaultCountry = "Nigeria"

var Countries = []string{"Nigeria", "Ghana", "Kenya", "South Africa"}

type ShippingInfo struct {
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Address        string `json:"address"`
	City           string `json:"city"`
	PostalCode     string `json:"postal_code"`
	Country        string `json:"country"`
	Phone          string `json:"phone"`
	DeliveryOption string `json:"delivery_option"`
}

type Order struct {
	ID               uuid.UUID       `json:"id"`
	UserID           string          `json:"user_id,omitempty"`
	Items            []LineItem      `json:"items"`
	Shipping         ShippingInfo    `json:"shipping_address"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DeliveryFee      decimal.Decimal `json:"delivery_fee"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	Currency         string          `json:"currency"`
	Status           OrderStatus     `json:"status"`
	PaymentReference string          `json:"payment_reference"`
	CreatedAt        time.Time       `json:"created_at"`
}
