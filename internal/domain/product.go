package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	Categories = []string{"shirts", "pants", "jackets", "dresses", "accessories"}
	Sizes      = []string{"XS", "S", "M", "L", "XL", "XXL"}
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"image_url"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
}

func IsKnownSize(size string) bool {
	for _, s := range Sizes {
		if s == size {
			return true
		}
	}
	return false
}

func IsKnownCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
