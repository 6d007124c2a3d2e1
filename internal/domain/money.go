package domain

import "github.com/shopspring/decimal"

// All prices, totals and charges are held in a single currency.
const (
	Currency       = "NGN"
	CurrencySymbol = "₦"
)

var hundred = decimal.NewFromInt(100)

// FormatMoney renders an amount with the currency symbol and two decimals.
func FormatMoney(amount decimal.Decimal) string {
	return CurrencySymbol + amount.StringFixed(2)
}

// MinorUnits converts an amount to kobo, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
