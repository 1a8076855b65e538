// Package pricing turns wholesale prices into customer-facing selling prices.
package pricing

import "github.com/shopspring/decimal"

// FallbackMarkup applies when neither the product, its category nor its
// supplier defines a markup.
var FallbackMarkup = decimal.RequireFromString("0.20")

var hundred = decimal.NewFromInt(100)

// ResolveMarkup returns the first defined markup in priority order: product
// override, category default, supplier default, then FallbackMarkup. A
// defined zero is honoured.
func ResolveMarkup(override, categoryDefault, supplierDefault decimal.NullDecimal) decimal.Decimal {
	for _, candidate := range []decimal.NullDecimal{override, categoryDefault, supplierDefault} {
		if candidate.Valid {
			return candidate.Decimal
		}
	}
	return FallbackMarkup
}

// SellingPrice computes wholesale × (1 + markup) rounded to cents, half away
// from zero. Inputs are not validated.
func SellingPrice(wholesale, markup decimal.Decimal) decimal.Decimal {
	return wholesale.Mul(decimal.NewFromInt(1).Add(markup)).Round(2)
}

// ToMinorUnits converts a currency amount to integer cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts integer cents back to a currency amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Defined wraps a value as a present markup.
func Defined(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// Undefined is the absent markup.
func Undefined() decimal.NullDecimal {
	return decimal.NullDecimal{}
}
