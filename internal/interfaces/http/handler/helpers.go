package handler

import "github.com/shopspring/decimal"

// Request DTOs carry amounts as float64 for JSON ergonomics while the
// domain works in decimals. Conversion happens once, at the boundary.

func toDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func toDecimalPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}
