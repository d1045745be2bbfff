package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Discount kinds.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

var hundred = decimal.NewFromInt(100)

// ActiveDiscount is a discount targeting a product directly or through its
// category, as loaded alongside the product row.
type ActiveDiscount struct {
	ID       int64           `json:"id"`
	Type     string          `json:"type"`
	Value    decimal.Decimal `json:"value"`
	StartsAt time.Time       `json:"starts_at"`
	EndsAt   time.Time       `json:"ends_at"`
}

// AppliedDiscount describes the discount that produced a final price.
type AppliedDiscount struct {
	ID    int64           `json:"id"`
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// Apply returns the price after d, never below zero.
func (d ActiveDiscount) Apply(base decimal.Decimal) decimal.Decimal {
	var price decimal.Decimal
	switch d.Type {
	case DiscountPercentage:
		price = base.Sub(base.Mul(d.Value).Div(hundred))
	case DiscountFixed:
		price = base.Sub(d.Value)
	default:
		return base
	}
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

// FinalPrice resolves the lowest price among the discounts active at now.
// Without an active discount the base price stands and the returned
// AppliedDiscount is nil.
func FinalPrice(base decimal.Decimal, discounts []ActiveDiscount, now time.Time) (decimal.Decimal, *AppliedDiscount) {
	best := base
	var applied *AppliedDiscount
	for _, d := range discounts {
		if now.Before(d.StartsAt) || now.After(d.EndsAt) {
			continue
		}
		if !d.Value.IsPositive() {
			continue
		}
		price := d.Apply(base)
		if price.LessThan(best) {
			best = price
			applied = &AppliedDiscount{ID: d.ID, Type: d.Type, Value: d.Value}
		}
	}
	return best.Round(2), applied
}
