package products

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFinalPriceWithoutDiscountKeepsBase(t *testing.T) {
	now := time.Now()
	price, applied := FinalPrice(dec("80.00"), nil, now)
	assert.True(t, price.Equal(dec("80")))
	assert.Nil(t, applied)
}

func TestFinalPricePicksLowest(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	window := func(d ActiveDiscount) ActiveDiscount {
		d.StartsAt = now.Add(-time.Hour)
		d.EndsAt = now.Add(time.Hour)
		return d
	}
	discounts := []ActiveDiscount{
		window(ActiveDiscount{ID: 1, Type: DiscountPercentage, Value: dec("10")}),
		window(ActiveDiscount{ID: 2, Type: DiscountFixed, Value: dec("25")}),
	}
	price, applied := FinalPrice(dec("200"), discounts, now)
	assert.True(t, price.Equal(dec("175")), price.String())
	if assert.NotNil(t, applied) {
		assert.Equal(t, int64(2), applied.ID)
	}

	price, applied = FinalPrice(dec("100"), discounts, now)
	assert.True(t, price.Equal(dec("75")), price.String())
	assert.Equal(t, int64(2), applied.ID)

	price, _ = FinalPrice(dec("400"), discounts, now)
	assert.True(t, price.Equal(dec("360")), price.String())
}

func TestFinalPriceIgnoresInactiveWindow(t *testing.T) {
	now := time.Now()
	expired := ActiveDiscount{ID: 1, Type: DiscountPercentage, Value: dec("50"), StartsAt: now.Add(-48 * time.Hour), EndsAt: now.Add(-24 * time.Hour)}
	future := ActiveDiscount{ID: 2, Type: DiscountFixed, Value: dec("5"), StartsAt: now.Add(time.Hour), EndsAt: now.Add(2 * time.Hour)}
	price, applied := FinalPrice(dec("30"), []ActiveDiscount{expired, future}, now)
	assert.True(t, price.Equal(dec("30")))
	assert.Nil(t, applied)
}

func TestFinalPriceNeverExceedsBaseNorDropsBelowZero(t *testing.T) {
	now := time.Now()
	active := func(kind, v string) ActiveDiscount {
		return ActiveDiscount{Type: kind, Value: dec(v), StartsAt: now.Add(-time.Minute), EndsAt: now.Add(time.Minute)}
	}
	for _, d := range []ActiveDiscount{
		active(DiscountPercentage, "0.5"),
		active(DiscountPercentage, "100"),
		active(DiscountFixed, "0.01"),
		active(DiscountFixed, "1000"),
	} {
		price, _ := FinalPrice(dec("19.99"), []ActiveDiscount{d}, now)
		assert.True(t, price.LessThanOrEqual(dec("19.99")), "%s %s", d.Type, d.Value)
		assert.False(t, price.IsNegative())
	}
}

func TestFinalPriceRoundsToCents(t *testing.T) {
	now := time.Now()
	d := ActiveDiscount{Type: DiscountPercentage, Value: dec("33"), StartsAt: now.Add(-time.Minute), EndsAt: now.Add(time.Minute)}
	price, _ := FinalPrice(dec("9.99"), []ActiveDiscount{d}, now)
	assert.Equal(t, "6.69", price.StringFixed(2))
}
