package discounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Discount kinds.
const (
	TypePercentage = "percentage"
	TypeFixed      = "fixed"
)

// Discount is a price reduction valid inside [StartsAt, EndsAt].
type Discount struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Value     decimal.Decimal `json:"value"`
	StartsAt  time.Time       `json:"starts_at"`
	EndsAt    time.Time       `json:"ends_at"`
	CreatedAt time.Time       `json:"created_at"`
	Targets   []Target        `json:"targets,omitempty"`
}

// Target binds a discount to one product or one category.
type Target struct {
	ID         int64  `json:"id"`
	DiscountID int64  `json:"discount_id"`
	ProductID  *int64 `json:"product_id"`
	CategoryID *int64 `json:"category_id"`
}

// TargetInput names exactly one of ProductID and CategoryID.
type TargetInput struct {
	ProductID  *int64 `json:"product_id" validate:"omitempty,gt=0"`
	CategoryID *int64 `json:"category_id" validate:"omitempty,gt=0"`
}

// Input is the create/update payload.
type Input struct {
	Name     string          `json:"name" validate:"required,max=120"`
	Type     string          `json:"type" validate:"required,oneof=percentage fixed"`
	Value    decimal.Decimal `json:"value"`
	StartsAt time.Time       `json:"starts_at" validate:"required"`
	EndsAt   time.Time       `json:"ends_at" validate:"required"`
	Targets  []TargetInput   `json:"targets" validate:"required,min=1,dive"`
}

// Active reports whether d applies at t.
func (d Discount) Active(t time.Time) bool {
	return !t.Before(d.StartsAt) && !t.After(d.EndsAt)
}
