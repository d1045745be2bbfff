package expenses

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is an operating cost recorded by the back office.
type Expense struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	SpentOn     time.Time       `json:"spent_on"`
	Notes       string          `json:"notes"`
	CreatedBy   *int64          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Input is the create/update payload.
type Input struct {
	Description string          `json:"description" validate:"required,max=255"`
	Category    string          `json:"category" validate:"required,max=80"`
	Amount      decimal.Decimal `json:"amount"`
	SpentOn     string          `json:"spent_on" validate:"required,datetime=2006-01-02"`
	Notes       string          `json:"notes" validate:"max=1000"`
}

// ListFilters narrows expense listings. From is inclusive, To exclusive.
type ListFilters struct {
	From     *time.Time
	To       *time.Time
	Category string
	Page     int
	Limit    int
}

// CategoryTotal aggregates expenses per category label.
type CategoryTotal struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
}
