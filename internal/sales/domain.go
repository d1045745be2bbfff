package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// SALE
// ============================================================================

// Status of a sale.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Sale is a recorded checkout with its priced lines.
type Sale struct {
	ID            int64           `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail *string         `json:"customer_email"`
	PaymentMethod string          `json:"payment_method"`
	Status        Status          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	Notes         string          `json:"notes"`
	CreatedBy     *int64          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	CancelledAt   *time.Time      `json:"cancelled_at"`
	Lines         []Line          `json:"lines,omitempty"`
}

// Line snapshots the product name and the effective price at sale time.
type Line struct {
	ID          int64           `json:"id"`
	SaleID      int64           `json:"sale_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	BasePrice   decimal.Decimal `json:"base_price"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// CreateRequest is the payload for a new sale.
type CreateRequest struct {
	CustomerName  string        `json:"customer_name" validate:"required,max=200"`
	CustomerEmail *string       `json:"customer_email" validate:"omitempty,email"`
	PaymentMethod string        `json:"payment_method" validate:"required,oneof=cash card transfer other"`
	Notes         string        `json:"notes" validate:"max=1000"`
	Lines         []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

// LineRequest asks for quantity units of a product.
type LineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// ListFilters narrows sale listings.
type ListFilters struct {
	From   *time.Time
	To     *time.Time
	Status Status
	Page   int
	Limit  int
}

// ============================================================================
// REPORTING
// ============================================================================

// DailySummary aggregates completed sales per calendar day.
type DailySummary struct {
	Day     string          `json:"day"`
	Count   int             `json:"count"`
	Units   int             `json:"units"`
	Revenue decimal.Decimal `json:"revenue"`
}

// PricedProduct is a locked product row with its effective price.
type PricedProduct struct {
	ID        int64
	Name      string
	Stock     int
	BasePrice decimal.Decimal
	UnitPrice decimal.Decimal
}
