package purchasing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// Purchase order lifecycle statuses.
type OrderStatus string

const (
	OrderStatusOrdered   OrderStatus = "ordered"
	OrderStatusReceived  OrderStatus = "received"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Settlement statuses of a purchase order.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Domain errors.
var (
	ErrProviderNotFound = fmt.Errorf("%w: provider not found", shared.ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("%w: purchase order not found", shared.ErrNotFound)
	ErrInvalidState     = fmt.Errorf("%w: purchase order is not in a valid state for this action", shared.ErrConflict)
	ErrOverpayment      = fmt.Errorf("%w: payment exceeds the outstanding balance", shared.ErrValidation)
)

// Provider supplies stock.
type Provider struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ContactName string    `json:"contact_name"`
	Email       *string   `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProviderInput is the create/update payload for providers.
type ProviderInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	ContactName string  `json:"contact_name" validate:"max=200"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       string  `json:"phone" validate:"max=50"`
	Address     string  `json:"address" validate:"max=500"`
	Notes       string  `json:"notes" validate:"max=1000"`
}

// PurchaseOrder is a stock order placed with a provider.
type PurchaseOrder struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	ProviderID    int64           `json:"provider_id"`
	ProviderName  string          `json:"provider_name"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Total         decimal.Decimal `json:"total"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Notes         string          `json:"notes"`
	OrderedAt     time.Time       `json:"ordered_at"`
	ReceivedAt    *time.Time      `json:"received_at"`
	CreatedBy     *int64          `json:"created_by"`
	Lines         []OrderLine     `json:"lines,omitempty"`
}

// Balance is what remains to be paid.
func (po PurchaseOrder) Balance() decimal.Decimal {
	return po.Total.Sub(po.PaidAmount)
}

// OrderLine is one product of a purchase order.
type OrderLine struct {
	ID              int64           `json:"id"`
	PurchaseOrderID int64           `json:"purchase_order_id"`
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// OrderInput is the create payload for purchase orders.
type OrderInput struct {
	ProviderID int64            `json:"provider_id" validate:"required,gt=0"`
	Notes      string           `json:"notes" validate:"max=1000"`
	Lines      []OrderLineInput `json:"lines" validate:"required,min=1,dive"`
}

// OrderLineInput requests quantity units at unit cost.
type OrderLineInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// Payment settles part or all of a purchase order.
type Payment struct {
	ID              int64           `json:"id"`
	PurchaseOrderID int64           `json:"purchase_order_id"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method"`
	Reference       string          `json:"reference"`
	PaidAt          time.Time       `json:"paid_at"`
	CreatedBy       *int64          `json:"created_by"`
}

// PaymentInput is the payload for posting a payment.
type PaymentInput struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" validate:"required,oneof=cash card transfer other"`
	Reference string          `json:"reference" validate:"max=120"`
	PaidAt    *time.Time      `json:"paid_at"`
}

// OrderFilters narrows purchase order listings.
type OrderFilters struct {
	ProviderID    *int64
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Page          int
	Limit         int
}
