package purchasing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// Service orchestrates providers, purchase orders and provider payments.
type Service struct {
	repo  Repository
	audit shared.AuditRecorder
	now   func() time.Time
}

// NewService constructs a purchasing service.
func NewService(repo Repository, audit shared.AuditRecorder) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// ============================================================================
// PROVIDERS
// ============================================================================

func (s *Service) ListProviders(ctx context.Context, search string) ([]Provider, error) {
	out, err := s.repo.ListProviders(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Provider{}
	}
	return out, nil
}

func (s *Service) GetProvider(ctx context.Context, id int64) (Provider, error) {
	return s.repo.GetProvider(ctx, id)
}

func (s *Service) CreateProvider(ctx context.Context, in ProviderInput) (Provider, error) {
	p, err := providerFromInput(in)
	if err != nil {
		return Provider{}, err
	}
	created, err := s.repo.CreateProvider(ctx, p)
	if err != nil {
		return Provider{}, err
	}
	s.record(ctx, "provider.create", "provider", created.ID, nil)
	return created, nil
}

func (s *Service) UpdateProvider(ctx context.Context, id int64, in ProviderInput) (Provider, error) {
	p, err := providerFromInput(in)
	if err != nil {
		return Provider{}, err
	}
	p.ID = id
	updated, err := s.repo.UpdateProvider(ctx, p)
	if err != nil {
		return Provider{}, err
	}
	s.record(ctx, "provider.update", "provider", id, nil)
	return updated, nil
}

// DeleteProvider removes a provider without purchase orders. Providers still
// referenced by orders are rejected by the foreign key.
func (s *Service) DeleteProvider(ctx context.Context, id int64) error {
	n, err := s.repo.DeleteProvider(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProviderNotFound
	}
	s.record(ctx, "provider.delete", "provider", id, nil)
	return nil
}

func providerFromInput(in ProviderInput) (Provider, error) {
	p := Provider{
		Name:        strings.TrimSpace(in.Name),
		ContactName: strings.TrimSpace(in.ContactName),
		Phone:       strings.TrimSpace(in.Phone),
		Address:     strings.TrimSpace(in.Address),
		Notes:       strings.TrimSpace(in.Notes),
	}
	if p.Name == "" {
		return Provider{}, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if in.Email != nil {
		if e := strings.ToLower(strings.TrimSpace(*in.Email)); e != "" {
			p.Email = &e
		}
	}
	return p, nil
}

// ============================================================================
// PURCHASE ORDERS
// ============================================================================

func (s *Service) ListOrders(ctx context.Context, filters OrderFilters) ([]PurchaseOrder, int, error) {
	out, total, err := s.repo.ListOrders(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	if out == nil {
		out = []PurchaseOrder{}
	}
	return out, total, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*PurchaseOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

// CreateOrder places a purchase order. Stock is untouched until the order
// is received.
func (s *Service) CreateOrder(ctx context.Context, in OrderInput) (*PurchaseOrder, error) {
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: at least one line is required", shared.ErrValidation)
	}
	if _, err := s.repo.GetProvider(ctx, in.ProviderID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: provider %d does not exist", shared.ErrValidation, in.ProviderID)
		}
		return nil, err
	}

	lines := make([]OrderLine, 0, len(in.Lines))
	total := decimal.Zero
	for _, l := range in.Lines {
		if l.ProductID <= 0 || l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product_id and quantity must be positive", shared.ErrValidation)
		}
		if l.UnitCost.IsNegative() {
			return nil, fmt.Errorf("%w: unit_cost cannot be negative", shared.ErrValidation)
		}
		subtotal := l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		lines = append(lines, OrderLine{ProductID: l.ProductID, Quantity: l.Quantity, UnitCost: l.UnitCost, Subtotal: subtotal})
		total = total.Add(subtotal)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	now := s.now()
	po := PurchaseOrder{
		Number:        generateNumber("PO", now),
		ProviderID:    in.ProviderID,
		Status:        OrderStatusOrdered,
		PaymentStatus: PaymentStatusUnpaid,
		Total:         total,
		PaidAmount:    decimal.Zero,
		Notes:         strings.TrimSpace(in.Notes),
	}
	if actor := shared.ActorID(ctx); actor > 0 {
		po.CreatedBy = &actor
	}

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		id, err = tx.InsertOrder(ctx, po)
		if err != nil {
			return fmt.Errorf("insert purchase order: %w", err)
		}
		for _, l := range lines {
			l.PurchaseOrderID = id
			if err := tx.InsertOrderLine(ctx, l); err != nil {
				return fmt.Errorf("insert purchase order line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "purchase_order.create", "purchase_order", id, map[string]any{"total": total.String()})
	return s.repo.GetOrder(ctx, id)
}

// ReceiveOrder adds every line's quantity to product stock and marks the
// order received, all in one transaction.
func (s *Service) ReceiveOrder(ctx context.Context, id int64) (*PurchaseOrder, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if po.Status != OrderStatusOrdered {
			return fmt.Errorf("%w: order is %s", ErrInvalidState, po.Status)
		}
		for _, l := range po.Lines {
			if err := tx.IncrementStock(ctx, l.ProductID, l.Quantity); err != nil {
				return fmt.Errorf("receive product %d: %w", l.ProductID, err)
			}
		}
		return tx.MarkReceived(ctx, id, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "purchase_order.receive", "purchase_order", id, nil)
	return s.repo.GetOrder(ctx, id)
}

// ============================================================================
// PAYMENTS
// ============================================================================

func (s *Service) ListPayments(ctx context.Context, orderID int64) ([]Payment, error) {
	if _, err := s.repo.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	out, err := s.repo.ListPayments(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Payment{}
	}
	return out, nil
}

// PostPayment records a provider payment against a purchase order. The order
// row is locked so concurrent payments cannot exceed the total.
func (s *Service) PostPayment(ctx context.Context, orderID int64, in PaymentInput) (*Payment, error) {
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", shared.ErrValidation)
	}
	payment := Payment{
		PurchaseOrderID: orderID,
		Amount:          amount,
		Method:          in.Method,
		Reference:       strings.TrimSpace(in.Reference),
		PaidAt:          s.now(),
	}
	if in.PaidAt != nil {
		payment.PaidAt = *in.PaidAt
	}
	if actor := shared.ActorID(ctx); actor > 0 {
		payment.CreatedBy = &actor
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if po.Status == OrderStatusCancelled {
			return fmt.Errorf("%w: order is cancelled", ErrInvalidState)
		}
		if amount.GreaterThan(po.Balance()) {
			return fmt.Errorf("%w: balance is %s", ErrOverpayment, po.Balance().StringFixed(2))
		}
		id, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		payment.ID = id
		paid := po.PaidAmount.Add(amount)
		return tx.UpdatePaid(ctx, orderID, paid, settlement(paid, po.Total))
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "payment.post", "purchase_order", orderID, map[string]any{"amount": amount.String(), "payment_id": payment.ID})
	return &payment, nil
}

func settlement(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case !paid.IsPositive():
		return PaymentStatusUnpaid
	case paid.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	default:
		return PaymentStatusPartial
	}
}

func generateNumber(prefix string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefix, at.UTC().Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

func (s *Service) record(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: fmt.Sprint(id),
		Meta:     meta,
	})
}
