package sales

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// Domain errors.
var (
	ErrNotFound          = fmt.Errorf("%w: sale not found", shared.ErrNotFound)
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", shared.ErrConflict)
	ErrAlreadyCancelled  = fmt.Errorf("%w: sale already cancelled", shared.ErrConflict)
	ErrUnknownProduct    = fmt.Errorf("%w: unknown product", shared.ErrValidation)
)

// maxSummaryRange bounds report windows.
const maxSummaryRange = 366 * 24 * time.Hour

// Service provides sale business logic.
type Service struct {
	repo  Repository
	audit shared.AuditRecorder
	now   func() time.Time
}

// NewService creates a Service.
func NewService(repo Repository, audit shared.AuditRecorder) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// List returns a page of sales.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Sale, int, error) {
	if filters.From != nil && filters.To != nil && !filters.To.After(*filters.From) {
		return nil, 0, fmt.Errorf("%w: to must be after from", shared.ErrValidation)
	}
	out, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	if out == nil {
		out = []Sale{}
	}
	return out, total, nil
}

// Get returns a sale with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Sale, error) {
	return s.repo.Get(ctx, id)
}

// Create records a sale. Product rows are locked, unit prices are
// snapshotted with active discounts applied and stock is decremented only
// where enough units remain; otherwise nothing is written.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Sale, error) {
	lines := mergeLines(req.Lines)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: at least one line is required", shared.ErrValidation)
	}
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if l.ProductID <= 0 || l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product_id and quantity must be positive", shared.ErrValidation)
		}
		ids = append(ids, l.ProductID)
	}

	var (
		saleID int64
		now    = s.now()
	)
	actor := shared.ActorID(ctx)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		priced, err := tx.LockProducts(ctx, ids, now)
		if err != nil {
			return err
		}
		sale := Sale{
			CustomerName:  strings.TrimSpace(req.CustomerName),
			CustomerEmail: req.CustomerEmail,
			PaymentMethod: req.PaymentMethod,
			Status:        StatusCompleted,
			Notes:         strings.TrimSpace(req.Notes),
			Total:         decimal.Zero,
		}
		if actor > 0 {
			sale.CreatedBy = &actor
		}
		built := make([]Line, 0, len(lines))
		for _, l := range lines {
			p, ok := priced[l.ProductID]
			if !ok {
				return fmt.Errorf("%w: %d", ErrUnknownProduct, l.ProductID)
			}
			if p.Stock < l.Quantity {
				return fmt.Errorf("%w: product %d has %d, %d requested", ErrInsufficientStock, p.ID, p.Stock, l.Quantity)
			}
			subtotal := p.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
			built = append(built, Line{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    l.Quantity,
				BasePrice:   p.BasePrice,
				UnitPrice:   p.UnitPrice,
				Subtotal:    subtotal,
			})
			sale.Total = sale.Total.Add(subtotal)
		}

		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		for _, l := range built {
			ok, err := tx.DecrementStock(ctx, l.ProductID, l.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if !ok {
				return fmt.Errorf("%w: product %d", ErrInsufficientStock, l.ProductID)
			}
			l.SaleID = id
			if err := tx.InsertLine(ctx, l); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		}
		saleID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor, Action: "sale.create", Entity: "sale", EntityID: fmt.Sprint(saleID)})
	return s.repo.Get(ctx, saleID)
}

// Cancel marks a completed sale cancelled and restores the stock of every
// line in the same transaction.
func (s *Service) Cancel(ctx context.Context, id int64) (*Sale, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.LockSale(ctx, id)
		if err != nil {
			return err
		}
		if sale.Status == StatusCancelled {
			return ErrAlreadyCancelled
		}
		for _, l := range sale.Lines {
			if err := tx.IncrementStock(ctx, l.ProductID, l.Quantity); err != nil {
				return fmt.Errorf("restore stock: %w", err)
			}
		}
		return tx.MarkCancelled(ctx, id, s.now())
	})
	if err != nil {
		return nil, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: shared.ActorID(ctx), Action: "sale.cancel", Entity: "sale", EntityID: fmt.Sprint(id)})
	return s.repo.Get(ctx, id)
}

// Summary reports completed sales per day within [from, to).
func (s *Service) Summary(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: to must be after from", shared.ErrValidation)
	}
	if to.Sub(from) > maxSummaryRange {
		return nil, fmt.Errorf("%w: range cannot exceed one year", shared.ErrValidation)
	}
	out, err := s.repo.Summary(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []DailySummary{}
	}
	return out, nil
}

// mergeLines folds repeated products into one line, ordered by product id
// so concurrent sales lock rows in the same order.
func mergeLines(in []LineRequest) []LineRequest {
	qty := make(map[int64]int, len(in))
	for _, l := range in {
		qty[l.ProductID] += l.Quantity
	}
	out := make([]LineRequest, 0, len(qty))
	for id, q := range qty {
		out = append(out, LineRequest{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
