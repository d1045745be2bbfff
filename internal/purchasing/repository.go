package purchasing

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alesteb/alesteb-api/internal/platform/db"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// Repository defines purchasing persistence.
type Repository interface {
	ListProviders(ctx context.Context, search string) ([]Provider, error)
	GetProvider(ctx context.Context, id int64) (Provider, error)
	CreateProvider(ctx context.Context, p Provider) (Provider, error)
	UpdateProvider(ctx context.Context, p Provider) (Provider, error)
	DeleteProvider(ctx context.Context, id int64) (int64, error)

	ListOrders(ctx context.Context, filters OrderFilters) ([]PurchaseOrder, int, error)
	GetOrder(ctx context.Context, id int64) (*PurchaseOrder, error)
	ListPayments(ctx context.Context, orderID int64) ([]Payment, error)

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional write operations.
type TxRepository interface {
	InsertOrder(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertOrderLine(ctx context.Context, line OrderLine) error
	LockOrder(ctx context.Context, id int64) (*PurchaseOrder, error)
	MarkReceived(ctx context.Context, id int64, at time.Time) error
	IncrementStock(ctx context.Context, productID int64, qty int) error
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	UpdatePaid(ctx context.Context, id int64, paid decimal.Decimal, status PaymentStatus) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// ============================================================================
// PROVIDERS
// ============================================================================

const providerColumns = `id, name, contact_name, email, phone, address, notes, created_at, updated_at`

func scanProvider(row pgx.Row) (Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.ContactName, &p.Email, &p.Phone, &p.Address, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) ListProviders(ctx context.Context, search string) ([]Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers`
	var args []any
	if search != "" {
		query += ` WHERE name ILIKE $1 OR contact_name ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	rows, err := r.pool.Query(ctx, query+` ORDER BY name, id`, args...)
	if err != nil {
		return nil, db.Translate(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Provider, error) {
		return scanProvider(row)
	})
	if err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

func (r *repository) GetProvider(ctx context.Context, id int64) (Provider, error) {
	p, err := scanProvider(r.pool.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Provider{}, ErrProviderNotFound
		}
		return Provider{}, db.Translate(err)
	}
	return p, nil
}

func (r *repository) CreateProvider(ctx context.Context, p Provider) (Provider, error) {
	created, err := scanProvider(r.pool.QueryRow(ctx, `
		INSERT INTO providers (name, contact_name, email, phone, address, notes)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+providerColumns,
		p.Name, p.ContactName, p.Email, p.Phone, p.Address, p.Notes))
	if err != nil {
		return Provider{}, db.Translate(err)
	}
	return created, nil
}

func (r *repository) UpdateProvider(ctx context.Context, p Provider) (Provider, error) {
	updated, err := scanProvider(r.pool.QueryRow(ctx, `
		UPDATE providers SET name = $2, contact_name = $3, email = $4, phone = $5, address = $6, notes = $7,
			updated_at = NOW()
		WHERE id = $1 RETURNING `+providerColumns,
		p.ID, p.Name, p.ContactName, p.Email, p.Phone, p.Address, p.Notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Provider{}, ErrProviderNotFound
		}
		return Provider{}, db.Translate(err)
	}
	return updated, nil
}

func (r *repository) DeleteProvider(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM providers WHERE id = $1`, id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return tag.RowsAffected(), nil
}

// ============================================================================
// PURCHASE ORDERS
// ============================================================================

const orderSelect = `
	SELECT o.id, o.number, o.provider_id, p.name, o.status, o.payment_status, o.total, o.paid_amount,
	       o.notes, o.ordered_at, o.received_at, o.created_by
	FROM purchase_orders o
	JOIN providers p ON p.id = o.provider_id`

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.Number, &po.ProviderID, &po.ProviderName, &po.Status, &po.PaymentStatus,
		&po.Total, &po.PaidAmount, &po.Notes, &po.OrderedAt, &po.ReceivedAt, &po.CreatedBy)
	return po, err
}

func (r *repository) ListOrders(ctx context.Context, filters OrderFilters) ([]PurchaseOrder, int, error) {
	where := ` WHERE 1=1`
	var args []any
	if filters.ProviderID != nil {
		args = append(args, *filters.ProviderID)
		where += ` AND o.provider_id = $` + strconv.Itoa(len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND o.status = $` + strconv.Itoa(len(args))
	}
	if filters.PaymentStatus != "" {
		args = append(args, filters.PaymentStatus)
		where += ` AND o.payment_status = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders o`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}
	query := orderSelect + where + ` ORDER BY o.ordered_at DESC, o.id DESC`
	if filters.Limit > 0 {
		args = append(args, filters.Limit, shared.Offset(filters.Page, filters.Limit))
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (PurchaseOrder, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	return out, total, nil
}

func (r *repository) GetOrder(ctx context.Context, id int64) (*PurchaseOrder, error) {
	return getOrder(ctx, r.pool, id, false)
}

func getOrder(ctx context.Context, q db.Querier, id int64, lock bool) (*PurchaseOrder, error) {
	query := orderSelect + ` WHERE o.id = $1`
	if lock {
		query += ` FOR UPDATE OF o`
	}
	po, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, db.Translate(err)
	}
	rows, err := q.Query(ctx, `
		SELECT id, purchase_order_id, product_id, quantity, unit_cost, subtotal
		FROM purchase_order_lines WHERE purchase_order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, db.Translate(err)
	}
	po.Lines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderLine, error) {
		var l OrderLine
		err := row.Scan(&l.ID, &l.PurchaseOrderID, &l.ProductID, &l.Quantity, &l.UnitCost, &l.Subtotal)
		return l, err
	})
	if err != nil {
		return nil, db.Translate(err)
	}
	return &po, nil
}

func (r *repository) ListPayments(ctx context.Context, orderID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, purchase_order_id, amount, method, reference, paid_at, created_by
		FROM provider_payments WHERE purchase_order_id = $1 ORDER BY paid_at, id`, orderID)
	if err != nil {
		return nil, db.Translate(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Payment, error) {
		var p Payment
		err := row.Scan(&p.ID, &p.PurchaseOrderID, &p.Amount, &p.Method, &p.Reference, &p.PaidAt, &p.CreatedBy)
		return p, err
	})
	if err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

func (t *txRepository) InsertOrder(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (number, provider_id, status, payment_status, total, paid_amount, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		po.Number, po.ProviderID, po.Status, po.PaymentStatus, po.Total, po.PaidAmount, po.Notes, po.CreatedBy).Scan(&id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return id, nil
}

func (t *txRepository) InsertOrderLine(ctx context.Context, l OrderLine) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO purchase_order_lines (purchase_order_id, product_id, quantity, unit_cost, subtotal)
		VALUES ($1, $2, $3, $4, $5)`, l.PurchaseOrderID, l.ProductID, l.Quantity, l.UnitCost, l.Subtotal)
	return db.Translate(err)
}

func (t *txRepository) LockOrder(ctx context.Context, id int64) (*PurchaseOrder, error) {
	return getOrder(ctx, t.tx, id, true)
}

func (t *txRepository) MarkReceived(ctx context.Context, id int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $2, received_at = $3 WHERE id = $1`, id, OrderStatusReceived, at)
	return db.Translate(err)
}

func (t *txRepository) IncrementStock(ctx context.Context, productID int64, qty int) error {
	tag, err := t.tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, productID, qty)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

func (t *txRepository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO provider_payments (purchase_order_id, amount, method, reference, paid_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.PurchaseOrderID, p.Amount, p.Method, p.Reference, p.PaidAt, p.CreatedBy).Scan(&id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return id, nil
}

func (t *txRepository) UpdatePaid(ctx context.Context, id int64, paid decimal.Decimal, status PaymentStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET paid_amount = $2, payment_status = $3 WHERE id = $1`, id, paid, status)
	return db.Translate(err)
}
