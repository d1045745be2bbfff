package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alesteb/alesteb-api/internal/catalog/products"
	"github.com/alesteb/alesteb-api/internal/platform/db"
)

// Repository defines sale persistence.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Sale, int, error)
	Get(ctx context.Context, id int64) (*Sale, error)
	Summary(ctx context.Context, from, to time.Time) ([]DailySummary, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional write operations.
type TxRepository interface {
	LockProducts(ctx context.Context, ids []int64, now time.Time) (map[int64]PricedProduct, error)
	DecrementStock(ctx context.Context, productID int64, qty int) (bool, error)
	IncrementStock(ctx context.Context, productID int64, qty int) error
	InsertSale(ctx context.Context, s Sale) (int64, error)
	InsertLine(ctx context.Context, l Line) error
	LockSale(ctx context.Context, id int64) (*Sale, error)
	MarkCancelled(ctx context.Context, id int64, at time.Time) error
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

const saleColumns = `id, customer_name, customer_email, payment_method, status, total, notes, created_by, created_at, cancelled_at`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.CustomerName, &s.CustomerEmail, &s.PaymentMethod, &s.Status, &s.Total,
		&s.Notes, &s.CreatedBy, &s.CreatedAt, &s.CancelledAt)
	return s, err
}

func saleWhere(filters ListFilters) (string, []any) {
	where := ` WHERE 1=1`
	var args []any
	if filters.From != nil {
		args = append(args, *filters.From)
		where += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if filters.To != nil {
		args = append(args, *filters.To)
		where += ` AND created_at < $` + strconv.Itoa(len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	return where, args
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Sale, int, error) {
	where, args := saleWhere(filters)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}
	query := `SELECT ` + saleColumns + ` FROM sales` + where + ` ORDER BY created_at DESC, id DESC`
	if filters.Limit > 0 {
		args = append(args, filters.Limit, max(filters.Page-1, 0)*filters.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	sales, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Sale, error) {
		return scanSale(row)
	})
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	return sales, total, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Sale, error) {
	return getSale(ctx, r.pool, id, false)
}

func getSale(ctx context.Context, q db.Querier, id int64, lock bool) (*Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	s, err := scanSale(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, db.Translate(err)
	}
	rows, err := q.Query(ctx, `
		SELECT id, sale_id, product_id, product_name, quantity, base_price, unit_price, subtotal
		FROM sale_lines WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, db.Translate(err)
	}
	s.Lines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Line, error) {
		var l Line
		err := row.Scan(&l.ID, &l.SaleID, &l.ProductID, &l.ProductName, &l.Quantity, &l.BasePrice, &l.UnitPrice, &l.Subtotal)
		return l, err
	})
	if err != nil {
		return nil, db.Translate(err)
	}
	return &s, nil
}

func (r *repository) Summary(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(date_trunc('day', s.created_at), 'YYYY-MM-DD') AS day,
		       COUNT(DISTINCT s.id),
		       COALESCE(SUM(l.quantity), 0),
		       COALESCE(SUM(l.subtotal), 0)
		FROM sales s
		LEFT JOIN sale_lines l ON l.sale_id = s.id
		WHERE s.status = $1 AND s.created_at >= $2 AND s.created_at < $3
		GROUP BY 1 ORDER BY 1`, StatusCompleted, from, to)
	if err != nil {
		return nil, db.Translate(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (DailySummary, error) {
		var d DailySummary
		err := row.Scan(&d.Day, &d.Count, &d.Units, &d.Revenue)
		return d, err
	})
	if err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

// LockProducts locks the product rows and resolves their effective price
// from the discounts active at now.
func (t *txRepository) LockProducts(ctx context.Context, ids []int64, now time.Time) (map[int64]PricedProduct, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT p.id, p.name, p.stock, p.price, COALESCE(d.items, '[]'::json)
		FROM products p
		LEFT JOIN LATERAL (
			SELECT json_agg(json_build_object(
				'id', dd.id, 'type', dd.type, 'value', dd.value,
				'starts_at', dd.starts_at, 'ends_at', dd.ends_at)) AS items
			FROM discounts dd
			WHERE dd.starts_at <= $2 AND dd.ends_at >= $2
			  AND EXISTS (
				SELECT 1 FROM discount_targets t
				WHERE t.discount_id = dd.id
				  AND (t.product_id = p.id OR (p.category_id IS NOT NULL AND t.category_id = p.category_id))
			  )
		) d ON TRUE
		WHERE p.id = ANY($1)
		ORDER BY p.id
		FOR UPDATE OF p`, ids, now)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	out := make(map[int64]PricedProduct, len(ids))
	for rows.Next() {
		var (
			p   PricedProduct
			raw []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Stock, &p.BasePrice, &raw); err != nil {
			return nil, db.Translate(err)
		}
		var active []products.ActiveDiscount
		if err := json.Unmarshal(raw, &active); err != nil {
			return nil, fmt.Errorf("decode discounts for product %d: %w", p.ID, err)
		}
		p.UnitPrice, _ = products.FinalPrice(p.BasePrice, active, now)
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

func (t *txRepository) DecrementStock(ctx context.Context, productID int64, qty int) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`, productID, qty)
	if err != nil {
		return false, db.Translate(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepository) IncrementStock(ctx context.Context, productID int64, qty int) error {
	_, err := t.tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, productID, qty)
	return db.Translate(err)
}

func (t *txRepository) InsertSale(ctx context.Context, s Sale) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO sales (customer_name, customer_email, payment_method, status, total, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		s.CustomerName, s.CustomerEmail, s.PaymentMethod, s.Status, s.Total, s.Notes, s.CreatedBy).Scan(&id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return id, nil
}

func (t *txRepository) InsertLine(ctx context.Context, l Line) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO sale_lines (sale_id, product_id, product_name, quantity, base_price, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.SaleID, l.ProductID, l.ProductName, l.Quantity, l.BasePrice, l.UnitPrice, l.Subtotal)
	return db.Translate(err)
}

func (t *txRepository) LockSale(ctx context.Context, id int64) (*Sale, error) {
	return getSale(ctx, t.tx, id, true)
}

func (t *txRepository) MarkCancelled(ctx context.Context, id int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE sales SET status = $2, cancelled_at = $3 WHERE id = $1`, id, StatusCancelled, at)
	return db.Translate(err)
}
