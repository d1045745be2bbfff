package discounts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alesteb/alesteb-api/internal/platform/db"
)

// Repository defines discount persistence.
type Repository interface {
	List(ctx context.Context, activeAt *time.Time) ([]Discount, error)
	Get(ctx context.Context, id int64) (Discount, error)
	Delete(ctx context.Context, id int64) (int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional write operations.
type TxRepository interface {
	Insert(ctx context.Context, d Discount) (int64, error)
	Update(ctx context.Context, d Discount) error
	ReplaceTargets(ctx context.Context, discountID int64, targets []TargetInput) error
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

const columns = `id, name, type, value, starts_at, ends_at, created_at`

func scanDiscount(row pgx.Row) (Discount, error) {
	var d Discount
	err := row.Scan(&d.ID, &d.Name, &d.Type, &d.Value, &d.StartsAt, &d.EndsAt, &d.CreatedAt)
	return d, err
}

func (r *repository) List(ctx context.Context, activeAt *time.Time) ([]Discount, error) {
	query := `SELECT ` + columns + ` FROM discounts`
	var args []any
	if activeAt != nil {
		query += ` WHERE starts_at <= $1 AND ends_at >= $1`
		args = append(args, *activeAt)
	}
	query += ` ORDER BY starts_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Translate(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Discount, error) {
		return scanDiscount(row)
	})
	if err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Discount, error) {
	d, err := scanDiscount(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM discounts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Discount{}, ErrNotFound
		}
		return Discount{}, db.Translate(err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, discount_id, product_id, category_id
		FROM discount_targets WHERE discount_id = $1 ORDER BY id`, id)
	if err != nil {
		return Discount{}, db.Translate(err)
	}
	d.Targets, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Target, error) {
		var t Target
		err := row.Scan(&t.ID, &t.DiscountID, &t.ProductID, &t.CategoryID)
		return t, err
	})
	if err != nil {
		return Discount{}, db.Translate(err)
	}
	return d, nil
}

func (r *repository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return tag.RowsAffected(), nil
}

func (t *txRepository) Insert(ctx context.Context, d Discount) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO discounts (name, type, value, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		d.Name, d.Type, d.Value, d.StartsAt, d.EndsAt).Scan(&id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return id, nil
}

func (t *txRepository) Update(ctx context.Context, d Discount) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE discounts SET name = $2, type = $3, value = $4, starts_at = $5, ends_at = $6
		WHERE id = $1`, d.ID, d.Name, d.Type, d.Value, d.StartsAt, d.EndsAt)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) ReplaceTargets(ctx context.Context, discountID int64, targets []TargetInput) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM discount_targets WHERE discount_id = $1`, discountID); err != nil {
		return db.Translate(err)
	}
	batch := &pgx.Batch{}
	for _, tg := range targets {
		batch.Queue(`INSERT INTO discount_targets (discount_id, product_id, category_id) VALUES ($1, $2, $3)`,
			discountID, tg.ProductID, tg.CategoryID)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return db.Translate(err)
	}
	return nil
}
