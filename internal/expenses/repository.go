package expenses

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alesteb/alesteb-api/internal/platform/db"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// Repository persists expenses.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Expense, int, error)
	Totals(ctx context.Context, filters ListFilters) ([]CategoryTotal, error)
	Get(ctx context.Context, id int64) (Expense, error)
	Create(ctx context.Context, e Expense) (Expense, error)
	Update(ctx context.Context, e Expense) (Expense, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, description, category, amount, spent_on, notes, created_by, created_at, updated_at`

func scan(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Description, &e.Category, &e.Amount, &e.SpentOn, &e.Notes, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func where(f ListFilters) (string, []any) {
	clause := ` WHERE 1=1`
	var args []any
	if f.From != nil {
		args = append(args, *f.From)
		clause += ` AND spent_on >= $` + strconv.Itoa(len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		clause += ` AND spent_on < $` + strconv.Itoa(len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		clause += ` AND lower(category) = lower($` + strconv.Itoa(len(args)) + `)`
	}
	return clause, args
}

func (r *repository) List(ctx context.Context, f ListFilters) ([]Expense, int, error) {
	clause, args := where(f)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM expenses`+clause, args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}
	query := `SELECT ` + columns + ` FROM expenses` + clause + ` ORDER BY spent_on DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit, shared.Offset(f.Page, f.Limit))
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Expense, error) { return scan(row) })
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	return out, total, nil
}

func (r *repository) Totals(ctx context.Context, f ListFilters) ([]CategoryTotal, error) {
	clause, args := where(f)
	rows, err := r.pool.Query(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(amount), 0)
		FROM expenses`+clause+`
		GROUP BY category ORDER BY category`, args...)
	if err != nil {
		return nil, db.Translate(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (CategoryTotal, error) {
		var t CategoryTotal
		err := row.Scan(&t.Category, &t.Count, &t.Total)
		return t, err
	})
	if err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Expense, error) {
	e, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM expenses WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrNotFound
	}
	return e, db.Translate(err)
}

func (r *repository) Create(ctx context.Context, e Expense) (Expense, error) {
	created, err := scan(r.pool.QueryRow(ctx, `
		INSERT INTO expenses (description, category, amount, spent_on, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+columns,
		e.Description, e.Category, e.Amount, e.SpentOn, e.Notes, e.CreatedBy))
	return created, db.Translate(err)
}

func (r *repository) Update(ctx context.Context, e Expense) (Expense, error) {
	updated, err := scan(r.pool.QueryRow(ctx, `
		UPDATE expenses SET description = $2, category = $3, amount = $4, spent_on = $5, notes = $6,
			updated_at = NOW()
		WHERE id = $1 RETURNING `+columns,
		e.ID, e.Description, e.Category, e.Amount, e.SpentOn, e.Notes))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrNotFound
	}
	return updated, db.Translate(err)
}

func (r *repository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return tag.RowsAffected(), nil
}
