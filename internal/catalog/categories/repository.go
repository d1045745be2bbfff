package categories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alesteb/alesteb-api/internal/platform/db"
)

// Repository defines category persistence.
type Repository interface {
	List(ctx context.Context, parentID *int64) ([]Category, error)
	Get(ctx context.Context, id int64) (Category, error)
	Create(ctx context.Context, c Category) (Category, error)
	Update(ctx context.Context, c Category) (Category, error)
	Delete(ctx context.Context, id int64) (int64, error)
	// IsDescendant reports whether candidate sits below id in the tree.
	IsDescendant(ctx context.Context, id, candidate int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, slug, parent_id, created_at, updated_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) List(ctx context.Context, parentID *int64) ([]Category, error) {
	query := `SELECT ` + columns + ` FROM categories`
	var args []any
	if parentID != nil {
		query += ` WHERE parent_id = $1`
		args = append(args, *parentID)
	}
	query += ` ORDER BY name, id`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Translate(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Category, error) {
		return scanCategory(row)
	})
	if err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, db.Translate(err)
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, c Category) (Category, error) {
	created, err := scanCategory(r.pool.QueryRow(ctx, `
		INSERT INTO categories (name, slug, parent_id) VALUES ($1, $2, $3)
		RETURNING `+columns, c.Name, c.Slug, c.ParentID))
	if err != nil {
		return Category{}, db.Translate(err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, c Category) (Category, error) {
	updated, err := scanCategory(r.pool.QueryRow(ctx, `
		UPDATE categories SET name = $2, slug = $3, parent_id = $4, updated_at = NOW()
		WHERE id = $1 RETURNING `+columns, c.ID, c.Name, c.Slug, c.ParentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, db.Translate(err)
	}
	return updated, nil
}

func (r *repository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) IsDescendant(ctx context.Context, id, candidate int64) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx, `
		WITH RECURSIVE tree AS (
			SELECT id FROM categories WHERE parent_id = $1
			UNION
			SELECT c.id FROM categories c JOIN tree t ON c.parent_id = t.id
		)
		SELECT EXISTS(SELECT 1 FROM tree WHERE id = $2)`, id, candidate).Scan(&found)
	if err != nil {
		return false, db.Translate(err)
	}
	return found, nil
}
