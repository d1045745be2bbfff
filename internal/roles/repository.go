package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alesteb/alesteb-api/internal/platform/db"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// Repository provides role persistence.
type Repository interface {
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (*Role, error)
	Create(ctx context.Context, name, description string) (Role, error)
	Update(ctx context.Context, id int64, name, description string) (Role, error)
	Delete(ctx context.Context, id int64) (int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository holds transactional writes.
type TxRepository interface {
	LockRole(ctx context.Context, id int64) (Role, error)
	ReplacePermissions(ctx context.Context, roleID int64, slugs []string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
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

const roleColumns = `id, name, description, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	return role, db.Translate(err)
}

func (r *repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, db.Translate(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Role, error) { return scanRole(row) })
	if err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT p.slug FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1 ORDER BY p.slug`, id)
	if err != nil {
		return nil, db.Translate(err)
	}
	role.Permissions, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, db.Translate(err)
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	return &role, nil
}

func (r *repository) Create(ctx context.Context, name, description string) (Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING `+roleColumns, name, description))
}

func (r *repository) Update(ctx context.Context, id int64, name, description string) (Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1 RETURNING `+roleColumns, id, name, description))
}

func (r *repository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return tag.RowsAffected(), nil
}

func (t *txRepository) LockRole(ctx context.Context, id int64) (Role, error) {
	return scanRole(t.tx.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1 FOR UPDATE`, id))
}

// ReplacePermissions swaps the permission set. Every slug must exist.
func (t *txRepository) ReplacePermissions(ctx context.Context, roleID int64, slugs []string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return db.Translate(err)
	}
	if len(slugs) == 0 {
		return nil
	}
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT $1, id FROM permissions WHERE slug = ANY($2)`, roleID, slugs)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() != int64(len(slugs)) {
		return fmt.Errorf("%w: unknown permission in %v", shared.ErrValidation, slugs)
	}
	return nil
}
