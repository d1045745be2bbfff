package users

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alesteb/alesteb-api/internal/platform/db"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// Repository provides user persistence.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]User, int, error)
	Get(ctx context.Context, id int64) (*User, error)
	Delete(ctx context.Context, id int64) (int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository holds writes that must commit together.
type TxRepository interface {
	Insert(ctx context.Context, u User, passwordHash string) (int64, error)
	Update(ctx context.Context, u User, passwordHash *string) (int64, error)
	ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
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

const userSelect = `
	SELECT u.id, u.email, u.name, u.is_active, u.created_at, u.updated_at,
	       COALESCE(ARRAY(
	           SELECT r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id
	           WHERE ur.user_id = u.id ORDER BY r.name), '{}')
	FROM users u`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.Roles)
	return u, err
}

func (r *repository) List(ctx context.Context, f ListFilters) ([]User, int, error) {
	where := ``
	var args []any
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = ` WHERE u.email ILIKE $1 OR u.name ILIKE $1`
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}
	query := userSelect + where + ` ORDER BY u.id`
	if f.Limit > 0 {
		args = append(args, f.Limit, shared.Offset(f.Page, f.Limit))
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) { return scanUser(row) })
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	return out, total, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, db.Translate(err)
	}
	return &u, nil
}

func (r *repository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return tag.RowsAffected(), nil
}

func (t *txRepository) Insert(ctx context.Context, u User, passwordHash string) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, is_active)
		VALUES ($1, $2, $3, $4) RETURNING id`, u.Email, u.Name, passwordHash, u.IsActive).Scan(&id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return id, nil
}

func (t *txRepository) Update(ctx context.Context, u User, passwordHash *string) (int64, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE users SET email = $2, name = $3, is_active = $4,
			password_hash = COALESCE($5, password_hash), updated_at = NOW()
		WHERE id = $1`, u.ID, u.Email, u.Name, u.IsActive, passwordHash)
	if err != nil {
		return 0, db.Translate(err)
	}
	return tag.RowsAffected(), nil
}

// ReplaceRoles swaps the role set; unknown role ids fail the foreign key.
func (t *txRepository) ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return db.Translate(err)
	}
	if len(roleIDs) == 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, role_id FROM unnest($2::bigint[]) AS role_id`, userID, roleIDs)
	return db.Translate(err)
}
