package contact

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alesteb/alesteb-api/internal/platform/db"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// Repository persists contact messages.
type Repository interface {
	Create(ctx context.Context, m Message) (Message, error)
	List(ctx context.Context, filters ListFilters) ([]Message, int, error)
	Get(ctx context.Context, id int64) (Message, error)
	MarkHandled(ctx context.Context, id, actorID int64, at time.Time) (Message, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, email, phone, subject, body, handled_at IS NOT NULL, handled_at, handled_by, created_at`

func scan(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Subject, &m.Body, &m.Handled, &m.HandledAt, &m.HandledBy, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	return m, db.Translate(err)
}

func (r *repository) Create(ctx context.Context, m Message) (Message, error) {
	return scan(r.pool.QueryRow(ctx, `
		INSERT INTO contact_messages (name, email, phone, subject, body)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+columns,
		m.Name, m.Email, m.Phone, m.Subject, m.Body))
}

func (r *repository) List(ctx context.Context, f ListFilters) ([]Message, int, error) {
	where := ``
	if f.Handled != nil {
		if *f.Handled {
			where = ` WHERE handled_at IS NOT NULL`
		} else {
			where = ` WHERE handled_at IS NULL`
		}
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contact_messages`+where).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}
	query := `SELECT ` + columns + ` FROM contact_messages` + where + ` ORDER BY created_at DESC, id DESC`
	var args []any
	if f.Limit > 0 {
		args = append(args, f.Limit, shared.Offset(f.Page, f.Limit))
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Message, error) { return scan(row) })
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	return out, total, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Message, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM contact_messages WHERE id = $1`, id))
}

// MarkHandled stamps the message once; repeated calls keep the first stamp.
func (r *repository) MarkHandled(ctx context.Context, id, actorID int64, at time.Time) (Message, error) {
	return scan(r.pool.QueryRow(ctx, `
		UPDATE contact_messages
		SET handled_at = COALESCE(handled_at, $2), handled_by = COALESCE(handled_by, NULLIF($3, 0))
		WHERE id = $1 RETURNING `+columns, id, at, actorID))
}
