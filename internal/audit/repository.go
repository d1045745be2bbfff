package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alesteb/alesteb-api/internal/platform/db"
)

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the audit repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineSelect = `
	SELECT a.id, a.occurred_at, a.actor_id, u.email, a.action, a.entity, a.entity_id, a.meta
	FROM audit_logs a
	LEFT JOIN users u ON u.id = a.actor_id
	WHERE ($1::timestamptz IS NULL OR a.occurred_at >= $1)
	  AND ($2::timestamptz IS NULL OR a.occurred_at < $2)
	  AND ($3::bigint IS NULL OR a.actor_id = $3)
	  AND ($4::text IS NULL OR a.entity = $4)
	  AND ($5::text IS NULL OR a.entity_id = $5)
	  AND ($6::text IS NULL OR a.action = $6)
	ORDER BY a.occurred_at DESC, a.id DESC`

// Window implements Repository.
func (r *PGRepository) Window(ctx context.Context, q Query, offset, limit int) ([]Entry, error) {
	return r.query(ctx, timelineSelect+` LIMIT $7 OFFSET $8`,
		q.FromAt, q.ToAt, q.ActorID, q.Entity, q.EntityID, q.Action, limit, offset)
}

// All implements Repository.
func (r *PGRepository) All(ctx context.Context, q Query, limit int) ([]Entry, error) {
	return r.query(ctx, timelineSelect+` LIMIT $7`,
		q.FromAt, q.ToAt, q.ActorID, q.Entity, q.EntityID, q.Action, limit)
}

func (r *PGRepository) query(ctx context.Context, sql string, args ...any) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.Translate(err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.ID, &e.At, &e.ActorID, &e.ActorEmail, &e.Action, &e.Entity, &e.EntityID, &e.Meta)
		return e, err
	})
	if err != nil {
		return nil, db.Translate(err)
	}
	return entries, nil
}

var _ Repository = (*PGRepository)(nil)
