package banners

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alesteb/alesteb-api/internal/platform/db"
)

// Repository defines banner persistence.
type Repository interface {
	List(ctx context.Context, active *bool) ([]Banner, error)
	Get(ctx context.Context, id int64) (Banner, error)
	Create(ctx context.Context, b Banner) (Banner, error)
	// Update writes b; an empty ImageURL keeps the current image. The
	// storage key that was replaced, if any, is returned.
	Update(ctx context.Context, b Banner) (Banner, string, error)
	Delete(ctx context.Context, id int64) (Banner, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, title, subtitle, link_url, image_url, storage_key, position, active, created_at, updated_at`

func scanBanner(row pgx.Row) (Banner, error) {
	var b Banner
	err := row.Scan(&b.ID, &b.Title, &b.Subtitle, &b.LinkURL, &b.ImageURL, &b.StorageKey, &b.Position, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return db.Translate(err)
}

func (r *repository) List(ctx context.Context, active *bool) ([]Banner, error) {
	query := `SELECT ` + columns + ` FROM banners`
	var args []any
	if active != nil {
		query += ` WHERE active = $1`
		args = append(args, *active)
	}
	query += ` ORDER BY position, id`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Translate(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Banner, error) {
		return scanBanner(row)
	})
	if err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Banner, error) {
	b, err := scanBanner(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM banners WHERE id = $1`, id))
	if err != nil {
		return Banner{}, notFound(err)
	}
	return b, nil
}

func (r *repository) Create(ctx context.Context, b Banner) (Banner, error) {
	created, err := scanBanner(r.pool.QueryRow(ctx, `
		INSERT INTO banners (title, subtitle, link_url, image_url, storage_key, position, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+columns,
		b.Title, b.Subtitle, b.LinkURL, b.ImageURL, b.StorageKey, b.Position, b.Active))
	if err != nil {
		return Banner{}, db.Translate(err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, b Banner) (Banner, string, error) {
	row := r.pool.QueryRow(ctx, `
		WITH old AS (SELECT id, storage_key FROM banners WHERE id = $1 FOR UPDATE)
		UPDATE banners AS b SET
			title = $2, subtitle = $3, link_url = $4, position = $5, active = $6,
			image_url = COALESCE(NULLIF($7, ''), b.image_url),
			storage_key = COALESCE(NULLIF($8, ''), b.storage_key),
			updated_at = NOW()
		FROM old WHERE b.id = old.id
		RETURNING old.storage_key, b.id, b.title, b.subtitle, b.link_url, b.image_url, b.storage_key,
		          b.position, b.active, b.created_at, b.updated_at`,
		b.ID, b.Title, b.Subtitle, b.LinkURL, b.Position, b.Active, b.ImageURL, b.StorageKey)
	var (
		previous string
		out      Banner
	)
	err := row.Scan(&previous, &out.ID, &out.Title, &out.Subtitle, &out.LinkURL, &out.ImageURL, &out.StorageKey,
		&out.Position, &out.Active, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return Banner{}, "", notFound(err)
	}
	if previous == out.StorageKey {
		previous = ""
	}
	return out, previous, nil
}

func (r *repository) Delete(ctx context.Context, id int64) (Banner, error) {
	b, err := scanBanner(r.pool.QueryRow(ctx, `DELETE FROM banners WHERE id = $1 RETURNING `+columns, id))
	if err != nil {
		return Banner{}, notFound(err)
	}
	return b, nil
}
