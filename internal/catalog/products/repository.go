package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alesteb/alesteb-api/internal/platform/db"
)

// Repository defines product persistence.
type Repository interface {
	List(ctx context.Context, filters ListFilters, now time.Time) ([]View, int, error)
	Get(ctx context.Context, id int64, now time.Time) (*View, error)
	// Images returns the product's images ordered by id, or ErrNotFound when
	// the product does not exist.
	Images(ctx context.Context, productID int64) ([]Image, error)

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional write operations.
type TxRepository interface {
	InsertProduct(ctx context.Context, p Product) (int64, error)
	LockProduct(ctx context.Context, id int64) error
	UpdateProduct(ctx context.Context, p Product) error
	Images(ctx context.Context, productID int64) ([]Image, error)
	InsertImage(ctx context.Context, img Image) (int64, error)
	DeleteImages(ctx context.Context, productID int64, ids []int64) ([]Image, error)
	RepairMainImage(ctx context.Context, productID int64) error
	DeleteProduct(ctx context.Context, id int64) (int64, []Image, error)
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

// WithTx runs fn inside a ReadCommitted transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const viewSelect = `
	SELECT p.id, p.name, p.price, p.stock, p.category_id, p.description, p.created_at, p.updated_at,
	       c.name, mi.url, COALESCE(d.items, '[]'::json)
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN LATERAL (
		SELECT i.url FROM product_images i
		WHERE i.product_id = p.id AND i.is_main
		ORDER BY i.id LIMIT 1
	) mi ON TRUE
	LEFT JOIN LATERAL (
		SELECT json_agg(json_build_object(
			'id', dd.id, 'type', dd.type, 'value', dd.value,
			'starts_at', dd.starts_at, 'ends_at', dd.ends_at)) AS items
		FROM discounts dd
		WHERE dd.starts_at <= $1 AND dd.ends_at >= $1
		  AND EXISTS (
			SELECT 1 FROM discount_targets t
			WHERE t.discount_id = dd.id
			  AND (t.product_id = p.id OR (p.category_id IS NOT NULL AND t.category_id = p.category_id))
		  )
	) d ON TRUE`

// listWhere builds the filter clause with placeholders numbered from first.
func listWhere(filters ListFilters, first int) (string, []any) {
	where := ` WHERE 1=1`
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return `$` + strconv.Itoa(first+len(args)-1)
	}
	if filters.CategoryID != nil {
		where += ` AND p.category_id = ` + next(*filters.CategoryID)
	}
	if filters.Search != "" {
		ph := next("%" + filters.Search + "%")
		where += ` AND (p.name ILIKE ` + ph + ` OR p.description ILIKE ` + ph + `)`
	}
	return where, args
}

func scanView(row pgx.Row, now time.Time) (View, error) {
	var (
		v         View
		discounts []byte
	)
	err := row.Scan(
		&v.ID, &v.Name, &v.Price, &v.Stock, &v.CategoryID, &v.Description, &v.CreatedAt, &v.UpdatedAt,
		&v.CategoryName, &v.MainImage, &discounts,
	)
	if err != nil {
		return View{}, err
	}
	var active []ActiveDiscount
	if err := json.Unmarshal(discounts, &active); err != nil {
		return View{}, fmt.Errorf("decode discounts for product %d: %w", v.ID, err)
	}
	v.FinalPrice, v.Discount = FinalPrice(v.Price, active, now)
	return v, nil
}

// List returns a page of products and the total match count.
func (r *repository) List(ctx context.Context, filters ListFilters, now time.Time) ([]View, int, error) {
	where, filterArgs := listWhere(filters, 1)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, filterArgs...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	where, filterArgs = listWhere(filters, 2)
	args := append([]any{now}, filterArgs...)
	query := viewSelect + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, filters.Limit, offset)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	views := []View{}
	for rows.Next() {
		v, err := scanView(rows, now)
		if err != nil {
			return nil, 0, db.Translate(err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Translate(err)
	}
	return views, total, nil
}

// Get returns one product with its images.
func (r *repository) Get(ctx context.Context, id int64, now time.Time) (*View, error) {
	v, err := scanView(r.pool.QueryRow(ctx, viewSelect+` WHERE p.id = $2`, now, id), now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, db.Translate(err)
	}
	images, err := listImages(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	v.Images = images
	return &v, nil
}

// Images implements Repository.
func (r *repository) Images(ctx context.Context, productID int64) ([]Image, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return nil, db.Translate(err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return listImages(ctx, r.pool, productID)
}

func listImages(ctx context.Context, q db.Querier, productID int64) ([]Image, error) {
	rows, err := q.Query(ctx, `
		SELECT id, product_id, url, storage_key, is_main, created_at
		FROM product_images WHERE product_id = $1 ORDER BY id`, productID)
	if err != nil {
		return nil, db.Translate(err)
	}
	images, err := pgx.CollectRows(rows, scanImage)
	if err != nil {
		return nil, db.Translate(err)
	}
	return images, nil
}

func scanImage(row pgx.CollectableRow) (Image, error) {
	var img Image
	err := row.Scan(&img.ID, &img.ProductID, &img.URL, &img.StorageKey, &img.IsMain, &img.CreatedAt)
	return img, err
}

func (t *txRepository) InsertProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO products (name, price, stock, category_id, description)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		p.Name, p.Price, p.Stock, p.CategoryID, p.Description).Scan(&id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return id, nil
}

func (t *txRepository) LockProduct(ctx context.Context, id int64) error {
	var locked int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return db.Translate(err)
	}
	return nil
}

func (t *txRepository) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE products
		SET name = $2, price = $3, stock = $4, category_id = $5, description = $6, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Price, p.Stock, p.CategoryID, p.Description)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) Images(ctx context.Context, productID int64) ([]Image, error) {
	return listImages(ctx, t.tx, productID)
}

func (t *txRepository) InsertImage(ctx context.Context, img Image) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO product_images (product_id, url, storage_key, is_main)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		img.ProductID, img.URL, img.StorageKey, img.IsMain).Scan(&id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return id, nil
}

func (t *txRepository) DeleteImages(ctx context.Context, productID int64, ids []int64) ([]Image, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := t.tx.Query(ctx, `
		DELETE FROM product_images WHERE product_id = $1 AND id = ANY($2)
		RETURNING id, product_id, url, storage_key, is_main, created_at`, productID, ids)
	if err != nil {
		return nil, db.Translate(err)
	}
	deleted, err := pgx.CollectRows(rows, scanImage)
	if err != nil {
		return nil, db.Translate(err)
	}
	return deleted, nil
}

// RepairMainImage clears every main flag of the product and sets it on the
// image with the lowest id.
func (t *txRepository) RepairMainImage(ctx context.Context, productID int64) error {
	if _, err := t.tx.Exec(ctx, `UPDATE product_images SET is_main = FALSE WHERE product_id = $1 AND is_main`, productID); err != nil {
		return db.Translate(err)
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE product_images SET is_main = TRUE
		WHERE id = (SELECT MIN(id) FROM product_images WHERE product_id = $1)`, productID)
	if err != nil {
		return db.Translate(err)
	}
	return nil
}

func (t *txRepository) DeleteProduct(ctx context.Context, id int64) (int64, []Image, error) {
	rows, err := t.tx.Query(ctx, `
		DELETE FROM product_images WHERE product_id = $1
		RETURNING id, product_id, url, storage_key, is_main, created_at`, id)
	if err != nil {
		return 0, nil, db.Translate(err)
	}
	images, err := pgx.CollectRows(rows, scanImage)
	if err != nil {
		return 0, nil, db.Translate(err)
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return 0, nil, db.Translate(err)
	}
	return tag.RowsAffected(), images, nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "name":
		return "p.name " + dir + ", p.id"
	case "price":
		return "p.price " + dir + ", p.id"
	case "stock":
		return "p.stock " + dir + ", p.id"
	case "created_at":
		return "p.created_at " + dir + ", p.id"
	default:
		return "p.id " + dir
	}
}
