package rbac

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alesteb/alesteb-api/internal/platform/db"
	"github.com/alesteb/alesteb-api/internal/shared"
)

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

// ErrBuiltinPermission rejects deleting a slug the API itself checks.
var ErrBuiltinPermission = fmt.Errorf("%w: permission is built in", shared.ErrConflict)

// Store is the persistence port for permissions.
type Store interface {
	PermissionsForRoles(ctx context.Context, roles []string) ([]string, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	GetPermission(ctx context.Context, id int64) (Permission, error)
	CreatePermission(ctx context.Context, slug, description string) (Permission, error)
	DeletePermission(ctx context.Context, id int64) (int64, error)
}

// Service orchestrates permission lookups and management.
type Service struct {
	store   Store
	builtin map[string]struct{}
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	builtin := make(map[string]struct{})
	for _, slug := range append(shared.CoreScopes(), shared.CommerceScopes()...) {
		builtin[slug] = struct{}{}
	}
	return &Service{store: store, builtin: builtin}
}

// PermissionsForRoles returns the deduplicated permission slugs granted to
// any of the roles.
func (s *Service) PermissionsForRoles(ctx context.Context, roles []string) ([]string, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	return s.store.PermissionsForRoles(ctx, roles)
}

// ListPermissions returns all permissions ordered by slug.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// CreatePermission inserts a permission after validating the slug format.
func (s *Service) CreatePermission(ctx context.Context, slug, description string) (Permission, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return Permission{}, fmt.Errorf("%w: slug must look like resource.action", shared.ErrValidation)
	}
	return s.store.CreatePermission(ctx, slug, strings.TrimSpace(description))
}

// DeletePermission removes a custom permission by ID.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	p, err := s.store.GetPermission(ctx, id)
	if err != nil {
		return err
	}
	if _, ok := s.builtin[p.Slug]; ok {
		return ErrBuiltinPermission
	}
	n, err := s.store.DeletePermission(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// PGStore implements Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// PermissionsForRoles implements Store.
func (s *PGStore) PermissionsForRoles(ctx context.Context, roles []string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT p.slug
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN roles r ON r.id = rp.role_id
		WHERE r.name = ANY($1)
		ORDER BY p.slug`, roles)
	if err != nil {
		return nil, db.Translate(err)
	}
	slugs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, db.Translate(err)
	}
	return slugs, nil
}

// ListPermissions implements Store.
func (s *PGStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, slug, description, created_at FROM permissions ORDER BY slug`)
	if err != nil {
		return nil, db.Translate(err)
	}
	perms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Permission, error) {
		var p Permission
		err := row.Scan(&p.ID, &p.Slug, &p.Description, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, db.Translate(err)
	}
	return perms, nil
}

// GetPermission implements Store.
func (s *PGStore) GetPermission(ctx context.Context, id int64) (Permission, error) {
	var p Permission
	err := s.pool.QueryRow(ctx, `SELECT id, slug, description, created_at FROM permissions WHERE id = $1`, id).
		Scan(&p.ID, &p.Slug, &p.Description, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Permission{}, shared.ErrNotFound
	}
	if err != nil {
		return Permission{}, db.Translate(err)
	}
	return p, nil
}

// CreatePermission implements Store.
func (s *PGStore) CreatePermission(ctx context.Context, slug, description string) (Permission, error) {
	var p Permission
	err := s.pool.QueryRow(ctx, `
		INSERT INTO permissions (slug, description) VALUES ($1, $2)
		RETURNING id, slug, description, created_at`, slug, description).
		Scan(&p.ID, &p.Slug, &p.Description, &p.CreatedAt)
	if err != nil {
		return Permission{}, db.Translate(err)
	}
	return p, nil
}

// DeletePermission implements Store.
func (s *PGStore) DeletePermission(ctx context.Context, id int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return tag.RowsAffected(), nil
}

var _ Store = (*PGStore)(nil)
