package roles

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// Domain errors.
var (
	ErrNotFound      = fmt.Errorf("%w: role not found", shared.ErrNotFound)
	ErrProtectedRole = fmt.Errorf("%w: the %s role cannot be renamed or deleted", shared.ErrConflict, shared.RoleAdmin)
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Service handles role business logic.
type Service struct {
	repo  Repository
	audit shared.AuditRecorder
}

// NewService builds Service instance.
func NewService(repo Repository, audit shared.AuditRecorder) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit}
}

func (s *Service) List(ctx context.Context) ([]Role, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Role{}
	}
	return out, nil
}

// Get returns the role with its permission slugs.
func (s *Service) Get(ctx context.Context, id int64) (*Role, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (Role, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return Role{}, err
	}
	role, err := s.repo.Create(ctx, name, strings.TrimSpace(in.Description))
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, "role.create", role.ID)
	return role, nil
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (Role, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return Role{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if current.Name == shared.RoleAdmin && name != shared.RoleAdmin {
		return Role{}, ErrProtectedRole
	}
	role, err := s.repo.Update(ctx, id, name, strings.TrimSpace(in.Description))
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, "role.update", id)
	return role, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Name == shared.RoleAdmin {
		return ErrProtectedRole
	}
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.record(ctx, "role.delete", id)
	return nil
}

// SetPermissions replaces the role's permissions in one transaction.
func (s *Service) SetPermissions(ctx context.Context, id int64, in PermissionsInput) (*Role, error) {
	slugs := normalizeSlugs(in.Permissions)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockRole(ctx, id); err != nil {
			return err
		}
		return tx.ReplacePermissions(ctx, id, slugs)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "role.permissions", id)
	return s.repo.Get(ctx, id)
}

func normalizeName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !namePattern.MatchString(name) {
		return "", fmt.Errorf("%w: name must start with a letter and contain only a-z, 0-9, _ or -", shared.ErrValidation)
	}
	return name, nil
}

func normalizeSlugs(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, slug := range in {
		slug = strings.ToLower(strings.TrimSpace(slug))
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

func (s *Service) record(ctx context.Context, action string, id int64) {
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: shared.ActorID(ctx), Action: action, Entity: "role", EntityID: fmt.Sprint(id)})
}
