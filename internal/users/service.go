package users

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// Domain errors.
var (
	ErrNotFound   = fmt.Errorf("%w: user not found", shared.ErrNotFound)
	ErrSelfDelete = fmt.Errorf("%w: cannot delete your own account", shared.ErrConflict)
)

// Service handles user management.
type Service struct {
	repo       Repository
	audit      shared.AuditRecorder
	bcryptCost int
}

// NewService builds a Service. A zero cost selects bcrypt.DefaultCost.
func NewService(repo Repository, audit shared.AuditRecorder, bcryptCost int) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, audit: audit, bcryptCost: bcryptCost}
}

func (s *Service) List(ctx context.Context, f ListFilters) ([]User, int, error) {
	f.Search = strings.TrimSpace(f.Search)
	out, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	if out == nil {
		out = []User{}
	}
	return out, total, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Create stores the account and its roles in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	u := User{
		Email:    normalizeEmail(in.Email),
		Name:     strings.TrimSpace(in.Name),
		IsActive: in.IsActive == nil || *in.IsActive,
	}
	if u.Email == "" || u.Name == "" {
		return nil, fmt.Errorf("%w: email and name are required", shared.ErrValidation)
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if id, err = tx.Insert(ctx, u, hash); err != nil {
			return err
		}
		return tx.ReplaceRoles(ctx, id, uniqueIDs(in.RoleIDs))
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "user.create", id)
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*User, error) {
	u := User{
		ID:       id,
		Email:    normalizeEmail(in.Email),
		Name:     strings.TrimSpace(in.Name),
		IsActive: in.IsActive == nil || *in.IsActive,
	}
	if u.Email == "" || u.Name == "" {
		return nil, fmt.Errorf("%w: email and name are required", shared.ErrValidation)
	}
	if !u.IsActive && id == shared.ActorID(ctx) {
		return nil, fmt.Errorf("%w: cannot deactivate your own account", shared.ErrConflict)
	}
	var hash *string
	if in.Password != nil {
		h, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		hash = &h
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		n, err := tx.Update(ctx, u, hash)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "user.update", id)
	return s.repo.Get(ctx, id)
}

// SetRoles replaces every role assignment of the user.
func (s *Service) SetRoles(ctx context.Context, id int64, in RolesInput) (*User, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.ReplaceRoles(ctx, id, uniqueIDs(in.RoleIDs))
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "user.roles", id)
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id == shared.ActorID(ctx) {
		return ErrSelfDelete
	}
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.record(ctx, "user.delete", id)
	return nil
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("%w: password must be at least 8 characters", shared.ErrValidation)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("%w: %s", shared.ErrValidation, err.Error())
	}
	return string(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Service) record(ctx context.Context, action string, id int64) {
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: shared.ActorID(ctx), Action: action, Entity: "user", EntityID: fmt.Sprint(id)})
}
