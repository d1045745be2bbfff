package discounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// ErrNotFound is returned for unknown discount ids.
var ErrNotFound = fmt.Errorf("%w: discount not found", shared.ErrNotFound)

var hundred = decimal.NewFromInt(100)

// Service provides discount business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns discounts; with onlyActive only those valid right now.
func (s *Service) List(ctx context.Context, onlyActive bool) ([]Discount, error) {
	var at *time.Time
	if onlyActive {
		now := s.now()
		at = &now
	}
	out, err := s.repo.List(ctx, at)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Discount{}
	}
	return out, nil
}

// Get returns a discount with its targets.
func (s *Service) Get(ctx context.Context, id int64) (Discount, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts the discount and its targets in one transaction.
func (s *Service) Create(ctx context.Context, in Input) (Discount, error) {
	d, err := build(0, in)
	if err != nil {
		return Discount{}, err
	}
	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		newID, err := tx.Insert(ctx, d)
		if err != nil {
			return err
		}
		id = newID
		return tx.ReplaceTargets(ctx, id, in.Targets)
	})
	if err != nil {
		return Discount{}, err
	}
	return s.repo.Get(ctx, id)
}

// Update replaces the discount row and its targets in one transaction.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Discount, error) {
	d, err := build(id, in)
	if err != nil {
		return Discount{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Update(ctx, d); err != nil {
			return err
		}
		return tx.ReplaceTargets(ctx, id, in.Targets)
	})
	if err != nil {
		return Discount{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a discount; its targets cascade.
func (s *Service) Delete(ctx context.Context, id int64) error {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func build(id int64, in Input) (Discount, error) {
	d := Discount{
		ID:       id,
		Name:     strings.TrimSpace(in.Name),
		Type:     strings.ToLower(strings.TrimSpace(in.Type)),
		Value:    in.Value,
		StartsAt: in.StartsAt,
		EndsAt:   in.EndsAt,
	}
	switch {
	case d.Name == "":
		return Discount{}, fmt.Errorf("%w: name is required", shared.ErrValidation)
	case d.Type != TypePercentage && d.Type != TypeFixed:
		return Discount{}, fmt.Errorf("%w: type must be percentage or fixed", shared.ErrValidation)
	case !d.Value.IsPositive():
		return Discount{}, fmt.Errorf("%w: value must be greater than zero", shared.ErrValidation)
	case d.Type == TypePercentage && d.Value.GreaterThan(hundred):
		return Discount{}, fmt.Errorf("%w: percentage cannot exceed 100", shared.ErrValidation)
	case !d.EndsAt.After(d.StartsAt):
		return Discount{}, fmt.Errorf("%w: ends_at must be after starts_at", shared.ErrValidation)
	case len(in.Targets) == 0:
		return Discount{}, fmt.Errorf("%w: at least one target is required", shared.ErrValidation)
	}
	seen := make(map[string]struct{}, len(in.Targets))
	for i, t := range in.Targets {
		if (t.ProductID == nil) == (t.CategoryID == nil) {
			return Discount{}, fmt.Errorf("%w: target %d must name exactly one of product_id or category_id", shared.ErrValidation, i)
		}
		key := targetKey(t)
		if _, dup := seen[key]; dup {
			return Discount{}, fmt.Errorf("%w: duplicate target %s", shared.ErrValidation, key)
		}
		seen[key] = struct{}{}
	}
	return d, nil
}

func targetKey(t TargetInput) string {
	if t.ProductID != nil {
		return fmt.Sprintf("product:%d", *t.ProductID)
	}
	return fmt.Sprintf("category:%d", *t.CategoryID)
}
