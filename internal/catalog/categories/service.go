package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// ErrNotFound is returned for unknown category ids.
var ErrNotFound = fmt.Errorf("%w: category not found", shared.ErrNotFound)

// Service provides category business logic.
type Service struct {
	repo Repository
}

// NewService creates a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns categories, optionally only the children of parentID.
func (s *Service) List(ctx context.Context, parentID *int64) ([]Category, error) {
	out, err := s.repo.List(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Category{}
	}
	return out, nil
}

// Get returns one category.
func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a category, deriving the slug from the name when absent.
func (s *Service) Create(ctx context.Context, in Input) (Category, error) {
	c, err := s.build(0, in)
	if err != nil {
		return Category{}, err
	}
	if c.ParentID != nil {
		if _, err := s.repo.Get(ctx, *c.ParentID); err != nil {
			return Category{}, parentError(err)
		}
	}
	return s.repo.Create(ctx, c)
}

// Update replaces a category. A category cannot become its own ancestor.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Category, error) {
	c, err := s.build(id, in)
	if err != nil {
		return Category{}, err
	}
	if c.ParentID != nil {
		if *c.ParentID == id {
			return Category{}, fmt.Errorf("%w: category cannot be its own parent", shared.ErrValidation)
		}
		if _, err := s.repo.Get(ctx, *c.ParentID); err != nil {
			return Category{}, parentError(err)
		}
		below, err := s.repo.IsDescendant(ctx, id, *c.ParentID)
		if err != nil {
			return Category{}, err
		}
		if below {
			return Category{}, fmt.Errorf("%w: parent cannot be a descendant", shared.ErrValidation)
		}
	}
	return s.repo.Update(ctx, c)
}

// Delete removes a category.
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

func (s *Service) build(id int64, in Input) (Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Category{}, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return Category{}, fmt.Errorf("%w: slug cannot be derived from name", shared.ErrValidation)
	}
	return Category{ID: id, Name: name, Slug: slug, ParentID: in.ParentID}, nil
}

func parentError(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: parent category does not exist", shared.ErrValidation)
	}
	return err
}
