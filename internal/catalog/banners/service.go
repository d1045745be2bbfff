package banners

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/alesteb/alesteb-api/internal/platform/storage"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// ErrNotFound is returned for unknown banner ids.
var ErrNotFound = fmt.Errorf("%w: banner not found", shared.ErrNotFound)

const imagePrefix = "banners"

// Service manages banners and their single stored image.
type Service struct {
	repo    Repository
	store   storage.Store
	cleanup storage.CleanupQueue
	logger  *slog.Logger
}

// NewService creates a Service.
func NewService(repo Repository, store storage.Store, cleanup storage.CleanupQueue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, store: store, cleanup: cleanup, logger: logger}
}

// List returns banners ordered by position.
func (s *Service) List(ctx context.Context, active *bool) ([]Banner, error) {
	out, err := s.repo.List(ctx, active)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Banner{}
	}
	return out, nil
}

// Get returns one banner.
func (s *Service) Get(ctx context.Context, id int64) (Banner, error) {
	return s.repo.Get(ctx, id)
}

// Create uploads the image, then inserts the row. The object is deleted if
// the insert fails.
func (s *Service) Create(ctx context.Context, f Fields, image *storage.Upload) (Banner, error) {
	if err := f.validate(); err != nil {
		return Banner{}, err
	}
	if image == nil {
		return Banner{}, fmt.Errorf("%w: image is required", shared.ErrValidation)
	}
	objs, err := storage.PutAll(ctx, s.store, s.cleanup, s.logger, imagePrefix, []storage.Upload{*image})
	if err != nil {
		return Banner{}, fmt.Errorf("upload banner: %w", err)
	}
	b := f.banner(0)
	b.ImageURL, b.StorageKey = objs[0].URL, objs[0].Key
	created, err := s.repo.Create(ctx, b)
	if err != nil {
		storage.Discard(ctx, s.store, s.cleanup, s.logger, storage.Keys(objs))
		return Banner{}, err
	}
	return created, nil
}

// Update writes the fields and, when image is set, swaps the stored image.
// The replaced object is deleted after the row is updated.
func (s *Service) Update(ctx context.Context, id int64, f Fields, image *storage.Upload) (Banner, error) {
	if err := f.validate(); err != nil {
		return Banner{}, err
	}
	b := f.banner(id)
	var objs []storage.Object
	if image != nil {
		var err error
		objs, err = storage.PutAll(ctx, s.store, s.cleanup, s.logger, imagePrefix, []storage.Upload{*image})
		if err != nil {
			return Banner{}, fmt.Errorf("upload banner: %w", err)
		}
		b.ImageURL, b.StorageKey = objs[0].URL, objs[0].Key
	}
	updated, previous, err := s.repo.Update(ctx, b)
	if err != nil {
		storage.Discard(ctx, s.store, s.cleanup, s.logger, storage.Keys(objs))
		return Banner{}, err
	}
	if previous != "" {
		storage.Discard(ctx, s.store, s.cleanup, s.logger, []string{previous})
	}
	return updated, nil
}

// Delete removes the row, then its stored image.
func (s *Service) Delete(ctx context.Context, id int64) error {
	b, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	storage.Discard(ctx, s.store, s.cleanup, s.logger, []string{b.StorageKey})
	return nil
}

func (f *Fields) validate() error {
	f.Title = strings.TrimSpace(f.Title)
	f.Subtitle = strings.TrimSpace(f.Subtitle)
	f.LinkURL = strings.TrimSpace(f.LinkURL)
	switch {
	case f.Title == "":
		return fmt.Errorf("%w: title is required", shared.ErrValidation)
	case len(f.Title) > 150:
		return fmt.Errorf("%w: title must be at most 150 characters", shared.ErrValidation)
	case f.Position < 0:
		return fmt.Errorf("%w: position must not be negative", shared.ErrValidation)
	}
	if f.LinkURL != "" {
		u, err := url.Parse(f.LinkURL)
		if err != nil || (u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https") || (u.Scheme == "" && !strings.HasPrefix(f.LinkURL, "/")) {
			return fmt.Errorf("%w: link_url must be an http(s) URL or a site path", shared.ErrValidation)
		}
	}
	return nil
}

func (f Fields) banner(id int64) Banner {
	return Banner{ID: id, Title: f.Title, Subtitle: f.Subtitle, LinkURL: f.LinkURL, Position: f.Position, Active: f.Active}
}
