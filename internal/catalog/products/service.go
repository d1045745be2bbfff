package products

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alesteb/alesteb-api/internal/platform/storage"
	"github.com/alesteb/alesteb-api/internal/shared"
)

const imagePrefix = "products"

// Options tunes the catalog service.
type Options struct {
	MaxImages int
}

// Service implements the product catalog read and write paths.
type Service struct {
	repo      Repository
	store     storage.Store
	cleanup   storage.CleanupQueue
	audit     shared.AuditRecorder
	logger    *slog.Logger
	maxImages int
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, store storage.Store, cleanup storage.CleanupQueue, audit shared.AuditRecorder, logger *slog.Logger, opts Options) *Service {
	if opts.MaxImages <= 0 {
		opts.MaxImages = 10
	}
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		store:     store,
		cleanup:   cleanup,
		audit:     audit,
		logger:    logger,
		maxImages: opts.MaxImages,
		now:       time.Now,
	}
}

// GetAll lists products with category name, main image and final price.
func (s *Service) GetAll(ctx context.Context, filters ListFilters) ([]View, int, error) {
	return s.repo.List(ctx, filters, s.now())
}

// GetByID returns one product with its full image list.
func (s *Service) GetByID(ctx context.Context, id int64) (*View, error) {
	return s.repo.Get(ctx, id, s.now())
}

// Create stores the images, then inserts the product and its image rows in
// one transaction. The first image is the main one.
func (s *Service) Create(ctx context.Context, in CreateInput) (int64, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return 0, err
	}
	if len(in.Images) == 0 {
		return 0, ErrImageRequired
	}
	if len(in.Images) > s.maxImages {
		return 0, fmt.Errorf("%w: at most %d allowed", ErrTooManyImages, s.maxImages)
	}

	objects, err := storage.PutAll(ctx, s.store, s.cleanup, s.logger, imagePrefix, in.Images)
	if err != nil {
		return 0, fmt.Errorf("upload images: %w", err)
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		productID, err := tx.InsertProduct(ctx, in.product(0))
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		for i, obj := range objects {
			img := Image{ProductID: productID, URL: obj.URL, StorageKey: obj.Key, IsMain: i == 0}
			if _, err := tx.InsertImage(ctx, img); err != nil {
				return fmt.Errorf("insert image: %w", err)
			}
		}
		id = productID
		return nil
	})
	if err != nil {
		s.discard(ctx, storage.Keys(objects))
		return 0, err
	}

	s.record(ctx, "product.create", id, map[string]any{"name": in.Name, "images": len(objects)})
	return id, nil
}

// Update applies field changes, removes the listed images owned by the
// product and appends new ones. The product must keep at least one image;
// the check runs before any upload or write and again under the row lock.
// Stored objects of removed images are deleted after commit, so the worst
// case is an orphaned object, never a row pointing at a missing object.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*View, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	current, err := s.repo.Images(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkImageCount(current, in.DeletedImageIDs, len(in.NewImages)); err != nil {
		return nil, err
	}

	uploaded, err := storage.PutAll(ctx, s.store, s.cleanup, s.logger, imagePrefix, in.NewImages)
	if err != nil {
		return nil, fmt.Errorf("upload images: %w", err)
	}

	var removed []Image
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockProduct(ctx, id); err != nil {
			return err
		}
		locked, err := tx.Images(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkImageCount(locked, in.DeletedImageIDs, len(uploaded)); err != nil {
			return err
		}
		if err := tx.UpdateProduct(ctx, in.product(id)); err != nil {
			return fmt.Errorf("update product: %w", err)
		}

		removed, err = tx.DeleteImages(ctx, id, ownedIDs(locked, in.DeletedImageIDs))
		if err != nil {
			return fmt.Errorf("delete images: %w", err)
		}
		hasMain := hasMainAfter(locked, removed)
		for i, obj := range uploaded {
			img := Image{ProductID: id, URL: obj.URL, StorageKey: obj.Key, IsMain: !hasMain && i == 0}
			if _, err := tx.InsertImage(ctx, img); err != nil {
				return fmt.Errorf("insert image: %w", err)
			}
		}
		return tx.RepairMainImage(ctx, id)
	})
	if err != nil {
		s.discard(ctx, storage.Keys(uploaded))
		return nil, err
	}

	keys := make([]string, 0, len(removed))
	for _, img := range removed {
		keys = append(keys, img.StorageKey)
	}
	if pending := s.discard(ctx, keys); pending > 0 {
		s.logger.Warn("product image cleanup deferred", slog.Int64("product_id", id), slog.Int("pending", pending))
	}

	s.record(ctx, "product.update", id, map[string]any{"removed": len(removed), "added": len(uploaded)})
	return s.repo.Get(ctx, id, s.now())
}

// Remove deletes the product with its image rows, then its stored objects.
// Object deletion failures do not undo the removal; they are counted in
// CleanupPending and handed to the cleanup queue.
func (s *Service) Remove(ctx context.Context, id int64) (DeleteResponse, error) {
	var (
		deleted int64
		images  []Image
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		n, imgs, err := tx.DeleteProduct(ctx, id)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		deleted, images = n, imgs
		return nil
	})
	if err != nil {
		return DeleteResponse{}, err
	}

	keys := make([]string, 0, len(images))
	for _, img := range images {
		keys = append(keys, img.StorageKey)
	}
	pending := s.discard(ctx, keys)
	if pending > 0 {
		s.logger.Warn("product image cleanup deferred", slog.Int64("product_id", id), slog.Int("pending", pending))
	}
	if deleted > 0 {
		s.record(ctx, "product.delete", id, map[string]any{"images": len(images)})
	}
	return DeleteResponse{Deleted: deleted, CleanupPending: pending}, nil
}

func (s *Service) checkImageCount(current []Image, deletedIDs []int64, added int) error {
	remaining := len(current) - len(ownedIDs(current, deletedIDs))
	if remaining+added < 1 {
		return ErrImageRequired
	}
	if remaining+added > s.maxImages {
		return fmt.Errorf("%w: at most %d allowed", ErrTooManyImages, s.maxImages)
	}
	return nil
}

func (s *Service) discard(ctx context.Context, keys []string) int {
	return storage.Discard(ctx, s.store, s.cleanup, s.logger, keys)
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "product",
		EntityID: fmt.Sprint(id),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

// ownedIDs returns the distinct ids in requested that belong to current.
func ownedIDs(current []Image, requested []int64) []int64 {
	owned := make(map[int64]struct{}, len(current))
	for _, img := range current {
		owned[img.ID] = struct{}{}
	}
	out := make([]int64, 0, len(requested))
	for _, id := range requested {
		if _, ok := owned[id]; ok {
			out = append(out, id)
			delete(owned, id)
		}
	}
	return out
}

func hasMainAfter(current, removed []Image) bool {
	gone := make(map[int64]struct{}, len(removed))
	for _, img := range removed {
		gone[img.ID] = struct{}{}
	}
	for _, img := range current {
		if _, ok := gone[img.ID]; !ok && img.IsMain {
			return true
		}
	}
	return false
}
