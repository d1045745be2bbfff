package storage

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// maxParallelUploads bounds concurrent Put calls for one request.
const maxParallelUploads = 4

// CleanupQueue defers deletion of stored objects to a background worker.
type CleanupQueue interface {
	EnqueueImageCleanup(ctx context.Context, keys []string) error
}

// PutAll stores every upload under prefix and returns the objects in input
// order. When any upload fails the objects already stored are discarded
// through Discard, so deletes that fail are logged and queued, and the
// first error is returned.
func PutAll(ctx context.Context, store Store, queue CleanupQueue, logger *slog.Logger, prefix string, uploads []Upload) ([]Object, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	objects := make([]Object, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for i, up := range uploads {
		g.Go(func() error {
			obj, err := store.Put(gctx, prefix, up)
			if err != nil {
				return err
			}
			objects[i] = obj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var stored []string
		for _, obj := range objects {
			if obj.Key != "" {
				stored = append(stored, obj.Key)
			}
		}
		if pending := Discard(ctx, store, queue, logger, stored); pending > 0 && logger != nil {
			logger.Warn("upload compensation deferred", slog.String("prefix", prefix), slog.Int("pending", pending))
		}
		return nil, err
	}
	return objects, nil
}

// Discard deletes keys from store. Keys that cannot be deleted are handed to
// queue; the number of keys still pending removal is returned.
func Discard(ctx context.Context, store Store, queue CleanupQueue, logger *slog.Logger, keys []string) int {
	ctx = context.WithoutCancel(ctx)
	var failed []string
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := store.Delete(ctx, key); err != nil {
			failed = append(failed, key)
			if logger != nil {
				logger.Warn("stored object delete failed", slog.String("key", key), slog.Any("error", err))
			}
		}
	}
	if len(failed) == 0 {
		return 0
	}
	if queue == nil {
		return len(failed)
	}
	if err := queue.EnqueueImageCleanup(ctx, failed); err != nil && logger != nil {
		logger.Error("enqueue image cleanup", slog.Int("keys", len(failed)), slog.Any("error", err))
	}
	return len(failed)
}

// Keys returns the storage keys of objects.
func Keys(objects []Object) []string {
	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}
	return keys
}
