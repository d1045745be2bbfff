package banners

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alesteb/alesteb-api/internal/platform/storage"
	"github.com/alesteb/alesteb-api/internal/shared"
)

type memoryRepo struct {
	rows       map[int64]Banner
	nextID     int64
	failCreate bool
}

func newMemoryRepo() *memoryRepo { return &memoryRepo{rows: map[int64]Banner{}} }

func (m *memoryRepo) List(_ context.Context, active *bool) ([]Banner, error) {
	var out []Banner
	for _, b := range m.rows {
		if active == nil || b.Active == *active {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Banner, error) {
	b, ok := m.rows[id]
	if !ok {
		return Banner{}, ErrNotFound
	}
	return b, nil
}

func (m *memoryRepo) Create(_ context.Context, b Banner) (Banner, error) {
	if m.failCreate {
		return Banner{}, errors.Join(shared.ErrDatabase, errors.New("insert"))
	}
	m.nextID++
	b.ID = m.nextID
	m.rows[b.ID] = b
	return b, nil
}

func (m *memoryRepo) Update(_ context.Context, b Banner) (Banner, string, error) {
	old, ok := m.rows[b.ID]
	if !ok {
		return Banner{}, "", ErrNotFound
	}
	previous := ""
	if b.ImageURL == "" {
		b.ImageURL, b.StorageKey = old.ImageURL, old.StorageKey
	} else {
		previous = old.StorageKey
	}
	m.rows[b.ID] = b
	return b, previous, nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) (Banner, error) {
	b, ok := m.rows[id]
	if !ok {
		return Banner{}, ErrNotFound
	}
	delete(m.rows, id)
	return b, nil
}

func image(name string) *storage.Upload {
	return &storage.Upload{Filename: name, ContentType: "image/png", Body: bytes.NewBufferString(name)}
}

func TestCreateRequiresImageAndTitle(t *testing.T) {
	svc := NewService(newMemoryRepo(), storage.NewMemory(""), nil, nil)
	_, err := svc.Create(context.Background(), Fields{Title: "Sale"}, nil)
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Create(context.Background(), Fields{}, image("a.png"))
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Create(context.Background(), Fields{Title: "Sale", LinkURL: "javascript:alert(1)"}, image("a.png"))
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateDiscardsUploadWhenInsertFails(t *testing.T) {
	repo := newMemoryRepo()
	repo.failCreate = true
	store := storage.NewMemory("")
	svc := NewService(repo, store, nil, nil)

	_, err := svc.Create(context.Background(), Fields{Title: "Sale"}, image("a.png"))
	require.ErrorIs(t, err, shared.ErrDatabase)
	assert.Empty(t, store.Keys())
}

func TestUpdateReplacesImage(t *testing.T) {
	store := storage.NewMemory("https://cdn.test/")
	svc := NewService(newMemoryRepo(), store, nil, nil)
	ctx := context.Background()
	b, err := svc.Create(ctx, Fields{Title: "Sale", LinkURL: "/ofertas", Active: true}, image("a.png"))
	require.NoError(t, err)

	kept, err := svc.Update(ctx, b.ID, Fields{Title: "Sale 2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, b.StorageKey, kept.StorageKey)
	assert.True(t, store.Has(b.StorageKey))

	swapped, err := svc.Update(ctx, b.ID, Fields{Title: "Sale 3"}, image("b.png"))
	require.NoError(t, err)
	assert.NotEqual(t, b.StorageKey, swapped.StorageKey)
	assert.False(t, store.Has(b.StorageKey))
	assert.True(t, store.Has(swapped.StorageKey))
}

func TestUpdateMissingBannerDiscardsUpload(t *testing.T) {
	store := storage.NewMemory("")
	svc := NewService(newMemoryRepo(), store, nil, nil)
	_, err := svc.Update(context.Background(), 5, Fields{Title: "x"}, image("a.png"))
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, store.Keys())
}

func TestDeleteRemovesObject(t *testing.T) {
	store := storage.NewMemory("")
	svc := NewService(newMemoryRepo(), store, nil, nil)
	b, err := svc.Create(context.Background(), Fields{Title: "Sale"}, image("a.png"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), b.ID))
	assert.Empty(t, store.Keys())
	assert.ErrorIs(t, svc.Delete(context.Background(), b.ID), shared.ErrNotFound)
}
