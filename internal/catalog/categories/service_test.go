package categories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alesteb/alesteb-api/internal/shared"
)

type memoryRepo struct {
	rows   map[int64]Category
	nextID int64
}

func newMemoryRepo() *memoryRepo { return &memoryRepo{rows: map[int64]Category{}} }

func (m *memoryRepo) List(_ context.Context, parentID *int64) ([]Category, error) {
	var out []Category
	for _, c := range m.rows {
		if parentID == nil || (c.ParentID != nil && *c.ParentID == *parentID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Category, error) {
	c, ok := m.rows[id]
	if !ok {
		return Category{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) Create(_ context.Context, c Category) (Category, error) {
	for _, existing := range m.rows {
		if existing.Slug == c.Slug {
			return Category{}, shared.ErrConflict
		}
	}
	m.nextID++
	c.ID = m.nextID
	m.rows[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Update(_ context.Context, c Category) (Category, error) {
	if _, ok := m.rows[c.ID]; !ok {
		return Category{}, ErrNotFound
	}
	m.rows[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) (int64, error) {
	if _, ok := m.rows[id]; !ok {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

func (m *memoryRepo) IsDescendant(_ context.Context, id, candidate int64) (bool, error) {
	for cur, ok := m.rows[candidate]; ok && cur.ParentID != nil; cur, ok = m.rows[*cur.ParentID] {
		if *cur.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func ptr(v int64) *int64 { return &v }

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Zapatos de Mujer":   "zapatos-de-mujer",
		"  Camisetas  & Co ": "camisetas-co",
		"Niños/Niñas":        "ninos-ninas",
		"Ação Café":          "acao-cafe",
		"!!!":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestCreateDerivesSlug(t *testing.T) {
	svc := NewService(newMemoryRepo())
	c, err := svc.Create(context.Background(), Input{Name: "Calzado Deportivo"})
	require.NoError(t, err)
	assert.Equal(t, "calzado-deportivo", c.Slug)

	_, err = svc.Create(context.Background(), Input{Name: "Calzado  deportivo"})
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreateRequiresExistingParent(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Create(context.Background(), Input{Name: "Botas", ParentID: ptr(42)})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateRejectsCycles(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo())
	root, err := svc.Create(ctx, Input{Name: "Ropa"})
	require.NoError(t, err)
	child, err := svc.Create(ctx, Input{Name: "Camisas", ParentID: &root.ID})
	require.NoError(t, err)

	_, err = svc.Update(ctx, root.ID, Input{Name: "Ropa", ParentID: &root.ID})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Update(ctx, root.ID, Input{Name: "Ropa", ParentID: &child.ID})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteMissing(t *testing.T) {
	svc := NewService(newMemoryRepo())
	assert.ErrorIs(t, svc.Delete(context.Background(), 9), shared.ErrNotFound)
}

func TestListNeverNil(t *testing.T) {
	svc := NewService(newMemoryRepo())
	items, err := svc.List(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, items)
}
