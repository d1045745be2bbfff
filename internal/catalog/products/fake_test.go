package products

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/alesteb/alesteb-api/internal/shared"
)

type catalogState struct {
	products map[int64]Product
	images   map[int64]Image
	nextID   int64
}

func (s catalogState) clone() catalogState {
	c := catalogState{products: make(map[int64]Product), images: make(map[int64]Image), nextID: s.nextID}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.images {
		c.images[k] = v
	}
	return c
}

func (s *catalogState) id() int64 {
	s.nextID++
	return s.nextID
}

func (s catalogState) imagesOf(productID int64) []Image {
	var out []Image
	for _, img := range s.images {
		if img.ProductID == productID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// memoryRepo is a transactional in-memory Repository. A failed WithTx
// leaves the committed state untouched.
type memoryRepo struct {
	mu        sync.Mutex
	state     catalogState
	discounts map[int64][]ActiveDiscount

	failInsertImageAfter int
	txCount              int
	// beforeTx runs against the committed state as a transaction opens,
	// standing in for a concurrent writer.
	beforeTx func(*catalogState)
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		state:                catalogState{products: map[int64]Product{}, images: map[int64]Image{}},
		discounts:            map[int64][]ActiveDiscount{},
		failInsertImageAfter: -1,
	}
}

func (m *memoryRepo) view(p Product, now time.Time) View {
	v := View{Product: p}
	for _, img := range m.state.imagesOf(p.ID) {
		if img.IsMain {
			url := img.URL
			v.MainImage = &url
			break
		}
	}
	v.FinalPrice, v.Discount = FinalPrice(p.Price, m.discounts[p.ID], now)
	return v
}

func (m *memoryRepo) List(_ context.Context, filters ListFilters, now time.Time) ([]View, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	views := []View{}
	for _, p := range m.state.products {
		if filters.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filters.CategoryID) {
			continue
		}
		views = append(views, m.view(p, now))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, len(views), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64, now time.Time) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	v := m.view(p, now)
	v.Images = m.state.imagesOf(id)
	return &v, nil
}

func (m *memoryRepo) Images(_ context.Context, productID int64) ([]Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.products[productID]; !ok {
		return nil, ErrNotFound
	}
	return m.state.imagesOf(productID), nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	if m.beforeTx != nil {
		m.beforeTx(&m.state)
	}
	work := m.state.clone()
	m.txCount++
	m.mu.Unlock()

	tx := &memoryTx{state: &work, failInsertImageAfter: m.failInsertImageAfter}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = work
	m.mu.Unlock()
	return nil
}

type memoryTx struct {
	state                *catalogState
	failInsertImageAfter int
	inserted             int
}

func (t *memoryTx) InsertProduct(_ context.Context, p Product) (int64, error) {
	p.ID = t.state.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	t.state.products[p.ID] = p
	return p.ID, nil
}

func (t *memoryTx) LockProduct(_ context.Context, id int64) error {
	if _, ok := t.state.products[id]; !ok {
		return ErrNotFound
	}
	return nil
}

func (t *memoryTx) UpdateProduct(_ context.Context, p Product) error {
	old, ok := t.state.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = time.Now()
	t.state.products[p.ID] = p
	return nil
}

func (t *memoryTx) Images(_ context.Context, productID int64) ([]Image, error) {
	return t.state.imagesOf(productID), nil
}

func (t *memoryTx) InsertImage(_ context.Context, img Image) (int64, error) {
	if t.failInsertImageAfter >= 0 && t.inserted >= t.failInsertImageAfter {
		return 0, errors.Join(shared.ErrDatabase, errors.New("insert failed"))
	}
	t.inserted++
	img.ID = t.state.id()
	img.CreatedAt = time.Now()
	t.state.images[img.ID] = img
	return img.ID, nil
}

func (t *memoryTx) DeleteImages(_ context.Context, productID int64, ids []int64) ([]Image, error) {
	var out []Image
	for _, id := range ids {
		img, ok := t.state.images[id]
		if !ok || img.ProductID != productID {
			continue
		}
		delete(t.state.images, id)
		out = append(out, img)
	}
	return out, nil
}

func (t *memoryTx) RepairMainImage(_ context.Context, productID int64) error {
	imgs := t.state.imagesOf(productID)
	for i, img := range imgs {
		img.IsMain = i == 0
		t.state.images[img.ID] = img
	}
	return nil
}

func (t *memoryTx) DeleteProduct(_ context.Context, id int64) (int64, []Image, error) {
	imgs := t.state.imagesOf(id)
	for _, img := range imgs {
		delete(t.state.images, img.ID)
	}
	if _, ok := t.state.products[id]; !ok {
		return 0, imgs, nil
	}
	delete(t.state.products, id)
	return 1, imgs, nil
}

type recordingQueue struct {
	mu   sync.Mutex
	keys []string
}

func (q *recordingQueue) EnqueueImageCleanup(_ context.Context, keys []string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.keys = append(q.keys, keys...)
	return nil
}

var _ Repository = (*memoryRepo)(nil)
