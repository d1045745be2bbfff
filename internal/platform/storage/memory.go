package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// Memory is an in-process Store used in test mode and local development.
type Memory struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte

	// FailPut, when set, is consulted before each Put; a true result makes
	// the call fail with ErrExternalService.
	FailPut func(up Upload) bool
	// FailDelete is the Delete counterpart of FailPut.
	FailDelete func(key string) bool
}

// NewMemory constructs an empty Memory store.
func NewMemory(baseURL string) *Memory {
	return &Memory{baseURL: baseURL, objects: make(map[string][]byte)}
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, prefix string, up Upload) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	m.mu.Lock()
	fail := m.FailPut
	m.mu.Unlock()
	if fail != nil && fail(up) {
		return Object{}, fmt.Errorf("%w: put %s", shared.ErrExternalService, up.Filename)
	}
	var data []byte
	if up.Body != nil {
		b, err := io.ReadAll(up.Body)
		if err != nil {
			return Object{}, fmt.Errorf("%w: read %s: %w", shared.ErrExternalService, up.Filename, err)
		}
		data = b
	}
	key := NewKey(prefix, up.Filename)
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return Object{Key: key, URL: m.baseURL + key}, nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete != nil && m.FailDelete(key) {
		return fmt.Errorf("%w: delete %s", shared.ErrExternalService, key)
	}
	delete(m.objects, key)
	return nil
}

// Keys lists stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is stored.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// ServeHTTP serves a stored object by key, the request path with any
// leading slash removed.
func (m *Memory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")
	m.mu.Lock()
	data, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, key, time.Time{}, bytes.NewReader(data))
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*S3Store)(nil)
)
