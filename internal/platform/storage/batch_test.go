package storage

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	keys []string
}

func (q *recordingQueue) EnqueueImageCleanup(_ context.Context, keys []string) error {
	q.keys = append(q.keys, keys...)
	return nil
}

func uploads(names ...string) []Upload {
	out := make([]Upload, 0, len(names))
	for _, n := range names {
		out = append(out, Upload{Filename: n, Body: bytes.NewBufferString(n)})
	}
	return out
}

func TestPutAllKeepsInputOrder(t *testing.T) {
	mem := NewMemory("https://cdn.test/")
	objs, err := PutAll(context.Background(), mem, nil, nil, "products", uploads("a.jpg", "b.png", "c.webp"))
	require.NoError(t, err)
	require.Len(t, objs, 3)
	assert.Contains(t, objs[0].Key, ".jpg")
	assert.Contains(t, objs[1].Key, ".png")
	assert.Contains(t, objs[2].Key, ".webp")
	assert.Len(t, mem.Keys(), 3)
}

func TestPutAllRemovesStoredObjectsOnFailure(t *testing.T) {
	mem := NewMemory("")
	mem.FailPut = func(up Upload) bool { return up.Filename == "bad.jpg" }

	_, err := PutAll(context.Background(), mem, nil, nil, "products", uploads("a.jpg", "bad.jpg", "c.jpg"))
	require.Error(t, err)
	assert.Empty(t, mem.Keys())
}

func TestPutAllQueuesCompensationDeletesThatFail(t *testing.T) {
	mem := NewMemory("")
	mem.FailPut = func(up Upload) bool {
		if up.Filename != "bad.jpg" {
			return false
		}
		deadline := time.Now().Add(2 * time.Second)
		for len(mem.Keys()) == 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		return true
	}
	mem.FailDelete = func(string) bool { return true }
	queue := &recordingQueue{}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	_, err := PutAll(context.Background(), mem, queue, logger, "products", uploads("a.jpg", "bad.jpg"))
	require.Error(t, err)

	left := mem.Keys()
	require.Len(t, left, 1)
	assert.Equal(t, left, queue.keys)
	assert.Contains(t, logs.String(), "stored object delete failed")
	assert.Contains(t, logs.String(), "upload compensation deferred")
}

func TestDiscardQueuesFailedDeletes(t *testing.T) {
	mem := NewMemory("")
	objs, err := PutAll(context.Background(), mem, nil, nil, "products", uploads("a.jpg", "b.jpg"))
	require.NoError(t, err)
	mem.FailDelete = func(key string) bool { return key == objs[1].Key }
	queue := &recordingQueue{}

	pending := Discard(context.Background(), mem, queue, nil, Keys(objs))
	assert.Equal(t, 1, pending)
	assert.Equal(t, []string{objs[1].Key}, queue.keys)
	assert.False(t, mem.Has(objs[0].Key))
}

func TestMemoryServesStoredObjects(t *testing.T) {
	store := NewMemory("http://localhost:8080/uploads/")
	obj, err := store.Put(context.Background(), "products", Upload{Filename: "a.png", Body: strings.NewReader("png-bytes")})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/"+obj.Key, obj.URL)

	rr := httptest.NewRecorder()
	store.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/"+obj.Key, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "png-bytes", rr.Body.String())
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	store.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
