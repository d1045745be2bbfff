package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alesteb/alesteb-api/internal/auth"
	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/rbac"
	"github.com/alesteb/alesteb-api/internal/shared"
	"github.com/alesteb/alesteb-api/jobs"
)

// ============================================================================
// FAKES
// ============================================================================

type memoryRepo struct {
	rows   []Message
	nextID int64
}

func (m *memoryRepo) Create(_ context.Context, msg Message) (Message, error) {
	m.nextID++
	msg.ID = m.nextID
	msg.CreatedAt = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	m.rows = append(m.rows, msg)
	return msg, nil
}

func (m *memoryRepo) List(_ context.Context, f ListFilters) ([]Message, int, error) {
	var out []Message
	for _, r := range m.rows {
		if f.Handled != nil && r.Handled != *f.Handled {
			continue
		}
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Message, error) {
	for _, r := range m.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return Message{}, ErrNotFound
}

func (m *memoryRepo) MarkHandled(_ context.Context, id, actor int64, at time.Time) (Message, error) {
	for i, r := range m.rows {
		if r.ID != id {
			continue
		}
		if !r.Handled {
			r.Handled, r.HandledAt = true, &at
			if actor > 0 {
				r.HandledBy = &actor
			}
			m.rows[i] = r
		}
		return r, nil
	}
	return Message{}, ErrNotFound
}

type recordingQueue struct {
	payloads []jobs.SendEmailPayload
	err      error
}

func (q *recordingQueue) EnqueueSendEmail(_ context.Context, p jobs.SendEmailPayload) error {
	if q.err != nil {
		return q.err
	}
	q.payloads = append(q.payloads, p)
	return nil
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// ============================================================================
// SERVICE
// ============================================================================

func TestSubmitStoresAndQueuesNotification(t *testing.T) {
	repo := &memoryRepo{}
	queue := &recordingQueue{}
	svc := NewService(repo, queue, "inbox@alesteb.com", quiet)

	m, err := svc.Submit(context.Background(), Input{Name: " Ana ", Email: "ANA@example.com", Subject: "Talla", Message: " ¿Tienen talla M? "})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", m.Email)
	require.Len(t, repo.rows, 1)

	require.Len(t, queue.payloads, 1)
	p := queue.payloads[0]
	assert.Equal(t, "inbox@alesteb.com", p.To)
	assert.Equal(t, "ana@example.com", p.ReplyTo)
	assert.Equal(t, "[Contact] Talla", p.Subject)
	assert.Contains(t, p.Body, "¿Tienen talla M?")
}

func TestSubmitSurvivesQueueFailure(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, &recordingQueue{err: errors.New("redis down")}, "inbox@alesteb.com", quiet)

	_, err := svc.Submit(context.Background(), Input{Name: "A", Email: "a@b.c", Message: "hi"})
	require.NoError(t, err)
	assert.Len(t, repo.rows, 1)
}

func TestSubmitWithoutInboxSkipsQueue(t *testing.T) {
	queue := &recordingQueue{}
	svc := NewService(&memoryRepo{}, queue, "", quiet)

	_, err := svc.Submit(context.Background(), Input{Name: "A", Email: "a@b.c", Message: "hi"})
	require.NoError(t, err)
	assert.Empty(t, queue.payloads)

	_, err = svc.Submit(context.Background(), Input{Name: "A", Email: "a@b.c", Message: "   "})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestMarkHandledKeepsFirstStamp(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil, "", quiet)
	m, err := svc.Submit(context.Background(), Input{Name: "A", Email: "a@b.c", Message: "hi"})
	require.NoError(t, err)

	ctx := shared.ContextWithPrincipal(context.Background(), shared.Principal{UserID: 9})
	first, err := svc.MarkHandled(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, first.Handled)
	require.NotNil(t, first.HandledBy)
	assert.Equal(t, int64(9), *first.HandledBy)

	second, err := svc.MarkHandled(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, first.HandledAt, second.HandledAt)

	_, err = svc.MarkHandled(ctx, 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

// ============================================================================
// HTTP
// ============================================================================

func newRouter(t *testing.T, perMinute int) (http.Handler, *auth.Tokens) {
	t.Helper()
	responder := httpx.NewResponder(quiet, true)
	tokens, err := auth.NewTokens("test-secret-test-secret-test-secret", "alesteb-test", time.Hour)
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	gate := auth.Gate{Tokens: tokens, Revocations: auth.NewRedisRevocations(client), Responder: responder, Logger: quiet}

	svc := NewService(&memoryRepo{}, &recordingQueue{}, "inbox@alesteb.com", quiet)
	h := NewHandler(quiet, svc, gate.Authenticate, rbac.Middleware{Responder: responder, Logger: quiet}, responder, perMinute)
	r := chi.NewRouter()
	r.Route("/contact", h.MountRoutes)
	return r, tokens
}

func submit(router http.Handler) *httptest.ResponseRecorder {
	body, _ := json.Marshal(Input{Name: "Ana", Email: "ana@example.com", Message: "hola"})
	req := httptest.NewRequest(http.MethodPost, "/contact", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:5555"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestPublicSubmitIsRateLimited(t *testing.T) {
	router, _ := newRouter(t, 2)

	assert.Equal(t, http.StatusCreated, submit(router).Code)
	assert.Equal(t, http.StatusCreated, submit(router).Code)
	rr := submit(router)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "too many requests"))
}

func TestInboxRequiresAuthentication(t *testing.T) {
	router, tokens := newRouter(t, 10)
	require.Equal(t, http.StatusCreated, submit(router).Code)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/contact", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	raw, _, err := tokens.Issue(1, []string{shared.RoleAdmin})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/contact?handled=false", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("X-Total-Count"))
}
