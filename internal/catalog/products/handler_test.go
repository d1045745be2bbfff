package products

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
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
)

type harness struct {
	router http.Handler
	tokens *auth.Tokens
	svc    *Service
}

func newHarness(t *testing.T) harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	responder := httpx.NewResponder(logger, true)

	tokens, err := auth.NewTokens("test-secret-test-secret-test-secret", "alesteb-test", time.Hour)
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	gate := auth.Gate{Tokens: tokens, Revocations: auth.NewRedisRevocations(client), Responder: responder, Logger: logger}

	svc, _, _, _ := newTestService(t)
	h := NewHandler(logger, svc, gate.Authenticate, rbac.Middleware{Responder: responder, Logger: logger}, responder, 8<<20)
	r := chi.NewRouter()
	r.Route("/products", h.MountRoutes)
	return harness{router: r, tokens: tokens, svc: svc}
}

func (h harness) bearer(t *testing.T, roles ...string) string {
	t.Helper()
	raw, _, err := h.tokens.Issue(1, roles)
	require.NoError(t, err)
	return "Bearer " + raw
}

func multipartBody(t *testing.T, fields map[string]string, images ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, name := range images {
		part, err := mw.CreateFormFile(imagesField, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image " + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func (h harness) do(req *http.Request) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	h.router.ServeHTTP(res, req)
	return res
}

func productFields() map[string]string {
	return map[string]string{"name": "Runner", "price": "49.90", "stock": "3", "description": "shoe"}
}

func TestCreateWithoutTokenIsUnauthorized(t *testing.T) {
	h := newHarness(t)
	body, ct := multipartBody(t, productFields(), "a.jpg")
	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", ct)

	res := h.do(req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestCreateWithNonAdminIsForbidden(t *testing.T) {
	h := newHarness(t)
	body, ct := multipartBody(t, productFields(), "a.jpg")
	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", h.bearer(t, "cashier"))

	res := h.do(req)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestListEmptyCatalogReturnsEmptyArray(t *testing.T) {
	h := newHarness(t)
	res := h.do(httptest.NewRequest(http.MethodGet, "/products", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `[]`, res.Body.String())
	assert.Equal(t, "0", res.Header().Get("X-Total-Count"))
}

func TestProductLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	admin := h.bearer(t, shared.RoleAdmin)

	body, ct := multipartBody(t, productFields(), "a.jpg", "b.png")
	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", admin)
	res := h.do(req)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var created CreateResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	res = h.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/products/%d", created.ID), nil))
	require.Equal(t, http.StatusOK, res.Code)
	var view View
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &view))
	require.Len(t, view.Images, 2)
	assert.True(t, view.FinalPrice.Equal(view.Price))

	fields := productFields()
	fields["deleted_image_ids"] = fmt.Sprintf("[%d,%d]", view.Images[0].ID, view.Images[1].ID)
	body, ct = multipartBody(t, fields)
	req = httptest.NewRequest(http.MethodPut, fmt.Sprintf("/products/%d", created.ID), body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", admin)
	res = h.do(req)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/products/%d", created.ID), nil)
	req.Header.Set("Authorization", admin)
	res = h.do(req)
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"deleted":1,"cleanup_pending":0}`, res.Body.String())

	res = h.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/products/%d", created.ID), nil))
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestCreateRejectsNonImageUpload(t *testing.T) {
	h := newHarness(t)
	body, ct := multipartBody(t, productFields(), "notes.txt")
	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", h.bearer(t, shared.RoleAdmin))

	res := h.do(req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}
