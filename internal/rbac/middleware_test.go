package rbac

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/shared"
)

type fakeSource struct {
	grants map[string][]string
	err    error
	calls  int
}

func (f *fakeSource) PermissionsForRoles(_ context.Context, roles []string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, r := range roles {
		out = append(out, f.grants[r]...)
	}
	return out, nil
}

func newTestMiddleware(src PermissionSource) Middleware {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return Middleware{Service: src, Responder: httpx.NewResponder(logger, true), Logger: logger}
}

func serve(mw func(http.Handler) http.Handler, p *shared.Principal) int {
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), *p))
	}
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res.Code
}

func TestRequireRolesWithoutPrincipalIsUnauthorized(t *testing.T) {
	m := newTestMiddleware(&fakeSource{})
	assert.Equal(t, http.StatusUnauthorized, serve(m.RequireRoles(shared.RoleAdmin), nil))
}

func TestRequireRolesRejectsOtherRoles(t *testing.T) {
	m := newTestMiddleware(&fakeSource{})
	p := &shared.Principal{UserID: 3, Roles: []string{"cashier"}}
	assert.Equal(t, http.StatusForbidden, serve(m.RequireRoles(shared.RoleAdmin), p))
}

func TestRequireRolesAllowsMatchingRole(t *testing.T) {
	m := newTestMiddleware(&fakeSource{})
	p := &shared.Principal{UserID: 1, Roles: []string{"admin"}}
	assert.Equal(t, http.StatusNoContent, serve(m.RequireRoles("ADMIN"), p))
}

func TestRequireAnyAdminBypassesLookup(t *testing.T) {
	src := &fakeSource{}
	m := newTestMiddleware(src)
	p := &shared.Principal{UserID: 1, Roles: []string{shared.RoleAdmin}}
	assert.Equal(t, http.StatusNoContent, serve(m.RequireAny(shared.PermSalesCancel), p))
	assert.Zero(t, src.calls)
}

func TestRequireAnyChecksGrantedPermissions(t *testing.T) {
	src := &fakeSource{grants: map[string][]string{"cashier": {shared.PermSalesView, shared.PermSalesCreate}}}
	m := newTestMiddleware(src)
	p := &shared.Principal{UserID: 4, Roles: []string{"cashier"}}

	assert.Equal(t, http.StatusNoContent, serve(m.RequireAny(shared.PermSalesCreate), p))
	assert.Equal(t, http.StatusForbidden, serve(m.RequireAny(shared.PermSalesCancel), p))
	assert.Equal(t, http.StatusUnauthorized, serve(m.RequireAny(shared.PermSalesView), nil))
}

func TestRequireAnyPropagatesLookupFailure(t *testing.T) {
	src := &fakeSource{err: errors.Join(shared.ErrDatabase, errors.New("boom"))}
	m := newTestMiddleware(src)
	p := &shared.Principal{UserID: 4, Roles: []string{"cashier"}}
	assert.Equal(t, http.StatusInternalServerError, serve(m.RequireAny(shared.PermSalesView), p))
}

type memoryStore struct {
	fakeSource
	perms []Permission
}

func (m *memoryStore) ListPermissions(context.Context) ([]Permission, error) { return m.perms, nil }

func (m *memoryStore) GetPermission(_ context.Context, id int64) (Permission, error) {
	for _, p := range m.perms {
		if p.ID == id {
			return p, nil
		}
	}
	return Permission{}, shared.ErrNotFound
}

func (m *memoryStore) CreatePermission(_ context.Context, slug, description string) (Permission, error) {
	p := Permission{ID: int64(len(m.perms) + 1), Slug: slug, Description: description}
	m.perms = append(m.perms, p)
	return p, nil
}

func (m *memoryStore) DeletePermission(_ context.Context, id int64) (int64, error) {
	for i, p := range m.perms {
		if p.ID == id {
			m.perms = append(m.perms[:i], m.perms[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func TestServiceCreatePermissionValidatesSlug(t *testing.T) {
	svc := NewService(&memoryStore{})
	_, err := svc.CreatePermission(context.Background(), "not a slug", "")
	require.ErrorIs(t, err, shared.ErrValidation)

	p, err := svc.CreatePermission(context.Background(), " Reports.View ", "see reports")
	require.NoError(t, err)
	assert.Equal(t, "reports.view", p.Slug)
}

func TestServiceDeleteMissingPermission(t *testing.T) {
	svc := NewService(&memoryStore{})
	require.ErrorIs(t, svc.DeletePermission(context.Background(), 99), shared.ErrNotFound)
}

func TestServiceDeleteProtectsBuiltinPermissions(t *testing.T) {
	store := &memoryStore{perms: []Permission{
		{ID: 1, Slug: shared.PermSalesView},
		{ID: 2, Slug: "reports.view"},
	}}
	svc := NewService(store)

	require.ErrorIs(t, svc.DeletePermission(context.Background(), 1), ErrBuiltinPermission)
	require.NoError(t, svc.DeletePermission(context.Background(), 2))
	require.Len(t, store.perms, 1)
	assert.Equal(t, shared.PermSalesView, store.perms[0].Slug)
}

func TestServicePermissionsForNoRoles(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store)
	perms, err := svc.PermissionsForRoles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, perms)
	assert.Zero(t, store.calls)
}
