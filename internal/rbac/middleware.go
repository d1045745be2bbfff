package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// PermissionSource resolves permission slugs for role names.
type PermissionSource interface {
	PermissionsForRoles(ctx context.Context, roles []string) ([]string, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers. It expects
// auth.Gate to have attached a principal; a request without one is treated
// as unauthenticated, never as forbidden.
type Middleware struct {
	Service   PermissionSource
	Responder *httpx.Responder
	Logger    *slog.Logger
}

// RequireRoles ensures the principal carries at least one of the roles.
func (m Middleware) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	required := normalize(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				m.Responder.Error(w, r, fmt.Errorf("%w: authentication required", shared.ErrUnauthorized))
				return
			}
			if !intersects(p.Roles, required) {
				m.Responder.Error(w, r, fmt.Errorf("%w: role not allowed", shared.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the principal's roles grant at least one of the
// permission slugs. The admin role passes every permission check.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	required := normalize(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				m.Responder.Error(w, r, fmt.Errorf("%w: authentication required", shared.ErrUnauthorized))
				return
			}
			if len(required) == 0 || p.HasRole(shared.RoleAdmin) {
				next.ServeHTTP(w, r)
				return
			}
			granted, err := m.Service.PermissionsForRoles(r.Context(), p.Roles)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac require any", slog.Any("error", err))
				}
				m.Responder.Error(w, r, err)
				return
			}
			if intersects(granted, required) {
				next.ServeHTTP(w, r)
				return
			}
			m.Responder.Error(w, r, fmt.Errorf("%w: missing permission %s", shared.ErrForbidden, strings.Join(required, " or ")))
		})
	}
}

func normalize(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func intersects(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		set[strings.ToLower(g)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}
