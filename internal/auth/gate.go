package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// Gate authenticates bearer tokens and attaches the principal to the
// request context. Authorization is layered on top by rbac.Middleware.
type Gate struct {
	Tokens      *Tokens
	Revocations RevocationList
	Responder   *httpx.Responder
	Logger      *slog.Logger
}

// Authenticate rejects requests without a valid, unrevoked bearer token.
func (g Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerToken(r)
		if err != nil {
			g.Responder.Error(w, r, err)
			return
		}
		principal, _, err := g.Tokens.Verify(raw)
		if err != nil {
			g.Responder.Error(w, r, err)
			return
		}
		if g.Revocations != nil {
			revoked, err := g.Revocations.IsRevoked(r.Context(), principal.TokenID)
			if err != nil {
				// Fail closed when the revocation store is unreachable.
				if g.Logger != nil {
					g.Logger.Error("check token revocation", slog.Any("error", err))
				}
				g.Responder.Error(w, r, fmt.Errorf("%w: revocation store unavailable", shared.ErrExternalService))
				return
			}
			if revoked {
				g.Responder.Error(w, r, fmt.Errorf("%w: token revoked", shared.ErrUnauthorized))
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", fmt.Errorf("%w: missing bearer token", shared.ErrUnauthorized)
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: malformed authorization header", shared.ErrUnauthorized)
	}
	return strings.TrimSpace(token), nil
}
