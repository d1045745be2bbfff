package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// Responder maps domain errors to HTTP responses and logs server failures.
type Responder struct {
	Logger     *slog.Logger
	Production bool
}

// NewResponder builds a Responder.
func NewResponder(logger *slog.Logger, production bool) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{Logger: logger, Production: production}
}

// StatusFor returns the HTTP status for an error in the shared taxonomy.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error writes the error response. Server-side failures are logged with
// method, path, request id and actor; in production their message is
// reduced to a generic text.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		rs.Logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.Int64("actor_id", shared.ActorID(r.Context())),
			slog.Any("error", err),
		)
		if rs.Production {
			msg = shared.UserSafeMessage(err)
		}
	}
	JSON(w, status, ErrorBody{Error: msg})
}
