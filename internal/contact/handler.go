package contact

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/rbac"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// Handler serves /contact.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	authenticate func(http.Handler) http.Handler
	rbac         rbac.Middleware
	responder    *httpx.Responder
	validator    *validator.Validate
	perMinute    int
}

// NewHandler builds the contact handler. Submissions are limited to
// perMinute requests per client IP.
func NewHandler(logger *slog.Logger, service *Service, authenticate func(http.Handler) http.Handler, rbac rbac.Middleware, responder *httpx.Responder, perMinute int) *Handler {
	if perMinute <= 0 {
		perMinute = 5
	}
	return &Handler{
		logger:       logger,
		service:      service,
		authenticate: authenticate,
		rbac:         rbac,
		responder:    responder,
		validator:    httpx.NewValidator(),
		perMinute:    perMinute,
	}
}

// MountRoutes registers contact routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.Limit(h.perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusTooManyRequests, httpx.ErrorBody{Error: "too many requests"})
		}),
	)).Post("/", h.submit)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.With(h.rbac.RequireAny(shared.PermContactView)).Get("/", h.list)
		r.With(h.rbac.RequireAny(shared.PermContactView)).Get("/{id}", h.show)
		r.With(h.rbac.RequireAny(shared.PermContactEdit)).Post("/{id}/handled", h.markHandled)
	})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	m, err := h.service.Submit(r.Context(), in)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("contact message received", slog.Int64("message_id", m.ID))
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": m.ID})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	handled, err := httpx.QueryBool(r, "handled")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	page, limit := shared.PageParams(r.URL.Query())
	out, total, err := h.service.List(r.Context(), ListFilters{Handled: handled, Page: page, Limit: limit})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.SetPageHeaders(w, page, limit, total)
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	m, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) markHandled(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	m, err := h.service.MarkHandled(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}
