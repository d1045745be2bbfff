package discounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/rbac"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// Handler exposes discount endpoints.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	authenticate func(http.Handler) http.Handler
	rbac         rbac.Middleware
	responder    *httpx.Responder
	validator    *validator.Validate
}

// NewHandler creates a Handler.
func NewHandler(logger *slog.Logger, service *Service, authenticate func(http.Handler) http.Handler, rbac rbac.Middleware, responder *httpx.Responder) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		authenticate: authenticate,
		rbac:         rbac,
		responder:    responder,
		validator:    httpx.NewValidator(),
	}
}

// MountRoutes registers routes; reads are public.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.Group(func(r chi.Router) {
		r.Use(h.authenticate, h.rbac.RequireRoles(shared.RoleAdmin))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	active, err := httpx.QueryBool(r, "active")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	items, err := h.service.List(r.Context(), active != nil && *active)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	d, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("discount created", slog.Int64("discount_id", d.ID), slog.Int("targets", len(d.Targets)))
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	var in Input
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	d, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "discount deleted")
}
