package banners

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/platform/storage"
	"github.com/alesteb/alesteb-api/internal/rbac"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// Handler exposes banner endpoints.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	authenticate func(http.Handler) http.Handler
	rbac         rbac.Middleware
	responder    *httpx.Responder
	maxBytes     int64
}

// NewHandler creates a Handler.
func NewHandler(logger *slog.Logger, service *Service, authenticate func(http.Handler) http.Handler, rbac rbac.Middleware, responder *httpx.Responder, maxUploadBytes int64) *Handler {
	return &Handler{logger: logger, service: service, authenticate: authenticate, rbac: rbac, responder: responder, maxBytes: maxUploadBytes}
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
	items, err := h.service.List(r.Context(), active)
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
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, 0)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.write(w, r, id)
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, id int64) {
	if err := httpx.ParseMultipart(r, h.maxBytes); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	defer httpx.CleanupMultipart(r)

	position, err := httpx.FormInt(r, "position")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	active, err := httpx.FormBool(r, "active", true)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	fields := Fields{
		Title:    httpx.FormString(r, "title"),
		Subtitle: httpx.FormString(r, "subtitle"),
		LinkURL:  httpx.FormString(r, "link_url"),
		Position: position,
		Active:   active,
	}

	uploads, release, err := httpx.OpenUploads(r, "image")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	defer release()
	if len(uploads) > 1 {
		h.responder.Error(w, r, fmt.Errorf("%w: a banner takes a single image", shared.ErrValidation))
		return
	}
	var image *storage.Upload
	if len(uploads) == 1 {
		if !storage.IsImage(uploads[0]) {
			h.responder.Error(w, r, fmt.Errorf("%w: %s is not an image", shared.ErrValidation, uploads[0].Filename))
			return
		}
		image = &uploads[0]
	}

	if id == 0 {
		b, err := h.service.Create(r.Context(), fields, image)
		if err != nil {
			h.responder.Error(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, b)
		return
	}
	b, err := h.service.Update(r.Context(), id, fields, image)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
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
	httpx.Message(w, http.StatusOK, "banner deleted")
}
