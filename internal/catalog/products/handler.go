package products

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

const imagesField = "images"

// Handler manages product HTTP endpoints.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	authenticate func(http.Handler) http.Handler
	rbac         rbac.Middleware
	responder    *httpx.Responder
	maxBytes     int64
}

// NewHandler creates a new handler. authenticate guards every mutation;
// reads are public.
func NewHandler(
	logger *slog.Logger,
	service *Service,
	authenticate func(http.Handler) http.Handler,
	rbac rbac.Middleware,
	responder *httpx.Responder,
	maxUploadBytes int64,
) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		authenticate: authenticate,
		rbac:         rbac,
		responder:    responder,
		maxBytes:     maxUploadBytes,
	}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.show)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.Use(h.rbac.RequireRoles(shared.RoleAdmin))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	categoryID, err := httpx.QueryInt64(r, "category_id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	q := r.URL.Query()
	page, limit := shared.PageParams(q)
	filters := ListFilters{
		Page:       page,
		Limit:      limit,
		Search:     q.Get("search"),
		SortBy:     q.Get("sort_by"),
		SortDir:    q.Get("sort_dir"),
		CategoryID: categoryID,
	}

	views, total, err := h.service.GetAll(r.Context(), filters)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.SetPageHeaders(w, filters.Page, filters.Limit, total)
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	view, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := httpx.ParseMultipart(r, h.maxBytes); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	defer httpx.CleanupMultipart(r)

	fields, err := parseFields(r)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	images, release, err := openImages(r)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	defer release()

	id, err := h.service.Create(r.Context(), CreateInput{Fields: fields, Images: images})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("product created", slog.Int64("product_id", id), slog.Int64("actor_id", shared.ActorID(r.Context())))
	httpx.JSON(w, http.StatusCreated, CreateResponse{ID: id})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	if err := httpx.ParseMultipart(r, h.maxBytes); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	defer httpx.CleanupMultipart(r)

	fields, err := parseFields(r)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	deleted, err := httpx.FormInt64List(r, "deleted_image_ids")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	images, release, err := openImages(r)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	defer release()

	view, err := h.service.Update(r.Context(), id, UpdateInput{Fields: fields, DeletedImageIDs: deleted, NewImages: images})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	res, err := h.service.Remove(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func parseFields(r *http.Request) (Fields, error) {
	price, err := httpx.FormDecimal(r, "price")
	if err != nil {
		return Fields{}, err
	}
	stock, err := httpx.FormInt(r, "stock")
	if err != nil {
		return Fields{}, err
	}
	categoryID, err := httpx.FormOptionalInt64(r, "category_id")
	if err != nil {
		return Fields{}, err
	}
	return Fields{
		Name:        httpx.FormString(r, "name"),
		Price:       price,
		Stock:       stock,
		CategoryID:  categoryID,
		Description: httpx.FormString(r, "description"),
	}, nil
}

func openImages(r *http.Request) ([]storage.Upload, func(), error) {
	uploads, release, err := httpx.OpenUploads(r, imagesField)
	if err != nil {
		return nil, release, err
	}
	for _, up := range uploads {
		if !storage.IsImage(up) {
			release()
			return nil, func() {}, fmt.Errorf("%w: %s is not an image", shared.ErrValidation, up.Filename)
		}
	}
	return uploads, release, nil
}
