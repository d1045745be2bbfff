package expenses

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/rbac"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// Handler serves /expenses.
type Handler struct {
	service   *Service
	rbac      rbac.Middleware
	responder *httpx.Responder
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, rbac rbac.Middleware, responder *httpx.Responder) *Handler {
	return &Handler{service: service, rbac: rbac, responder: responder, validator: httpx.NewValidator()}
}

// MountRoutes registers expense routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermExpensesView))
		r.Get("/", h.list)
		r.Get("/totals", h.totals)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermExpensesEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) filters(r *http.Request) (ListFilters, error) {
	from, err := httpx.QueryTime(r, "from")
	if err != nil {
		return ListFilters{}, err
	}
	to, err := httpx.QueryTime(r, "to")
	if err != nil {
		return ListFilters{}, err
	}
	page, limit := shared.PageParams(r.URL.Query())
	return ListFilters{From: from, To: to, Category: r.URL.Query().Get("category"), Page: page, Limit: limit}, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	f, err := h.filters(r)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	out, total, err := h.service.List(r.Context(), f)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.SetPageHeaders(w, f.Page, f.Limit, total)
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	f, err := h.filters(r)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	out, err := h.service.Totals(r.Context(), f)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	e, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
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
	e, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
