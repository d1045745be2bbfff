package sales

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/rbac"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// Handler manages sale HTTP endpoints. Authentication is applied by the
// parent router.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	responder *httpx.Responder
	validator *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, responder *httpx.Responder) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, responder: responder, validator: httpx.NewValidator()}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSalesView))
		r.Get("/", h.list)
		r.Get("/summary", h.summary)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSalesCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSalesCancel))
		r.Post("/{id}/cancel", h.cancel)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	from, err := httpx.QueryTime(r, "from")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	to, err := httpx.QueryTime(r, "to")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	page, limit := shared.PageParams(r.URL.Query())
	items, total, err := h.service.List(r.Context(), ListFilters{
		From:   from,
		To:     to,
		Status: Status(r.URL.Query().Get("status")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.SetPageHeaders(w, page, limit, total)
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	sale, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("sale recorded", slog.Int64("sale_id", sale.ID), slog.String("total", sale.Total.String()))
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	sale, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	from, err := httpx.QueryTime(r, "from")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	to, err := httpx.QueryTime(r, "to")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	now := time.Now().UTC()
	end := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	if to != nil {
		end = *to
	}
	start := end.Add(-30 * 24 * time.Hour)
	if from != nil {
		start = *from
	}
	out, err := h.service.Summary(r.Context(), start, end)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
