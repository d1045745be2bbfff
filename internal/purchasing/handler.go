package purchasing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/rbac"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// Handler exposes provider, purchase order and payment endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	responder *httpx.Responder
	validator *validator.Validate
}

// NewHandler constructs the purchasing handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, responder *httpx.Responder) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, responder: responder, validator: httpx.NewValidator()}
}

// MountRoutes registers /providers, /purchase-orders and payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPurchasingView))
		r.Get("/providers", h.listProviders)
		r.Get("/providers/{id}", h.showProvider)
		r.Get("/purchase-orders", h.listOrders)
		r.Get("/purchase-orders/{id}", h.showOrder)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPurchasingEdit))
		r.Post("/providers", h.createProvider)
		r.Put("/providers/{id}", h.updateProvider)
		r.Delete("/providers/{id}", h.deleteProvider)
		r.Post("/purchase-orders", h.createOrder)
		r.Post("/purchase-orders/{id}/receive", h.receiveOrder)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPurchasingView, shared.PermPaymentsPost))
		r.Get("/purchase-orders/{id}/payments", h.listPayments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPaymentsPost))
		r.Post("/purchase-orders/{id}/payments", h.postPayment)
	})
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListProviders(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) showProvider(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	p, err := h.service.GetProvider(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) createProvider(w http.ResponseWriter, r *http.Request) {
	var in ProviderInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	p, err := h.service.CreateProvider(r.Context(), in)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProvider(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	var in ProviderInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	p, err := h.service.UpdateProvider(r.Context(), id, in)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProvider(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	if err := h.service.DeleteProvider(r.Context(), id); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	providerID, err := httpx.QueryInt64(r, "provider_id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	q := r.URL.Query()
	page, limit := shared.PageParams(q)
	out, total, err := h.service.ListOrders(r.Context(), OrderFilters{
		ProviderID:    providerID,
		Status:        OrderStatus(q.Get("status")),
		PaymentStatus: PaymentStatus(q.Get("payment_status")),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.SetPageHeaders(w, page, limit, total)
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) showOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	po, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in OrderInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	po, err := h.service.CreateOrder(r.Context(), in)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("purchase order created", slog.Int64("purchase_order_id", po.ID), slog.String("number", po.Number))
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) receiveOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	po, err := h.service.ReceiveOrder(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	out, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) postPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	var in PaymentInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	p, err := h.service.PostPayment(r.Context(), id, in)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.logger.Info("provider payment posted", slog.Int64("purchase_order_id", id), slog.String("amount", p.Amount.String()))
	httpx.JSON(w, http.StatusCreated, p)
}
