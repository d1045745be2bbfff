package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// PermissionsHandler manages permission endpoints.
type PermissionsHandler struct {
	logger    *slog.Logger
	service   *Service
	rbac      Middleware
	responder *httpx.Responder
	validator *validator.Validate
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, rbac Middleware, responder *httpx.Responder) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, rbac: rbac, responder: responder, validator: httpx.NewValidator()}
}

// MountRoutes registers permission routes. Authentication is applied by
// the parent router.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPermissionsView))
		r.Get("/", h.listPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPermissionsEdit))
		r.Post("/", h.createPermission)
		r.Delete("/{id}", h.deletePermission)
	})
}

type permissionRequest struct {
	Slug        string `json:"slug" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	if perms == nil {
		perms = []Permission{}
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *PermissionsHandler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), req.Slug, req.Description)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, perm)
}

func (h *PermissionsHandler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "permission deleted")
}
