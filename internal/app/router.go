package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	audithttp "github.com/alesteb/alesteb-api/internal/audit/http"
	"github.com/alesteb/alesteb-api/internal/auth"
	"github.com/alesteb/alesteb-api/internal/catalog/banners"
	"github.com/alesteb/alesteb-api/internal/catalog/categories"
	"github.com/alesteb/alesteb-api/internal/catalog/discounts"
	"github.com/alesteb/alesteb-api/internal/catalog/products"
	"github.com/alesteb/alesteb-api/internal/contact"
	"github.com/alesteb/alesteb-api/internal/expenses"
	"github.com/alesteb/alesteb-api/internal/observability"
	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/purchasing"
	"github.com/alesteb/alesteb-api/internal/rbac"
	"github.com/alesteb/alesteb-api/internal/roles"
	"github.com/alesteb/alesteb-api/internal/sales"
	"github.com/alesteb/alesteb-api/internal/users"
	"github.com/alesteb/alesteb-api/jobs"
)

// Pinger reports dependency health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config
	Gate   auth.Gate
	Health map[string]Pinger
	// Uploads, when set, serves locally stored images under /uploads/.
	Uploads http.Handler

	AuthHandler        *auth.Handler
	ProductsHandler    *products.Handler
	CategoriesHandler  *categories.Handler
	DiscountsHandler   *discounts.Handler
	BannersHandler     *banners.Handler
	SalesHandler       *sales.Handler
	PurchasingHandler  *purchasing.Handler
	ExpensesHandler    *expenses.Handler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *rbac.PermissionsHandler
	ContactHandler     *contact.Handler
	AuditHandler       *audithttp.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusNotFound, httpx.ErrorBody{Error: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusMethodNotAllowed, httpx.ErrorBody{Error: "method not allowed"})
	})

	r.Get("/healthz", healthHandler(params.Health, params.Logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.Uploads != nil {
		r.Handle("/uploads/*", http.StripPrefix("/uploads", params.Uploads))
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	// Catalog and contact mix public reads with authenticated writes and
	// apply the gate themselves.
	if params.ProductsHandler != nil {
		r.Route("/products", params.ProductsHandler.MountRoutes)
	}
	if params.CategoriesHandler != nil {
		r.Route("/categories", params.CategoriesHandler.MountRoutes)
	}
	if params.DiscountsHandler != nil {
		r.Route("/discounts", params.DiscountsHandler.MountRoutes)
	}
	if params.BannersHandler != nil {
		r.Route("/banners", params.BannersHandler.MountRoutes)
	}
	if params.ContactHandler != nil {
		r.Route("/contact", params.ContactHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(params.Gate.Authenticate)
		if params.SalesHandler != nil {
			r.Route("/sales", params.SalesHandler.MountRoutes)
		}
		if params.PurchasingHandler != nil {
			r.Group(params.PurchasingHandler.MountRoutes)
		}
		if params.ExpensesHandler != nil {
			r.Route("/expenses", params.ExpensesHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit-logs", params.AuditHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		body := healthBody{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				logger.Warn("health check failed", slog.String("dependency", name), slog.Any("error", err))
				body.Checks[name] = "down"
				body.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			body.Checks[name] = "up"
		}
		httpx.JSON(w, status, body)
	}
}
