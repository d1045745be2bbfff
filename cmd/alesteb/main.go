package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/alesteb/alesteb-api/internal/app"
	"github.com/alesteb/alesteb-api/internal/audit"
	audithttp "github.com/alesteb/alesteb-api/internal/audit/http"
	"github.com/alesteb/alesteb-api/internal/auth"
	"github.com/alesteb/alesteb-api/internal/catalog/banners"
	"github.com/alesteb/alesteb-api/internal/catalog/categories"
	"github.com/alesteb/alesteb-api/internal/catalog/discounts"
	"github.com/alesteb/alesteb-api/internal/catalog/products"
	"github.com/alesteb/alesteb-api/internal/contact"
	"github.com/alesteb/alesteb-api/internal/expenses"
	"github.com/alesteb/alesteb-api/internal/observability"
	"github.com/alesteb/alesteb-api/internal/platform/cache"
	"github.com/alesteb/alesteb-api/internal/platform/db"
	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/platform/storage"
	"github.com/alesteb/alesteb-api/internal/purchasing"
	"github.com/alesteb/alesteb-api/internal/rbac"
	"github.com/alesteb/alesteb-api/internal/roles"
	"github.com/alesteb/alesteb-api/internal/sales"
	"github.com/alesteb/alesteb-api/internal/shared"
	"github.com/alesteb/alesteb-api/internal/users"
	"github.com/alesteb/alesteb-api/jobs"
)

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, MaxConnLifetime: 30 * time.Minute})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error("init object storage", slog.Any("error", err))
		os.Exit(1)
	}
	var uploads http.Handler
	if mem, ok := store.(*storage.Memory); ok {
		logger.Warn("serving images from process memory", slog.String("driver", app.StorageMemory))
		uploads = mem
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	responder := httpx.NewResponder(logger, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(pool)

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		logger.Error("init tokens", slog.Any("error", err))
		os.Exit(1)
	}
	revocations := auth.NewRedisRevocations(redisClient)
	gate := auth.Gate{Tokens: tokens, Revocations: revocations, Responder: responder, Logger: logger}
	authService := auth.NewService(auth.NewRepository(pool), tokens, revocations)
	authHandler := auth.NewHandler(logger, authService, gate, responder)

	rbacService := rbac.NewService(rbac.NewPGStore(pool))
	rbacMiddleware := rbac.Middleware{Service: rbacService, Responder: responder, Logger: logger}

	productService := products.NewService(products.NewRepository(pool), store, jobClient, auditLogger, logger, products.Options{MaxImages: cfg.MaxProductImages})
	productHandler := products.NewHandler(logger, productService, gate.Authenticate, rbacMiddleware, responder, cfg.MaxUploadBytes)

	categoryHandler := categories.NewHandler(logger, categories.NewService(categories.NewRepository(pool)), gate.Authenticate, rbacMiddleware, responder)
	discountHandler := discounts.NewHandler(logger, discounts.NewService(discounts.NewRepository(pool)), gate.Authenticate, rbacMiddleware, responder)

	bannerService := banners.NewService(banners.NewRepository(pool), store, jobClient, logger)
	bannerHandler := banners.NewHandler(logger, bannerService, gate.Authenticate, rbacMiddleware, responder, cfg.MaxUploadBytes)

	salesHandler := sales.NewHandler(logger, sales.NewService(sales.NewRepository(pool), auditLogger), rbacMiddleware, responder)
	purchasingHandler := purchasing.NewHandler(logger, purchasing.NewService(purchasing.NewRepository(pool), auditLogger), rbacMiddleware, responder)
	expensesHandler := expenses.NewHandler(expenses.NewService(expenses.NewRepository(pool), auditLogger), rbacMiddleware, responder)
	usersHandler := users.NewHandler(logger, users.NewService(users.NewRepository(pool), auditLogger, 0), rbacMiddleware, responder)
	rolesHandler := roles.NewHandler(logger, roles.NewService(roles.NewRepository(pool), auditLogger), rbacMiddleware, responder)
	permissionsHandler := rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware, responder)

	contactService := contact.NewService(contact.NewRepository(pool), jobClient, cfg.ContactInbox, logger)
	contactHandler := contact.NewHandler(logger, contactService, gate.Authenticate, rbacMiddleware, responder, cfg.ContactPerMinute)

	auditHandler := audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(pool)), rbacMiddleware, responder)
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Gate:    gate,
		Uploads: uploads,
		Health: map[string]app.Pinger{
			"postgres": pool,
			"redis":    redisPinger{client: redisClient},
		},
		AuthHandler:        authHandler,
		ProductsHandler:    productHandler,
		CategoriesHandler:  categoryHandler,
		DiscountsHandler:   discountHandler,
		BannersHandler:     bannerHandler,
		SalesHandler:       salesHandler,
		PurchasingHandler:  purchasingHandler,
		ExpensesHandler:    expensesHandler,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		ContactHandler:     contactHandler,
		AuditHandler:       auditHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}

func newStore(ctx context.Context, cfg *app.Config) (storage.Store, error) {
	if cfg.StorageDriver == app.StorageMemory {
		return storage.NewMemory(localBaseURL(cfg.AppAddr) + "/uploads/"), nil
	}
	return storage.NewS3Store(ctx, storage.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		PublicBaseURL:   cfg.S3PublicBaseURL,
	})
}

func localBaseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
