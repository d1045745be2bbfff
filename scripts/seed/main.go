// Command seed bootstraps the first administrator account.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/alesteb/alesteb-api/internal/platform/db"
	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/shared"
	"github.com/alesteb/alesteb-api/internal/users"
)

func main() {
	_ = godotenv.Load()

	dsn := pflag.String("dsn", os.Getenv("PG_DSN"), "postgres connection string")
	email := pflag.String("email", os.Getenv("SEED_ADMIN_EMAIL"), "administrator email")
	name := pflag.String("name", "Administrator", "administrator display name")
	password := pflag.String("password", os.Getenv("SEED_ADMIN_PASSWORD"), "administrator password")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.New(ctx, *dsn, db.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var adminRoleID int64
	err = pool.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, shared.RoleAdmin).Scan(&adminRoleID)
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Error("admin role missing, run the migrator first")
		os.Exit(1)
	}
	if err != nil {
		logger.Error("load admin role", slog.Any("error", err))
		os.Exit(1)
	}

	in := users.CreateInput{Email: *email, Name: *name, Password: *password, RoleIDs: []int64{adminRoleID}}
	if err := httpx.NewValidator().Struct(in); err != nil {
		logger.Error("invalid administrator", slog.Any("error", err))
		os.Exit(2)
	}

	svc := users.NewService(users.NewRepository(pool), shared.NopAudit{}, 0)
	user, err := svc.Create(ctx, in)
	switch {
	case errors.Is(err, shared.ErrConflict):
		logger.Info("administrator already exists", slog.String("email", in.Email))
	case err != nil:
		logger.Error("create administrator", slog.Any("error", err))
		os.Exit(1)
	default:
		logger.Info("administrator created", slog.Int64("id", user.ID), slog.String("email", user.Email))
	}
}
