package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
)

const (
	dsnFlag            = "dsn"
	migrationsPathFlag = "migrations-path"
	stepsFlag          = "steps"
)

type migrationLogger struct {
	logger *slog.Logger
}

func (l migrationLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (migrationLogger) Verbose() bool { return true }

func main() {
	dsn := pflag.StringP(dsnFlag, "d", os.Getenv("PG_DSN"), "postgres connection string")
	migrationsPath := pflag.StringP(migrationsPathFlag, "m", "migrations", "directory holding *.sql migrations")
	steps := pflag.IntP(stepsFlag, "n", 0, "number of migrations to apply with the steps command")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: migrator [flags] up|down|steps|version\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	command := "up"
	if pflag.NArg() > 0 {
		command = pflag.Arg(0)
	}
	if *dsn == "" {
		logger.Error("missing database dsn", slog.String("flag", "--"+dsnFlag))
		os.Exit(2)
	}

	m, err := migrate.New("file://"+*migrationsPath, toPgx5URL(*dsn))
	if err != nil {
		logger.Error("open migrations", slog.Any("error", err))
		os.Exit(1)
	}
	m.Log = migrationLogger{logger: logger}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("close migrator", slog.Any("source_error", srcErr), slog.Any("database_error", dbErr))
		}
	}()

	if err := run(m, command, *steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no migrations to apply")
			return
		}
		logger.Error("migrate", slog.String("command", command), slog.Any("error", err))
		os.Exit(1)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logger.Error("read version", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migration state", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
}

func run(m *migrate.Migrate, command string, steps int) error {
	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps":
		if steps == 0 {
			return fmt.Errorf("--%s must be non-zero", stepsFlag)
		}
		return m.Steps(steps)
	case "version":
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// toPgx5URL rewrites postgres:// DSNs to the scheme the pgx/v5 driver registers.
func toPgx5URL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
