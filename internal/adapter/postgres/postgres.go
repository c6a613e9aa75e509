package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"

	"github.com/pscheid92/rtspoverlay/internal/platform/retry"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Connect opens a pool and verifies it with a ping. tracer may be nil.
func Connect(ctx context.Context, databaseURL string, tracer pgx.QueryTracer) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to parse database URL: %w", err))
	}
	if tracer != nil {
		poolCfg.ConnConfig.Tracer = tracer
	}

	slog.Info("Database SSL mode", "sslmode", extractSSLMode(databaseURL))

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected", "min_conns", poolCfg.MinConns, "max_conns", poolCfg.MaxConns)
	return pool, nil
}

func extractSSLMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "unknown"
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "" {
		return "prefer (default)"
	}
	return mode
}

const (
	// bootstrapLockID is the advisory lock serializing schema bootstrap across instances.
	// Value: 0x727473706f76 ("rtspov" in ASCII hex)
	bootstrapLockID             = 0x727473706f76
	bootstrapLockReleaseTimeout = 5 * time.Second
)

// EnsureSchema creates the overlays table if it does not exist yet. Concurrent
// instances wait on an advisory lock so only one of them applies the DDL.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for schema bootstrap: %w", err)
	}
	defer conn.Release()

	release, err := bootstrapLock(ctx, conn.Conn(), bootstrapLockReleaseTimeout)
	if err != nil {
		return err
	}
	defer release()

	return applySchema(ctx, conn.Conn())
}

func applySchema(ctx context.Context, conn *pgx.Conn) error {
	schemaFS, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read schema files: %w", err)
	}

	migrator, err := migrate.NewMigrator(ctx, conn, "public.overlay_schema_version")
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrator.LoadMigrations(schemaFS); err != nil {
		return fmt.Errorf("failed to load schema files: %w", err)
	}

	current, err := migrator.GetCurrentVersion(ctx)
	if err != nil {
		slog.Debug("could not get current schema version (likely fresh DB)", "error", err)
	} else if int(current) == len(migrator.Migrations) {
		slog.Debug("overlays schema already present", "version", current)
		return nil
	}

	slog.Info("bootstrapping overlays schema")
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap schema: %w", err)
	}
	return nil
}

func bootstrapLock(ctx context.Context, conn *pgx.Conn, releaseTimeout time.Duration) (release func(), err error) {
	release = func() { /* EMPTY */ }

	if _, err = conn.Exec(ctx, "SELECT pg_advisory_lock($1)", bootstrapLockID); err != nil {
		err = fmt.Errorf("failed to acquire schema bootstrap lock: %w", err)
		return
	}

	release = func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", bootstrapLockID); err != nil {
			slog.Error("failed to release schema bootstrap lock", "error", err)
		}
	}
	return
}
