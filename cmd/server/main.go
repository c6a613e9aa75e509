package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/rtspoverlay/internal/adapter/eventpublisher"
	"github.com/pscheid92/rtspoverlay/internal/adapter/httpserver"
	"github.com/pscheid92/rtspoverlay/internal/adapter/memory"
	"github.com/pscheid92/rtspoverlay/internal/adapter/metrics"
	"github.com/pscheid92/rtspoverlay/internal/adapter/mongo"
	"github.com/pscheid92/rtspoverlay/internal/adapter/postgres"
	"github.com/pscheid92/rtspoverlay/internal/adapter/redis"
	"github.com/pscheid92/rtspoverlay/internal/adapter/websocket"
	"github.com/pscheid92/rtspoverlay/internal/app"
	"github.com/pscheid92/rtspoverlay/internal/domain"
	"github.com/pscheid92/rtspoverlay/internal/platform/config"
	"github.com/pscheid92/rtspoverlay/internal/platform/logging"
	"github.com/pscheid92/rtspoverlay/internal/platform/retry"
)

const (
	connectTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// overlayStore is the selected Document Store plus what main needs to probe and release it.
type overlayStore struct {
	backend string
	repo    domain.OverlayRepository
	ping    func(ctx context.Context) error
	close   func()
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func startupPolicy(target string) retry.Policy {
	p := retry.StartupPolicy
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Connection attempt failed, retrying", "target", target, "attempt", attempt, "backoff", backoff, "error", err)
	}
	return p
}

func setupStore(ctx context.Context, cfg *config.Config, storeMetrics *metrics.StoreMetrics) overlayStore {
	backend, err := cfg.StorageBackend()
	if err != nil {
		slog.Error("Invalid storage configuration", "error", err)
		os.Exit(1)
	}

	var store overlayStore
	switch backend {
	case config.BackendMongo:
		ms, err := retry.Do(ctx, startupPolicy("mongo"), func(ctx context.Context) (*mongo.Store, error) {
			return mongo.Connect(ctx, cfg.DatabaseURL)
		})
		if err != nil {
			slog.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		store = overlayStore{repo: ms.Overlays(), ping: ms.Ping, close: ms.Close}

	case config.BackendPostgres:
		pool, err := retry.Do(ctx, startupPolicy("postgres"), func(ctx context.Context) (*pgxpool.Pool, error) {
			return postgres.Connect(ctx, cfg.DatabaseURL, postgres.NewMetricsTracer(storeMetrics))
		})
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			slog.Error("Failed to create overlay schema", "error", err)
			os.Exit(1)
		}
		repo := postgres.NewOverlayRepo(pool)
		store = overlayStore{repo: repo, ping: repo.Ping, close: pool.Close}

	case config.BackendMemory:
		slog.Warn("Using in-memory overlay store, data is lost on restart")
		repo := memory.NewOverlayRepo()
		store = overlayStore{repo: repo, ping: repo.Ping, close: func() {}}
	}

	store.backend = backend
	store.repo = metrics.NewInstrumentedRepository(store.repo, backend, storeMetrics)
	return store
}

func setupRedis(ctx context.Context, cfg *config.Config, redisMetrics *metrics.RedisMetrics) *goredis.Client {
	client, err := retry.Do(ctx, startupPolicy("redis"), func(ctx context.Context) (*goredis.Client, error) {
		return redis.NewClient(ctx, cfg.RedisURL, redisMetrics)
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *httpserver.Server, hub *websocket.Hub, stopSubscriber context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopSubscriber()
		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	reg := metrics.NewRegistry()
	storeMetrics := metrics.NewStoreMetrics(reg)
	eventMetrics := metrics.NewEventMetrics(reg)
	wsMetrics := metrics.NewWebSocketMetrics(reg)

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), connectTimeout)
	store := setupStore(connectCtx, cfg, storeMetrics)
	defer store.close()
	slog.Info("Overlay store ready", "backend", store.backend)

	healthChecks := []httpserver.HealthCheck{{Name: store.backend, Check: store.ping}}

	// Identifies this process in published events so it can drop its own echoes.
	origin := uuid.NewString()

	hub := websocket.NewHub(cfg.MaxWebSocketConnections, wsMetrics)
	wsHandler := websocket.NewHandler(hub, websocket.NewCheckOrigin(cfg.CORSAllowedOrigins, !cfg.IsProduction()), wsMetrics)

	subscriberCtx, stopSubscriber := context.WithCancel(context.Background())
	defer stopSubscriber()

	// stays a nil interface without Redis; a typed nil would look configured
	var remote domain.EventPublisher
	if cfg.RedisURL != "" {
		redisClient := setupRedis(connectCtx, cfg, metrics.NewRedisMetrics(reg))
		defer func() { _ = redisClient.Close() }()

		remote = redis.NewEventPublisher(redisClient)
		subscriber := redis.NewEventSubscriber(redisClient, origin, hub, eventMetrics)
		go subscriber.Start(subscriberCtx)

		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	} else {
		slog.Info("REDIS_URL not set, overlay events stay on this instance")
	}
	cancelConnect()

	publisher := eventpublisher.New(hub, remote, eventMetrics)
	stream := domain.StreamConfig{RTSPURL: cfg.RTSPURL}
	appSvc := app.NewService(store.repo, publisher, stream, clock, origin)

	srv := httpserver.NewServer(cfg, appSvc, wsHandler, reg, healthChecks, clock)

	done := runGracefulShutdown(srv, hub, stopSubscriber)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
