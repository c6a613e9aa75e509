// Package httpserver exposes the Overlay Service over HTTP using echo.
//
// Routes: the overlay CRUD and config endpoints under /api, the probe set under
// /health, /version, /metrics and the viewer websocket. Every error leaves the
// server as {"error": "<message>"}.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pscheid92/rtspoverlay/internal/adapter/metrics"
	"github.com/pscheid92/rtspoverlay/internal/domain"
	"github.com/pscheid92/rtspoverlay/internal/platform/config"
)

type appService interface {
	ListOverlays(ctx context.Context) ([]domain.Overlay, error)
	CreateOverlay(ctx context.Context, input map[string]any) (*domain.Overlay, error)
	UpdateOverlay(ctx context.Context, id string, input map[string]any) (*domain.Overlay, error)
	DeleteOverlay(ctx context.Context, id string) error
	StreamConfig() domain.StreamConfig
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app appService

	websocketHandler http.Handler
	metricsHandler   http.Handler
	httpMetrics      *metrics.HTTPMetrics

	healthChecks []HealthCheck
	clock        clockwork.Clock
	startTime    time.Time
}

// NewServer builds the echo instance and registers all routes.
// websocketHandler and reg may be nil to leave the viewer stream or /metrics out.
func NewServer(cfg *config.Config, app appService, websocketHandler http.Handler, reg *prometheus.Registry, healthChecks []HealthCheck, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		config:           cfg,
		app:              app,
		websocketHandler: websocketHandler,
		healthChecks:     healthChecks,
		clock:            clock,
		startTime:        clock.Now(),
	}
	if reg != nil {
		srv.metricsHandler = metrics.Handler(reg)
		srv.httpMetrics = metrics.NewHTTPMetrics(reg)
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets the server be mounted on any http.Server or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
