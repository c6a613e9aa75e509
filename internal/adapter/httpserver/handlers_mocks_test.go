package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pscheid92/rtspoverlay/internal/adapter/metrics"
	"github.com/pscheid92/rtspoverlay/internal/domain"
	"github.com/pscheid92/rtspoverlay/internal/platform/config"
)

// --- Mock implementations ---

type mockAppService struct {
	listOverlaysFn  func(ctx context.Context) ([]domain.Overlay, error)
	createOverlayFn func(ctx context.Context, input map[string]any) (*domain.Overlay, error)
	updateOverlayFn func(ctx context.Context, id string, input map[string]any) (*domain.Overlay, error)
	deleteOverlayFn func(ctx context.Context, id string) error
	stream          domain.StreamConfig
}

func (m *mockAppService) ListOverlays(ctx context.Context) ([]domain.Overlay, error) {
	if m.listOverlaysFn != nil {
		return m.listOverlaysFn(ctx)
	}
	return []domain.Overlay{}, nil
}

func (m *mockAppService) CreateOverlay(ctx context.Context, input map[string]any) (*domain.Overlay, error) {
	if m.createOverlayFn != nil {
		return m.createOverlayFn(ctx, input)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) UpdateOverlay(ctx context.Context, id string, input map[string]any) (*domain.Overlay, error) {
	if m.updateOverlayFn != nil {
		return m.updateOverlayFn(ctx, id, input)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) DeleteOverlay(ctx context.Context, id string) error {
	if m.deleteOverlayFn != nil {
		return m.deleteOverlayFn(ctx, id)
	}
	return nil
}

func (m *mockAppService) StreamConfig() domain.StreamConfig {
	return m.stream
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		Port:               "5000",
		RTSPURL:            "rtsp://default-stream-url",
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		WriteRateLimit:     1000,
		WriteRateBurst:     1000,
	}
}

func newTestServer(t *testing.T, app appService, opts ...func(*Server)) *Server {
	t.Helper()

	clock := clockwork.NewFakeClock()
	srv := &Server{
		echo:      echo.New(),
		config:    testConfig(),
		app:       app,
		clock:     clock,
		startTime: clock.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	// Register routes so endpoints are available for testing
	srv.registerRoutes()

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withClock(clock clockwork.Clock) func(*Server) {
	return func(s *Server) {
		s.clock = clock
		s.startTime = clock.Now()
	}
}

func withWebsocketHandler(h http.Handler) func(*Server) {
	return func(s *Server) {
		s.websocketHandler = h
	}
}

func withRegistry(reg *prometheus.Registry) func(*Server) {
	return func(s *Server) {
		s.metricsHandler = metrics.Handler(reg)
		s.httpMetrics = metrics.NewHTTPMetrics(reg)
	}
}

func withRateLimit(ratePerSecond float64, burst int) func(*Server) {
	return func(s *Server) {
		s.config.WriteRateLimit = ratePerSecond
		s.config.WriteRateBurst = burst
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware()(handler)(c)
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

// serve sends a request through the full middleware chain and router.
func serve(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}
