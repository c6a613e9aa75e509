package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/rtspoverlay/internal/domain"
)

func TestNewRegistry_IncludesRuntimeCollectors(t *testing.T) {
	reg := NewRegistry()

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	reg := NewRegistry()
	ev := NewEventMetrics(reg)
	ev.Published.WithLabelValues("created").Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rtsp_overlay_events_published_total{action="created"} 1`)
}

func TestHTTPMetrics_RecordsRouteAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/overlays", func(c echo.Context) error { return c.JSON(http.StatusOK, []any{}) })
	e.PUT("/api/overlays/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "Overlay not found")
	})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/overlays", nil),
		httptest.NewRequest(http.MethodPut, "/api/overlays/abc", nil),
		httptest.NewRequest(http.MethodPut, "/api/overlays/def", nil),
	} {
		e.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/overlays", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("PUT", "/api/overlays/:id", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlightGauge))
}

func TestHTTPMetrics_SkipsProbeRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, 0, testutil.CollectAndCount(m.RequestsTotal))
}

type stubRepo struct {
	err error
}

func (s stubRepo) List(context.Context) ([]domain.Overlay, error) { return nil, s.err }
func (s stubRepo) Insert(context.Context, domain.Fields) (*domain.Overlay, error) {
	return &domain.Overlay{ID: "1"}, s.err
}
func (s stubRepo) Merge(context.Context, string, domain.Fields) (*domain.Overlay, error) {
	return nil, s.err
}
func (s stubRepo) Delete(context.Context, string) error { return s.err }

func TestInstrumentedRepository_Outcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetrics(reg)
	ctx := context.Background()

	ok := NewInstrumentedRepository(stubRepo{}, "memory", m)
	_, _ = ok.List(ctx)
	_, _ = ok.Insert(ctx, domain.Fields{})

	missing := NewInstrumentedRepository(stubRepo{err: domain.ErrOverlayNotFound}, "memory", m)
	err := missing.Delete(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrOverlayNotFound)

	broken := NewInstrumentedRepository(stubRepo{err: errors.New("boom")}, "memory", m)
	_, err = broken.Merge(ctx, "x", domain.Fields{"x": 1})
	assert.EqualError(t, err, "boom")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("memory", "list", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("memory", "insert", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("memory", "delete", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("memory", "merge", "error")))
	assert.Equal(t, 4, testutil.CollectAndCount(m.OperationDuration))
}

func TestCollectorsRegisterOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewWebSocketMetrics(reg)
	NewRedisMetrics(reg)

	assert.Panics(t, func() { NewRedisMetrics(reg) })
}

func TestRedisMetrics_HelpText(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRedisMetrics(reg)
	m.BreakerState.Set(2)

	expected := `
# HELP rtsp_overlay_redis_circuit_breaker_state Circuit breaker state: 0 closed, 1 half-open, 2 open.
# TYPE rtsp_overlay_redis_circuit_breaker_state gauge
rtsp_overlay_redis_circuit_breaker_state 2
`
	require.NoError(t, testutil.CollectAndCompare(m.BreakerState, strings.NewReader(expected)))
}
