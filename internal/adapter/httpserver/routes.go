package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pscheid92/rtspoverlay/internal/platform/correlation"
)

const maxBodySize = "1M"

func (s *Server) registerRoutes() {
	s.echo.HTTPErrorHandler = s.handleHTTPError

	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	if s.httpMetrics != nil {
		s.echo.Use(s.httpMetrics.Middleware())
	}
	s.echo.Use(ErrorHandlingMiddleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            63072000, // 2 years; only sent over HTTPS
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
	}))
	s.echo.Use(s.setupCORSMiddleware())

	s.registerHealthRoutes()
	s.registerAPIRoutes()

	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}
}

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api", middleware.BodyLimit(maxBodySize))

	writeLimit := newRateLimiter(s.config.WriteRateLimit, s.config.WriteRateBurst)

	api.GET("/overlays", s.handleListOverlays)
	api.POST("/overlays", s.handleCreateOverlay, writeLimit)
	api.PUT("/overlays/:id", s.handleUpdateOverlay, writeLimit)
	api.DELETE("/overlays/:id", s.handleDeleteOverlay, writeLimit)

	api.GET("/config", s.handleGetConfig)
	api.GET("/health", s.handleAPIHealth)

	if s.websocketHandler != nil {
		api.GET("/overlays/ws", echo.WrapHandler(s.websocketHandler))
	}
}

// setupCORSMiddleware applies the allow list to /api only. It runs at the root so
// preflight requests are answered even though no OPTIONS routes are registered.
func (s *Server) setupCORSMiddleware() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
		AllowOrigins:  s.config.CORSAllowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderContentType, correlation.Header},
		ExposeHeaders: []string{correlation.Header},
		MaxAge:        600,
	})
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
