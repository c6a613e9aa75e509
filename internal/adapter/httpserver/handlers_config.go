package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type apiHealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleGetConfig(c echo.Context) error {
	if err := c.JSON(http.StatusOK, s.app.StreamConfig()); err != nil {
		return fmt.Errorf("failed to write config response: %w", err)
	}
	return nil
}

// handleAPIHealth is the static liveness answer clients poll. It never touches the store;
// /health/ready does that.
func (s *Server) handleAPIHealth(c echo.Context) error {
	response := apiHealthResponse{
		Status:  "healthy",
		Message: "RTSP Overlay API is running",
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write health response: %w", err)
	}
	return nil
}
