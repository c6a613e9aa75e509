package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/rtspoverlay/internal/domain"
	apperrors "github.com/pscheid92/rtspoverlay/internal/platform/errors"
)

const msgInvalidJSON = "Invalid JSON body"

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleListOverlays(c echo.Context) error {
	overlays, err := s.app.ListOverlays(c.Request().Context())
	if err != nil {
		return translateError(err)
	}

	if err := c.JSON(http.StatusOK, overlays); err != nil {
		return fmt.Errorf("failed to write overlays response: %w", err)
	}
	return nil
}

func (s *Server) handleCreateOverlay(c echo.Context) error {
	input, err := decodeObject(c.Request().Body)
	if err != nil {
		return err
	}

	overlay, err := s.app.CreateOverlay(c.Request().Context(), input)
	if err != nil {
		return translateError(err)
	}

	if err := c.JSON(http.StatusCreated, overlay); err != nil {
		return fmt.Errorf("failed to write overlay response: %w", err)
	}
	return nil
}

func (s *Server) handleUpdateOverlay(c echo.Context) error {
	id := c.Param("id")

	input, err := decodeObject(c.Request().Body)
	if err != nil {
		return err
	}

	overlay, err := s.app.UpdateOverlay(c.Request().Context(), id, input)
	if err != nil {
		return translateError(err).WithField("overlay_id", id)
	}

	if err := c.JSON(http.StatusOK, overlay); err != nil {
		return fmt.Errorf("failed to write overlay response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteOverlay(c echo.Context) error {
	id := c.Param("id")

	if err := s.app.DeleteOverlay(c.Request().Context(), id); err != nil {
		return translateError(err).WithField("overlay_id", id)
	}

	if err := c.JSON(http.StatusOK, messageResponse{Message: "Overlay deleted successfully"}); err != nil {
		return fmt.Errorf("failed to write delete response: %w", err)
	}
	return nil
}

// decodeObject reads a single JSON object. Numbers stay json.Number so they are
// stored and echoed exactly as sent.
func decodeObject(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var input map[string]any
	if err := dec.Decode(&input); err != nil {
		// BodyLimit reports an oversized stream through the reader.
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return nil, httpErr
		}
		return nil, apperrors.ValidationError(msgInvalidJSON).WithField("cause", err.Error())
	}
	if input == nil {
		// literal null
		return nil, apperrors.ValidationError(msgInvalidJSON)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, apperrors.ValidationError(msgInvalidJSON).WithField("cause", "trailing data")
	}
	return input, nil
}

func translateError(err error) *apperrors.Error {
	switch {
	case errors.Is(err, domain.ErrMissingFields):
		return apperrors.ValidationError(domain.ErrMissingFields.Error()).WithField("detail", err.Error())
	case errors.Is(err, domain.ErrNoValidFields):
		return apperrors.ValidationError(domain.ErrNoValidFields.Error())
	case errors.Is(err, domain.ErrOverlayNotFound):
		return apperrors.NotFoundError(domain.ErrOverlayNotFound.Error())
	default:
		var structured *apperrors.Error
		if errors.As(err, &structured) {
			return structured
		}
		return apperrors.InternalError(rootMessage(err), err)
	}
}

// rootMessage returns the text of the innermost wrapped error, which is the
// store driver's own message. Adapter prefixes stay in the logged cause.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
