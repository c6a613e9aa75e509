package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/rtspoverlay/internal/domain"
)

func TestHandleGetConfig(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/api/config", "")
	srv := newTestServer(t, &mockAppService{
		stream: domain.StreamConfig{RTSPURL: "rtsp://camera.local:554/live"},
	})

	err := callHandler(srv.handleGetConfig, c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rtsp_url":"rtsp://camera.local:554/live"}`, rec.Body.String())
}

func TestHandleAPIHealth(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/api/health", "")
	srv := newTestServer(t, &mockAppService{})

	err := callHandler(srv.handleAPIHealth, c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","message":"RTSP Overlay API is running"}`, rec.Body.String())
}
