package websocket

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pscheid92/rtspoverlay/internal/adapter/metrics"
)

// Handler upgrades viewer requests and attaches them to the hub. Viewers only
// receive; anything they send is read and discarded to keep pong handling alive.
type Handler struct {
	hub         *Hub
	checkOrigin func(*http.Request) bool
	upgrader    websocket.Upgrader
	metrics     *metrics.WebSocketMetrics
}

// NewHandler creates the upgrade handler. m may be nil.
func NewHandler(hub *Hub, checkOrigin func(*http.Request) bool, m *metrics.WebSocketMetrics) *Handler {
	return &Handler{
		hub:         hub,
		checkOrigin: checkOrigin,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is checked before Upgrade so the rejection can be counted.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		metrics: m,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		if h.metrics != nil {
			h.metrics.ConnectionsRejected.WithLabelValues("origin").Inc()
		}
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	if err := h.hub.Register(conn); err != nil {
		slog.Warn("Failed to register viewer", "error", err)
		return
	}
	defer h.hub.Unregister(conn)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
