// Package websocket pushes overlay change events to connected viewers.
//
// The Hub is a single-goroutine actor: every mutation of the client set goes
// through its command channel. Each connection gets its own writer goroutine so
// one slow viewer cannot hold up the others.
package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pscheid92/rtspoverlay/internal/adapter/metrics"
	"github.com/pscheid92/rtspoverlay/internal/domain"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

var (
	ErrHubFull    = errors.New("websocket hub is at capacity")
	ErrHubStopped = errors.New("websocket hub stopped")
)

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	conn  *websocket.Conn
	errCh chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	conn *websocket.Conn
}

func (cmdUnregister) hubCmd() {}

type cmdBroadcast struct {
	data []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdClientCount struct {
	replyCh chan int
}

func (cmdClientCount) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// --- Per-connection writer ---

type clientWriter struct {
	conn    *websocket.Conn
	sendCh  chan []byte
	done    chan struct{}
	metrics *metrics.WebSocketMetrics
}

func newClientWriter(conn *websocket.Conn, m *metrics.WebSocketMetrics) *clientWriter {
	cw := &clientWriter{
		conn:    conn,
		sendCh:  make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		metrics: m,
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-cw.sendCh:
			_ = cw.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			if cw.metrics != nil {
				cw.metrics.MessagesSent.Inc()
			}
		case <-ticker.C:
			_ = cw.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cw.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	_ = cw.conn.Close()
}

// --- Hub ---

type Hub struct {
	cmdCh      chan hubCmd
	stopped    chan struct{}
	clients    map[*websocket.Conn]*clientWriter
	maxClients int
	metrics    *metrics.WebSocketMetrics
}

// NewHub starts the hub goroutine. m may be nil.
func NewHub(maxClients int, m *metrics.WebSocketMetrics) *Hub {
	hub := &Hub{
		cmdCh:      make(chan hubCmd, 256),
		stopped:    make(chan struct{}),
		clients:    make(map[*websocket.Conn]*clientWriter),
		maxClients: maxClients,
		metrics:    m,
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.conn)
		case cmdBroadcast:
			h.handleBroadcast(c)
		case cmdClientCount:
			c.replyCh <- len(h.clients)
		case cmdStop:
			h.handleStop()
			close(h.stopped)
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	if len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting viewer, hub at capacity", "max_clients", h.maxClients)
		if h.metrics != nil {
			h.metrics.ConnectionsRejected.WithLabelValues("capacity").Inc()
		}
		_ = c.conn.Close()
		c.errCh <- fmt.Errorf("%w (%d clients)", ErrHubFull, h.maxClients)
		return
	}

	h.clients[c.conn] = newClientWriter(c.conn, h.metrics)
	if h.metrics != nil {
		h.metrics.ActiveConnections.Inc()
	}
	slog.Debug("Viewer registered", "total_clients", len(h.clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cw, exists := h.clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, conn)
	if h.metrics != nil {
		h.metrics.ActiveConnections.Dec()
	}
	slog.Debug("Viewer unregistered", "remaining_clients", len(h.clients))
}

func (h *Hub) handleBroadcast(c cmdBroadcast) {
	var slow []*websocket.Conn
	for conn, cw := range h.clients {
		select {
		case cw.sendCh <- c.data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Info("Disconnecting slow viewer", "remote_addr", conn.RemoteAddr().String())
		h.handleUnregister(conn)
	}
}

func (h *Hub) handleStop() {
	for conn, cw := range h.clients {
		cw.stop()
		delete(h.clients, conn)
		if h.metrics != nil {
			h.metrics.ActiveConnections.Dec()
		}
	}
}

// send delivers a command unless the hub has already stopped.
func (h *Hub) send(cmd hubCmd) bool {
	select {
	case h.cmdCh <- cmd:
		return true
	case <-h.stopped:
		return false
	}
}

// --- Public API ---

// Register adds conn to the audience. On error the connection has been closed.
func (h *Hub) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	if !h.send(cmdRegister{conn: conn, errCh: errCh}) {
		_ = conn.Close()
		return ErrHubStopped
	}
	select {
	case err := <-errCh:
		return err
	case <-h.stopped:
		_ = conn.Close()
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.send(cmdUnregister{conn: conn})
}

// Broadcast queues event for every connected viewer.
func (h *Hub) Broadcast(event domain.OverlayEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal overlay event", "overlay_id", event.ID, "error", err)
		return
	}
	h.send(cmdBroadcast{data: data})
}

func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	if !h.send(cmdClientCount{replyCh: replyCh}) {
		return 0
	}
	select {
	case n := <-replyCh:
		return n
	case <-h.stopped:
		return 0
	}
}

// Stop closes all viewer connections and ends the hub goroutine. Safe to call more than once.
func (h *Hub) Stop() {
	h.send(cmdStop{})
	<-h.stopped
}
