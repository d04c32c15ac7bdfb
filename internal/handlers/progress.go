package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"driverdock/internal/events"
)

// ProgressFrame is the wire format for messages pushed to dashboard
// WebSocket clients.
type ProgressFrame struct {
	Type    string       `json:"type"` // mirrors the event type
	Payload events.Event `json:"payload"`
}

// ProgressHub pushes provisioning events to connected dashboard clients
// so install progress renders live without polling.
type ProgressHub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan ProgressFrame
	done chan struct{}
}

// NewProgressHub creates the hub and subscribes it to provisioning
// events on the bus.
func NewProgressHub(bus *events.Bus) *ProgressHub {
	h := &ProgressHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*wsClient]struct{}),
	}

	bus.Subscribe(h.onEvent,
		events.InstallStarted, events.InstallStep,
		events.InstallSucceeded, events.InstallFailed,
		events.InstallRedirected, events.ModelUnresolved,
		events.PluginMissing, events.ScanIngested)

	return h
}

// onEvent fans an event out to every connected client. Slow clients get
// their frame dropped rather than blocking the publisher.
func (h *ProgressHub) onEvent(e events.Event) {
	frame := ProgressFrame{Type: string(e.Type), Payload: e}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		select {
		case c.send <- frame:
		default:
			log.Printf("[WS] Client send buffer full, dropping %s frame", e.Type)
		}
	}
}

// HandleConnection upgrades the request and streams progress frames
// until the client goes away.
// GET /ws/progress
func (h *ProgressHub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}

	c := &wsClient{
		conn: conn,
		send: make(chan ProgressFrame, 64),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	log.Printf("[WS] Dashboard client connected (%d active)", n)

	go h.writeLoop(c)
	h.readLoop(c)

	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	close(c.done)
	log.Printf("[WS] Dashboard client disconnected")
}

// readLoop discards client messages; the stream is one-way. It exists to
// notice disconnects and to service pongs.
func (h *ProgressHub) readLoop(c *wsClient) {
	defer c.conn.Close()

	c.conn.SetReadLimit(4 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error: %v", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	}
}

// writeLoop serializes frames and pings onto the connection.
func (h *ProgressHub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			payload, err := json.Marshal(frame)
			if err != nil {
				log.Printf("[WS] Encode frame: %v", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(
				websocket.PingMessage, nil,
				time.Now().Add(10*time.Second),
			); err != nil {
				return
			}
		}
	}
}

// ActiveConnections returns the number of connected dashboard clients.
func (h *ProgressHub) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// CloseAll terminates all active WebSocket connections.
func (h *ProgressHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.conns {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(5*time.Second),
		)
		c.conn.Close()
		delete(h.conns, c)
	}
}
