// File: internal/controlapi/events.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventHub fans orchestrator transition events out to WebSocket clients.
// Each client has a bounded queue drained by its own writer goroutine; a
// client whose queue is full is evicted rather than slowing the strand.

package controlapi

import (
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"

	"github.com/momentics/hioload-headunit/api"
)

const (
	clientQueueSize = 32
	writeWait       = 5 * time.Second
	maxClients      = 16
)

type eventClient struct {
	conn *websocket.Conn
	send chan api.SessionEvent
	once sync.Once
}

func (c *eventClient) close() {
	c.once.Do(func() { close(c.send) })
}

// EventHub implements api.SessionObserver.
type EventHub struct {
	log logr.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]*eventClient
	closed  bool
}

var _ api.SessionObserver = (*EventHub)(nil)

func NewEventHub(log logr.Logger) *EventHub {
	return &EventHub{log: log, clients: make(map[*websocket.Conn]*eventClient)}
}

// Register attaches conn and starts its writer.
func (h *EventHub) Register(conn *websocket.Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return api.ErrTransportClosed
	}
	if len(h.clients) >= maxClients {
		return api.NewError(api.ErrCodeOperationInProgress, "too many event subscribers")
	}
	c := &eventClient{conn: conn, send: make(chan api.SessionEvent, clientQueueSize)}
	h.clients[conn] = c
	go h.writer(c)
	return nil
}

// Unregister detaches conn. Safe to call twice.
func (h *EventHub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	c, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// Clients returns the number of attached subscribers.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// OnSessionEvent queues ev for every client without blocking.
func (h *EventHub) OnSessionEvent(ev api.SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.log.Info("Evicting slow event subscriber", "remote", conn.RemoteAddr().String())
			delete(h.clients, conn)
			c.close()
		}
	}
}

// Close detaches every client.
func (h *EventHub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*websocket.Conn]*eventClient)
	h.closed = true
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

func (h *EventHub) writer(c *eventClient) {
	defer c.conn.Close()
	for ev := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			h.log.V(1).Info("Event subscriber write failed", "error", err.Error())
			h.Unregister(c.conn)
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
