package api

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// statusEvent is one refresh state transition pushed to websocket clients.
type statusEvent struct {
	ServiceID  int64 `json:"service_id"`
	Refreshing bool  `json:"refreshing"`
}

// eventHub fans refresh status events out to connected websocket clients.
type eventHub struct {
	logger *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newEventHub(logger *slog.Logger) *eventHub {
	return &eventHub{
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// broadcast sends the event to every client, dropping clients whose
// connection has failed.
func (h *eventHub) broadcast(ev statusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Debug("dropping websocket client", "error", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

func (h *eventHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *eventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// send writes one event to a single client, under the hub lock so writes
// never interleave with broadcasts.
func (h *eventHub) send(conn *websocket.Conn, ev statusEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return conn.WriteJSON(ev)
}
