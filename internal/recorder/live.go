package recorder

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

type liveMessage struct {
	Kind         string   `json:"kind"`
	SessionID    string   `json:"session_id"`
	LapNumber    int      `json:"lap_number"`
	SectorNumber int      `json:"sector_number"`
	Session      *Session `json:"session"`
}

// LiveHub fans tracker events out to connected websocket viewers. Delivery is
// best effort: a slow client has stale events discarded rather than ever
// back-pressuring the poll loop.
type LiveHub struct {
	logger   Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*liveClient]struct{}
}

type liveClient struct {
	conn *websocket.Conn
	send chan liveMessage
}

func NewLiveHub(logger Logger) *LiveHub {
	return &LiveHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*liveClient]struct{}),
	}
}

// OnEvent implements EventSink.
func (h *LiveHub) OnEvent(event Event) {
	message := liveMessage{
		Kind:         event.Kind.String(),
		SessionID:    event.SessionID.String(),
		LapNumber:    event.LapNumber,
		SectorNumber: event.SectorNumber,
		Session:      event.Session,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// the client is not keeping up. Drop this event for them.
		}
	}
}

func (h *LiveHub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)

	if err != nil {
		h.logger.WithError(err).Warnf("Could not upgrade live viewer connection")
		return
	}

	client := &liveClient{
		conn: conn,
		send: make(chan liveMessage, 64),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.logger.Debugf("Live viewer connected from %s", r.RemoteAddr)

	go h.writeLoop(client)
}

func (h *LiveHub) writeLoop(client *liveClient) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()

		_ = client.conn.Close()
	}()

	for message := range client.send {
		if err := client.conn.WriteJSON(message); err != nil {
			return
		}
	}
}

// Close disconnects all viewers.
func (h *LiveHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
