package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/acecoach/internal/app"
)

const (
	writeWait        = 5 * time.Second
	subscriberBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StatusHandler streams controller events to websocket clients as JSON
// text messages. The first message is the current status.
type StatusHandler struct {
	hub    *app.Hub
	status func() app.Status
}

// NewStatusHandler creates a StatusHandler fed by hub. status, when not
// nil, supplies the greeting sent on connect.
func NewStatusHandler(hub *app.Hub, status func() app.Status) *StatusHandler {
	return &StatusHandler{hub: hub, status: status}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Server] websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.hub.Subscribe(subscriberBuffer)
	defer unsubscribe()

	// The read loop only notices the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if h.status != nil {
		if err := h.send(conn, app.Event{Type: app.EventStatus, Status: h.status(), Time: time.Now()}); err != nil {
			return
		}
	}

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := h.send(conn, ev); err != nil {
				return
			}
		}
	}
}

func (h *StatusHandler) send(conn *websocket.Conn, ev app.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(ev); err != nil {
		log.Printf("[Server] websocket write: %v", err)
		return err
	}
	return nil
}
