package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"cmdvrp/internal/formulation"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

const (
	pongWait   = 60 * time.Second
	pingPeriod = 20 * time.Second
	writeWait  = 5 * time.Second
)

// RunStreamHandler upgrades GET /v1/runs/stream to a websocket and forwards
// run events as JSON. ?variant= narrows the stream to one formulation.
func (s *Server) RunStreamHandler(w http.ResponseWriter, r *http.Request) {
	variant := r.URL.Query().Get("variant")
	if variant != "" {
		v, err := formulation.ParseVariant(variant)
		if err != nil {
			s.writeError(w, r, "Invalid stream request", err)
			return
		}
		variant = string(v)
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	topic := topicFor(variant)
	ch := s.Broker.Subscribe(topic)
	defer s.Broker.Unsubscribe(topic, ch)

	// The read side only tracks liveness; clients do not send commands.
	closed := make(chan struct{})
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v)
	}
	if err := write(Event{Type: "ready", Data: map[string]string{"topic": topic}}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := write(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
