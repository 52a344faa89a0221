package http

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"sessq-service/internal/app"
	"sessq-service/internal/auth"
)

// WSHandler upgrades connections onto a session's channel. Hosts identify
// themselves with an access token in the `token` query parameter; every
// other connection joins as a participant.
type WSHandler struct {
	sessions *app.SessionService
	auth     *auth.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(sessions *app.SessionService, authService *auth.Service) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		auth:     authService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// hostCommand is the inbound message envelope on the host connection.
type hostCommand struct {
	Type     string          `json:"type"`
	Question json.RawMessage `json:"question"`
	Message  string          `json:"message"`
}

type pushedQuestion struct {
	ID       string `json:"id"`
	Duration int    `json:"duration"`
}

func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	role := app.RoleParticipant
	if token := r.URL.Query().Get("token"); token != "" {
		if _, err := h.auth.VerifyAccess(token); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		role = app.RoleHost
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	client := newWSClient(conn)
	defer client.Close()

	if err := h.sessions.Attach(code, role, client); err != nil {
		client.Send(errorEvent(err))
		return
	}
	defer h.sessions.Detach(code, client)

	if role == app.RoleHost {
		// The host attaching is what takes the session live.
		if err := h.sessions.StartSession(code); err != nil {
			client.Send(errorEvent(err))
			return
		}
		h.hostLoop(r, code, client)
		return
	}

	// Participants only listen; their writes go through the REST surface.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHandler) hostLoop(r *http.Request, code string, client *wsClient) {
	for {
		var cmd hostCommand
		if err := client.conn.ReadJSON(&cmd); err != nil {
			return
		}
		switch cmd.Type {
		case "push_question":
			var question pushedQuestion
			if err := json.Unmarshal(cmd.Question, &question); err != nil || question.ID == "" {
				client.Send(app.Event{Type: "error", Data: map[string]any{"message": "invalid push_question payload"}})
				continue
			}
			if _, err := h.sessions.PushQuestion(r.Context(), code, question.ID, question.Duration); err != nil {
				client.Send(errorEvent(err))
			}
		case "reveal_answer":
			if _, err := h.sessions.RevealAnswer(code); err != nil {
				client.Send(errorEvent(err))
			}
		case "end_session":
			if err := h.sessions.EndSession(code, cmd.Message); err != nil {
				client.Send(errorEvent(err))
			}
		default:
			client.Send(app.Event{Type: "error", Data: map[string]any{"message": "unsupported message type"}})
		}
	}
}

func errorEvent(err error) app.Event {
	return app.Event{Type: "error", Data: map[string]any{"message": err.Error()}}
}

// wsClient adapts one websocket connection to the hub's Client interface.
// A single writer goroutine drains the send queue, so hub broadcasts never
// write to the connection concurrently.
type wsClient struct {
	conn *websocket.Conn
	send chan app.Event
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	c := &wsClient{
		conn: conn,
		send: make(chan app.Event, 16),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *wsClient) writePump() {
	for {
		select {
		case ev := <-c.send:
			if err := c.conn.WriteJSON(ev); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send queues an event without blocking; a full queue means the consumer
// cannot keep up and the hub should evict it.
func (c *wsClient) Send(ev app.Event) bool {
	select {
	case c.send <- ev:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *wsClient) Close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
