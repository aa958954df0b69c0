package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handcoach/internal/exercise"
	"github.com/ayusman/handcoach/internal/server/api"
	"github.com/ayusman/handcoach/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type streamError struct {
	Error string `json:"error"`
}

// StreamHandler evaluates frames sent over a WebSocket. Each connection owns
// one session for its lifetime: the first message sent is the session
// Status, every frame message is answered with a Result, and the session is
// removed when the connection closes.
type StreamHandler struct {
	registry *session.Registry
	decoder  *api.FrameDecoder
	maxBytes int64
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(r *session.Registry, d *api.FrameDecoder, maxBytes int64) *StreamHandler {
	return &StreamHandler{registry: r, decoder: d, maxBytes: maxBytes}
}

// ServeHTTP handles WebSocket upgrade requests. The optional exercise query
// parameter selects the initial exercise.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kind := exercise.Kind(r.URL.Query().Get("exercise"))
	if kind != "" {
		if _, err := exercise.ParseKind(string(kind)); err != nil {
			http.Error(w, "Unknown exercise", http.StatusBadRequest)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()
	if h.maxBytes > 0 {
		conn.SetReadLimit(h.maxBytes)
	}

	s, err := h.registry.Create(kind)
	if err != nil {
		writeStream(conn, "", streamError{Error: err.Error()})
		return
	}
	defer h.registry.Remove(s.ID())

	st, err := s.Status()
	if err != nil {
		return
	}
	if !writeStream(conn, s.ID(), st) {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("stream %s: read error: %v", s.ID(), err)
			}
			return
		}

		res, err := h.handle(s, data)
		if errors.Is(err, session.ErrSessionClosed) {
			writeStream(conn, s.ID(), streamError{Error: err.Error()})
			return
		}
		if err != nil {
			if !writeStream(conn, s.ID(), streamError{Error: err.Error()}) {
				return
			}
			continue
		}
		if !writeStream(conn, s.ID(), res) {
			return
		}
	}
}

// writeStream sends v and reports whether the connection is still usable.
func writeStream(conn *websocket.Conn, id string, v any) bool {
	if err := conn.WriteJSON(v); err != nil {
		if id == "" {
			id = conn.RemoteAddr().String()
		}
		log.Printf("stream %s: write error: %v", id, err)
		return false
	}
	return true
}

func (h *StreamHandler) handle(s *session.Session, data []byte) (session.Result, error) {
	var req api.FrameRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return session.Result{}, errors.New("invalid JSON")
	}
	f, err := h.decoder.Decode(&req)
	if err != nil {
		return session.Result{}, err
	}
	return s.Evaluate(f)
}
