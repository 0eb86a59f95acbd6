// Package realtime serves search sessions over websockets. Each connection
// drives one search controller: client frames become controller inputs and
// every view or navigation the controller produces is pushed back.
package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/PetoAdam/homenavi/citysearch/internal/geocode"
	"github.com/PetoAdam/homenavi/citysearch/internal/models"
	"github.com/PetoAdam/homenavi/citysearch/internal/observability"
	"github.com/PetoAdam/homenavi/citysearch/internal/search"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
	readLimit  = 4096
	sendBuffer = 64
)

// ClientFrame is a UI event sent by the browser. Pointer frames without an
// index are dropped.
type ClientFrame struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Key   string `json:"key,omitempty"`
	Index *int   `json:"index,omitempty"`
}

// ServerFrame carries either a view, a navigation or the session id.
type ServerFrame struct {
	Type    string       `json:"type"`
	Session string       `json:"session,omitempty"`
	View    *search.View `json:"view,omitempty"`
	URL     string       `json:"url,omitempty"`
}

type Hub struct {
	upgrader websocket.Upgrader
	searcher geocode.Searcher
	opts     []search.Option

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	id   string
	conn *websocket.Conn
	ctrl *search.Controller

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewHub(searcher geocode.Searcher, opts ...search.Option) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		searcher: searcher,
		opts:     opts,
		sessions: map[string]*session{},
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	s := &session{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	logger := slog.Default().With("session", s.id)
	opts := append([]search.Option{}, h.opts...)
	opts = append(opts,
		search.WithLogger(logger),
		search.WithRenderer(func(v search.View) {
			s.push(ServerFrame{Type: "view", View: &v})
		}),
		search.WithNavigator(func(c models.Coordinates) {
			s.push(ServerFrame{Type: "navigate", URL: c.WeatherPath()})
		}),
	)
	s.ctrl = search.New(h.searcher, opts...)

	h.add(s)
	logger.Info("search session opened", "remote", r.RemoteAddr)
	s.push(ServerFrame{Type: "session", Session: s.id})

	go s.writePump()
	s.readPump()

	h.remove(s)
	logger.Info("search session closed")
}

// Sessions returns the number of open sessions.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close drops every open session. Hijacked connections are not closed by
// http.Server.Shutdown, so the serve command calls this on the way down.
func (h *Hub) Close() {
	h.mu.Lock()
	all := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		all = append(all, s)
	}
	h.mu.Unlock()
	for _, s := range all {
		s.close()
	}
}

func (h *Hub) add(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.id] = s
	observability.Sessions.Inc()
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.id]; ok {
		delete(h.sessions, s.id)
		observability.Sessions.Dec()
	}
	h.mu.Unlock()
	s.close()
}

func (s *session) push(f ServerFrame) {
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- b:
	default:
		// Slow client; drop it.
		slog.Warn("dropping slow search session", "session", s.id)
		s.closed = true
		close(s.send)
		_ = s.conn.Close()
	}
}

func (s *session) close() {
	s.ctrl.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
	_ = s.conn.Close()
}

func (s *session) readPump() {
	s.conn.SetReadLimit(readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var f ClientFrame
		if err := json.Unmarshal(msg, &f); err != nil {
			slog.Debug("ignoring malformed frame", "session", s.id, "error", err)
			continue
		}
		s.dispatch(f)
	}
}

func (s *session) dispatch(f ClientFrame) {
	switch f.Type {
	case "hover", "mousedown", "click":
		if f.Index == nil {
			slog.Debug("ignoring frame without index", "session", s.id, "type", f.Type)
			return
		}
	}
	switch f.Type {
	case "input":
		s.ctrl.Input(f.Text)
	case "focus":
		s.ctrl.Focus()
	case "blur":
		s.ctrl.Blur()
	case "key":
		s.ctrl.Key(f.Key)
	case "hover":
		s.ctrl.Hover(*f.Index)
	case "mousedown":
		s.ctrl.MouseDown(*f.Index)
	case "mouseup":
		s.ctrl.MouseUp()
	case "click":
		s.ctrl.Click(*f.Index)
	default:
		slog.Debug("ignoring unknown frame", "session", s.id, "type", f.Type)
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				_ = s.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
