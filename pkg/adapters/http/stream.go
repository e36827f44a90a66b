package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aretw0/triage/pkg/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 8 << 10
)

// StreamManager fans state diffs out to websocket subscribers of a session.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- []byte]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- []byte]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for sessionID. The returned func
// unregisters and closes it.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, 16)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- []byte]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
			close(ch)
		})
	}
}

// HasSubscribers reports whether anyone listens to sessionID.
func (sm *StreamManager) HasSubscribers(sessionID string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID]) > 0
}

// Broadcast sends msg to every subscriber of sessionID, dropping it for slow clients.
func (sm *StreamManager) Broadcast(sessionID string, msg []byte) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("websocket client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// wsInbound is a chat message sent by a websocket client.
type wsInbound struct {
	Message string `json:"message"`
	Reset   bool   `json:"reset"`
}

// wsOutbound is either a reply to the client's own message, a state diff
// produced by any transport, or an error.
type wsOutbound struct {
	Type  string            `json:"type"`
	Reply *ChatResponse     `json:"reply,omitempty"`
	Diff  *domain.StateDiff `json:"diff,omitempty"`
	Error string            `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWebSocket handles GET /v1/ws?session_id=...
func (s *Server) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = s.newID()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	s.logger.Info("websocket connected", "session_id", sessionID)

	diffs, unsubscribe := s.streams.Subscribe(sessionID)
	out := make(chan wsOutbound, 16)
	done := make(chan struct{})

	go s.wsWritePump(conn, sessionID, diffs, out, done)
	s.wsReadPump(r, conn, sessionID, out)

	unsubscribe()
	close(done)
	s.logger.Info("websocket disconnected", "session_id", sessionID)
}

func (s *Server) wsReadPump(r *http.Request, conn *websocket.Conn, sessionID string, out chan<- wsOutbound) {
	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "session_id", sessionID, "err", err)
			}
			return
		}

		resp, err := s.turn(r.Context(), sessionID, in.Message, in.Reset)
		msg := wsOutbound{Type: "reply", Reply: resp}
		if err != nil {
			msg = wsOutbound{Type: "error", Error: err.Error()}
		}
		select {
		case out <- msg:
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) wsWritePump(conn *websocket.Conn, sessionID string, diffs <-chan []byte, out <-chan wsOutbound, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	write := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			s.logger.Debug("websocket write failed", "session_id", sessionID, "err", err)
			return false
		}
		return true
	}

	for {
		select {
		case <-done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg := <-out:
			if !write(msg) {
				return
			}
		case raw, ok := <-diffs:
			if !ok {
				return
			}
			var diff domain.StateDiff
			if err := json.Unmarshal(raw, &diff); err != nil {
				continue
			}
			if !write(wsOutbound{Type: "diff", Diff: &diff}) {
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
