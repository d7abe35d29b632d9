package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kernowlab/triage/internal/metrics"
	"github.com/kernowlab/triage/internal/orchestrator"
)

const (
	// subscriberBuffer is the per-subscriber event queue. A subscriber
	// that falls this far behind starts losing events; the stream is
	// observational, the synchronous response is the source of truth.
	subscriberBuffer = 64

	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// hub fans investigation progress events out to connected WebSocket
// observers. It implements orchestrator.Observer; Notify never blocks
// the request path.
type hub struct {
	logger         *zap.Logger
	allowedOrigins []string

	mu          sync.RWMutex
	subscribers map[string]chan orchestrator.Event
	closed      bool
}

var _ orchestrator.Observer = (*hub)(nil)

func newHub(allowedOrigins []string, logger *zap.Logger) *hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &hub{
		logger:         logger,
		allowedOrigins: allowedOrigins,
		subscribers:    make(map[string]chan orchestrator.Event),
	}
}

// Notify implements orchestrator.Observer. Slow subscribers drop events
// rather than stall the investigation.
func (h *hub) Notify(ev orchestrator.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			h.logger.Debug("dropping event for slow subscriber",
				zap.String("subscriber", id),
				zap.String("type", string(ev.Type)))
		}
	}
}

func (h *hub) subscribe() (string, chan orchestrator.Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return "", nil, false
	}
	id := uuid.NewString()
	ch := make(chan orchestrator.Event, subscriberBuffer)
	h.subscribers[id] = ch
	return id, ch, true
}

func (h *hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
	}
}

// close disconnects every subscriber and refuses new ones.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}

// checkOrigin permits same-host browsers by default; explicit origins or
// "*" can be configured.
func (h *hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients
		return true
	}
	allowed := h.allowedOrigins
	if len(allowed) == 0 {
		allowed = []string{
			"http://localhost", "https://localhost",
			"http://127.0.0.1", "https://127.0.0.1",
		}
	}
	for _, a := range allowed {
		if a == "*" || origin == a || hasOriginPrefix(origin, a) {
			return true
		}
	}
	return false
}

// hasOriginPrefix matches "http://localhost:5173" against the allowed
// entry "http://localhost".
func hasOriginPrefix(origin, allowed string) bool {
	return len(origin) > len(allowed) && origin[:len(allowed)] == allowed && origin[len(allowed)] == ':'
}

// handleWebSocket upgrades the connection and streams investigation
// progress events until the client disconnects or the server stops.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.hub.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id, events, ok := s.hub.subscribe()
	if !ok {
		conn.Close()
		return
	}
	metrics.WebSocketConnections.Inc()
	s.logger.Info("websocket subscriber connected", zap.String("subscriber", id))

	defer func() {
		s.hub.unsubscribe(id)
		conn.Close()
		metrics.WebSocketConnections.Dec()
		s.logger.Info("websocket subscriber disconnected", zap.String("subscriber", id))
	}()

	// The stream is one-way; the reader only notices disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-s.ctx.Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
