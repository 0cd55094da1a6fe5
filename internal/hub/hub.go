package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/safiridev/bus-tracking/internal/metrics"
	"github.com/safiridev/bus-tracking/internal/models"
)

const (
	// writeWait bounds how long a single frame write may block.
	writeWait = 10 * time.Second
	// sendBuffer is the per-observer queue; a full queue drops events for
	// that observer only (best-effort delivery, no backlog).
	sendBuffer = 64
)

// Conn is the subset of *websocket.Conn the hub needs, extracted so tests can
// substitute an in-memory connection.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Hub fans change events out to all connected observers. One producer (the
// simulation engine), many consumers.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// Subscriber is a single connected observer. Each subscriber owns a buffered
// send queue drained by its own writer goroutine, which preserves the order
// events were published for that observer.
type Subscriber struct {
	hub  *Hub
	conn Conn
	send chan []byte
	once sync.Once
}

// Subscribe registers a connection and starts its writer. The snapshot is
// queued before the subscriber becomes visible to Publish, so an observer
// always sees the full snapshot before any incremental event.
func (h *Hub) Subscribe(conn Conn, snapshot []byte) *Subscriber {
	s := &Subscriber{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	s.send <- snapshot

	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	metrics.ConnectedObservers.Set(float64(n))

	go s.writeLoop()
	return s
}

// Publish delivers an update to every connected observer. Delivery is
// best-effort: observers whose queues are full miss this event.
func (h *Hub) Publish(ev models.BusUpdate) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Error("Failed to marshal bus update")
		return
	}

	h.mu.Lock()
	for s := range h.subs {
		select {
		case s.send <- data:
		default:
			log.WithField("bus_number", ev.Number).Warn("Observer queue full, dropping event")
		}
	}
	h.mu.Unlock()
}

// Count returns the number of connected observers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close removes the subscriber and closes its connection. Safe to call more
// than once.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		n := len(s.hub.subs)
		s.hub.mu.Unlock()
		metrics.ConnectedObservers.Set(float64(n))

		close(s.send)
		s.conn.Close()
	})
}

func (s *Subscriber) writeLoop() {
	for data := range s.send {
		if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			s.Close()
			return
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.WithError(err).Debug("Observer write failed, disconnecting")
			s.Close()
			return
		}
	}
}
