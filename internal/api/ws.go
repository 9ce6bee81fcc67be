package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/crewhub/workspace/internal/log"
	"github.com/crewhub/workspace/internal/schemas"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// eventBus fans session activity out to websocket subscribers. New
// subscribers get a replay of everything published so far.
type eventBus struct {
	mu      sync.RWMutex
	history []schemas.Event
	subs    map[chan schemas.Event]struct{}
	closed  bool
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[chan schemas.Event]struct{})}
}

func (b *eventBus) publish(event schemas.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.history = append(b.history, event)
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			// slow consumer, it will catch up from history on reconnect
		}
	}
}

func (b *eventBus) subscribe() ([]schemas.Event, chan schemas.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	replay := make([]schemas.Event, len(b.history))
	copy(replay, b.history)
	if b.closed {
		return replay, nil
	}
	sub := make(chan schemas.Event, 64)
	b.subs[sub] = struct{}{}
	return replay, sub
}

func (b *eventBus) unsubscribe(sub chan schemas.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub)
	}
}

func (b *eventBus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub)
	}
}

func (s *Server) eventsWsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error(r.Context(), "Failed to upgrade connection", "err", err)
		return
	}
	go s.streamEvents(conn)
}

func (s *Server) streamEvents(conn *websocket.Conn) {
	defer func() {
		_ = conn.WriteMessage(websocket.CloseMessage, nil)
		_ = conn.Close()
	}()

	replay, sub := s.events.subscribe()
	if sub != nil {
		defer s.events.unsubscribe(sub)
	}
	for _, event := range replay {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
	if sub == nil {
		return
	}
	for event := range sub {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}
