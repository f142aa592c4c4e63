package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
)

// Session event types sent on /v1/sessions/{id}/events.
const (
	eventSnapshot = "snapshot"
	eventUpdated  = "updated"
	eventDeleted  = "deleted"
)

const (
	eventBuffer       = 16
	eventWriteTimeout = 5 * time.Second
)

// sessionEvent is one message on a session's event stream.
type sessionEvent struct {
	Type    string           `json:"type"`
	Session *sessionResponse `json:"session,omitempty"`
}

// broker fans session events out to websocket subscribers in this process.
type broker struct {
	mu   sync.Mutex
	subs map[string]map[chan sessionEvent]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[string]map[chan sessionEvent]struct{})}
}

// subscribe registers a listener for id. The returned cancel function must be
// called once the listener is done.
func (b *broker) subscribe(id string) (<-chan sessionEvent, func()) {
	ch := make(chan sessionEvent, eventBuffer)

	b.mu.Lock()
	if b.subs[id] == nil {
		b.subs[id] = make(map[chan sessionEvent]struct{})
	}
	b.subs[id][ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id][ch]; ok {
			delete(b.subs[id], ch)
			close(ch)
		}
		if len(b.subs[id]) == 0 {
			delete(b.subs, id)
		}
	}
}

// publish delivers ev to every listener of id. A listener whose buffer is
// full misses the event; the next one carries the complete session again.
func (b *broker) publish(id string, ev sessionEvent) (dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[id] {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	return dropped
}

// close sends a final deleted event to the listeners of id and ends their
// streams. A listener with a full buffer loses its oldest pending update
// instead, so deleted is always the last event it reads.
func (b *broker) close(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	deleted := sessionEvent{Type: eventDeleted}
	for ch := range b.subs[id] {
		select {
		case ch <- deleted:
		default:
			// Publishers are held off by mu, so one receive frees a slot.
			select {
			case <-ch:
			default:
			}
			ch <- deleted
		}
		close(ch)
	}
	delete(b.subs, id)
}

func (b *broker) count(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[id])
}

func (s *Server) publish(resp sessionResponse) {
	if n := s.events.publish(resp.ID, sessionEvent{Type: eventUpdated, Session: &resp}); n > 0 {
		s.logger.Warn("slow event listeners missed an update", "session", resp.ID, "listeners", n)
	}
}

// handleSessionEvents streams a session's changes over a websocket: a
// snapshot first, then one event per mutation, then a deleted event.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	// Subscribe before reading the snapshot so no update falls between them.
	events, cancel := s.events.subscribe(chi.URLParam(r, "id"))
	defer cancel()

	sess, _, res, err := s.update(r, nil, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snapshot := newSessionResponse(sess, res)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "session", sess.ID, "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	// The stream is write-only; CloseRead handles control frames and cancels
	// ctx once the client goes away.
	ctx := conn.CloseRead(context.Background())

	if err := s.writeEvent(ctx, conn, sessionEvent{Type: eventSnapshot, Session: &snapshot}); err != nil {
		return
	}
	s.logger.Debug("event listener connected", "session", sess.ID)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closing:
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "session deleted")
				return
			}
			if err := s.writeEvent(ctx, conn, ev); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeEvent(ctx context.Context, conn *websocket.Conn, ev sessionEvent) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
