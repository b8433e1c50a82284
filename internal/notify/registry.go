// Package notify delivers engine events to connected operator sessions.
//
// A Registry is built once in main and handed to both the web layer, which
// registers a session per event stream, and the engine, which publishes
// through the core.Notifier port. Delivery is best effort: a session whose
// buffer is full misses the event rather than stalling the publisher.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/JonMunkholm/canvass/internal/core"
	"github.com/JonMunkholm/canvass/internal/logging"
)

// DefaultBuffer is the per-session queue size used when none is given.
const DefaultBuffer = 16

// ErrClosed is returned by Register once the registry has been closed.
var ErrClosed = errors.New("notification registry closed")

// Session is one connected operator.
type Session struct {
	ID     uuid.UUID
	Events <-chan core.Event

	ch      chan core.Event
	dropped int
}

// Registry tracks sessions and fans events out to them.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	buffer   int
	closed   bool
}

var _ core.Notifier = (*Registry)(nil)

// NewRegistry returns an empty registry. buffer <= 0 uses DefaultBuffer.
func NewRegistry(buffer int) *Registry {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		buffer:   buffer,
	}
}

// Register opens a session. The caller must Deregister it when done.
func (r *Registry) Register(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	ch := make(chan core.Event, r.buffer)
	s := &Session{ID: uuid.New(), Events: ch, ch: ch}
	r.sessions[s.ID] = s

	logging.FromContext(ctx).Debug("notify session registered", "session_id", s.ID, "sessions", len(r.sessions))
	return s, nil
}

// Deregister removes the session and closes its channel. Unknown ids are ignored.
func (r *Registry) Deregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	close(s.ch)

	if s.dropped > 0 {
		slog.Warn("notify session dropped events", "session_id", id, "dropped", s.dropped)
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Publish hands ev to every session without blocking.
func (r *Registry) Publish(ctx context.Context, ev core.Event) {
	// Write lock: dropped counters are mutated.
	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for _, s := range r.sessions {
		select {
		case s.ch <- ev:
			delivered++
		default:
			s.dropped++
		}
	}

	logging.FromContext(ctx).Debug("event published",
		"type", ev.Type,
		"leader_key", ev.LeaderKey,
		"delivered", delivered,
		"sessions", len(r.sessions),
	)
}

// Close deregisters every session and rejects new ones.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for id, s := range r.sessions {
		delete(r.sessions, id)
		close(s.ch)
	}
}
