package views

import (
	"log/slog"
	"sync"
)

// Registry tracks the sessions subscribed to the views. One identity
// may hold several concurrent sessions; each gets its own subscriber
// and delta stream.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	sessions map[string]*Subscriber
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		sessions: make(map[string]*Subscriber),
	}
}

func (r *Registry) add(sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sub.SessionID] = sub
}

// Unsubscribe removes a session and closes its delta stream.
func (r *Registry) Unsubscribe(sessionID string) {
	r.mu.Lock()
	sub, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if ok {
		sub.close()
	}
}

// Subscribers returns a snapshot of the current sessions.
func (r *Registry) Subscribers() []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Subscriber, 0, len(r.sessions))
	for _, sub := range r.sessions {
		out = append(out, sub)
	}
	return out
}

// evict drops a session whose stream fell behind. The session layer is
// expected to resubscribe from a fresh snapshot.
func (r *Registry) evict(sub *Subscriber) {
	r.log.Warn("Delta stream full, evicting session",
		"session", sub.SessionID, "caller", sub.Caller)
	r.Unsubscribe(sub.SessionID)
}
