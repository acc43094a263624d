package views

import (
	"bytes"
	"slices"
	"sync"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
)

// Subscriber is one session's live window onto the two views. It keeps
// the last row sets delivered to the session so each commit can be
// turned into a minimal delta, and an ordered queue the delivery worker
// drains into the sink.
type Subscriber struct {
	SessionID string
	Caller    domain.Identity
	Sink      contract.DeltaSink

	mu           sync.Mutex
	queue        chan event.Delta
	closed       bool
	lastGroups   map[domain.GroupID]domain.Group
	lastMessages map[domain.MessageID]domain.Message
}

func newSubscriber(sessionID string, caller domain.Identity, sink contract.DeltaSink, bufferSize int) *Subscriber {
	return &Subscriber{
		SessionID:    sessionID,
		Caller:       caller,
		Sink:         sink,
		queue:        make(chan event.Delta, bufferSize),
		lastGroups:   make(map[domain.GroupID]domain.Group),
		lastMessages: make(map[domain.MessageID]domain.Message),
	}
}

// Queue exposes the ordered delta stream for the delivery worker.
func (s *Subscriber) Queue() <-chan event.Delta {
	return s.queue
}

// enqueue appends a delta to the session's stream. Called with mu held.
// It reports false when the queue is full: the session can no longer
// keep commit order without blocking every other caller, so the
// registry evicts it. A closed stream swallows anything; the session is
// already going away.
func (s *Subscriber) enqueue(d event.Delta) bool {
	if s.closed {
		return true
	}
	select {
	case s.queue <- d:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
}

// advanceGroups diffs the current groups view against the last
// delivered one, updates the baseline and queues the resulting delta.
// Diff and enqueue are one step under the subscriber lock, so two
// publishers advancing the same session cannot reorder its stream.
// Reports false when the queue is full.
func (s *Subscriber) advanceGroups(current []domain.Group) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var delta event.GroupsDelta
	next := make(map[domain.GroupID]domain.Group, len(current))
	for _, group := range current {
		next[group.ID] = group
		previous, seen := s.lastGroups[group.ID]
		switch {
		case !seen:
			delta.Added = append(delta.Added, group)
		case !groupsEqual(previous, group):
			delta.Updated = append(delta.Updated, group)
		}
	}
	for id := range s.lastGroups {
		if _, still := next[id]; !still {
			delta.Removed = append(delta.Removed, id)
		}
	}
	s.lastGroups = next
	slices.Sort(delta.Removed)
	if delta.Empty() {
		return true
	}
	return s.enqueue(delta)
}

// advanceMessages is advanceGroups for the messages view.
func (s *Subscriber) advanceMessages(current []domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var delta event.MessagesDelta
	next := make(map[domain.MessageID]domain.Message, len(current))
	for _, msg := range current {
		next[msg.ID] = msg
		previous, seen := s.lastMessages[msg.ID]
		switch {
		case !seen:
			delta.Added = append(delta.Added, msg)
		case previous != msg:
			delta.Updated = append(delta.Updated, msg)
		}
	}
	for id := range s.lastMessages {
		if _, still := next[id]; !still {
			delta.Removed = append(delta.Removed, id)
		}
	}
	s.lastMessages = next
	slices.Sort(delta.Removed)
	if delta.Empty() {
		return true
	}
	return s.enqueue(delta)
}

func groupsEqual(a, b domain.Group) bool {
	if a.ID != b.ID || a.Owner != b.Owner {
		return false
	}
	if (a.Name == nil) != (b.Name == nil) || (a.Name != nil && *a.Name != *b.Name) {
		return false
	}
	return bytes.Equal(a.Avatar, b.Avatar) && slices.Equal(a.Users, b.Users)
}
