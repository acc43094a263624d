// Package views is the reactive read layer: two caller-scoped queries
// (groups and messages) re-evaluated on every relevant commit, with the
// results shipped to subscribed sessions as row-set deltas.
//
// A full per-caller rescan and diff on each commit is deliberate at
// this scale; the diff step guarantees a caller never sees a row
// outside its entitlement and never misses one it is entitled to.
package views

import (
	"cmp"
	"log/slog"
	"slices"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/store"
)

type Engine struct {
	log        *slog.Logger
	store      *store.Store
	registry   *Registry
	bufferSize int
}

func NewEngine(log *slog.Logger, st *store.Store, registry *Registry, bufferSize int) *Engine {
	return &Engine{log: log, store: st, registry: registry, bufferSize: bufferSize}
}

// Groups returns every group the caller belongs to. This is the sole
// authorization boundary for group visibility: unknown callers and
// non-members get nothing.
func (e *Engine) Groups(caller domain.Identity) []domain.Group {
	user, ok := e.store.FindUser(caller)
	if !ok {
		return nil
	}

	var out []domain.Group
	for _, id := range user.Groups {
		if group, found := e.store.FindGroup(id); found {
			out = append(out, group)
		}
	}
	slices.SortFunc(out, func(a, b domain.Group) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Messages returns the union of three disjoint sets: traffic to the
// caller's groups from other senders, messages addressed to the caller,
// and everything the caller sent. The sender exclusion on the group
// branch keeps the caller's own group messages from appearing twice.
func (e *Engine) Messages(caller domain.Identity) []domain.Message {
	user, ok := e.store.FindUser(caller)
	if !ok {
		return nil
	}

	var out []domain.Message
	for _, id := range user.Groups {
		for _, msg := range e.store.MessagesByReceiver(domain.ToGroup{ID: id}) {
			if msg.Sender != caller {
				out = append(out, msg)
			}
		}
	}
	out = append(out, e.store.MessagesByReceiver(domain.ToUser{Identity: caller})...)
	out = append(out, e.store.MessagesBySender(caller)...)
	slices.SortFunc(out, func(a, b domain.Message) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Subscribe registers a session and queues the full current row sets as
// its first deltas. Returns the subscriber so the caller can run a
// delivery worker over its queue.
//
// Registration happens before the first snapshot: a commit racing with
// the subscription then reaches the session through Publish or through
// the snapshot diff, never through neither. The baseline diff keeps the
// overlap duplicate-free.
func (e *Engine) Subscribe(sessionID string, caller domain.Identity, sink contract.DeltaSink) *Subscriber {
	sub := newSubscriber(sessionID, caller, sink, e.bufferSize)
	e.registry.add(sub)

	if !sub.advanceGroups(e.Groups(caller)) || !sub.advanceMessages(e.Messages(caller)) {
		e.registry.evict(sub)
		return sub
	}
	e.log.Debug("Session subscribed", "session", sessionID, "caller", caller)
	return sub
}

// Unsubscribe drops a session and closes its stream.
func (e *Engine) Unsubscribe(sessionID string) {
	e.registry.Unsubscribe(sessionID)
}

// Publish re-evaluates both views for every subscribed session and
// queues the resulting deltas. The mutation engine calls this after
// each commit that touched user, group or message rows, before it
// starts the next procedure, so every queue observes commit order.
func (e *Engine) Publish() {
	for _, sub := range e.registry.Subscribers() {
		if !sub.advanceGroups(e.Groups(sub.Caller)) {
			e.registry.evict(sub)
			continue
		}
		if !sub.advanceMessages(e.Messages(sub.Caller)) {
			e.registry.evict(sub)
		}
	}
}
