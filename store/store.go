// Package store is the transactional row store: three keyed in-memory
// tables (User, Group, Message) with equality indexes on the message
// receiver and sender, an all-or-nothing unit of work, and an optional
// BadgerDB backing for durability.
package store

import (
	"log/slog"
	"sync"
	"time"

	"chat-core/domain"

	"github.com/dgraph-io/badger/v4"
)

// Store owns every row exclusively. Rows go in and out by value; no
// caller ever holds a reference into the tables.
//
// Write serializes mutation procedures; reads see only committed state.
type Store struct {
	mu  sync.RWMutex
	log *slog.Logger
	db  *badger.DB // nil means memory only

	users    map[domain.Identity]domain.User
	groups   map[domain.GroupID]domain.Group
	messages map[domain.MessageID]domain.Message

	byReceiver map[domain.Receiver]map[domain.MessageID]struct{}
	bySender   map[domain.Identity]map[domain.MessageID]struct{}

	// Next ids to assign. Start at 1, strictly increasing, never reused
	// within a store lifetime, even across deletes.
	nextGroupID   domain.GroupID
	nextMessageID domain.MessageID
}

// New creates a store backed by db. Pass a nil db for a purely
// in-memory store; otherwise previously committed rows are loaded back.
func New(log *slog.Logger, db *badger.DB) (*Store, error) {
	s := &Store{
		log:           log,
		db:            db,
		users:         make(map[domain.Identity]domain.User),
		groups:        make(map[domain.GroupID]domain.Group),
		messages:      make(map[domain.MessageID]domain.Message),
		byReceiver:    make(map[domain.Receiver]map[domain.MessageID]struct{}),
		bySender:      make(map[domain.Identity]map[domain.MessageID]struct{}),
		nextGroupID:   1,
		nextMessageID: 1,
	}
	if db != nil {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Write runs fn against a fresh unit of work carrying the caller
// identity and a single timestamp for the whole procedure. If fn
// returns an error every staged change is discarded and the store is
// left untouched; otherwise the overlay is persisted and applied as one
// atomic step. Concurrent Writes are totally ordered.
func (s *Store) Write(caller domain.Identity, at time.Time, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTx(s, caller, at)
	if err := fn(tx); err != nil {
		return err
	}
	if err := s.persist(tx); err != nil {
		return err
	}
	s.apply(tx)
	return nil
}

// apply merges a validated overlay into the base tables.
func (s *Store) apply(tx *Tx) {
	for identity, user := range tx.users {
		s.users[identity] = user
	}
	for id, group := range tx.groups {
		if group == nil {
			delete(s.groups, id)
			continue
		}
		s.groups[id] = *group
	}
	for id, msg := range tx.messages {
		old, existed := s.messages[id]
		if existed {
			s.unindex(old)
		}
		if msg == nil {
			delete(s.messages, id)
			continue
		}
		s.messages[id] = *msg
		s.index(*msg)
	}
	s.nextGroupID = tx.nextGroupID
	s.nextMessageID = tx.nextMessageID
}

func (s *Store) index(m domain.Message) {
	if s.byReceiver[m.Receiver] == nil {
		s.byReceiver[m.Receiver] = make(map[domain.MessageID]struct{})
	}
	s.byReceiver[m.Receiver][m.ID] = struct{}{}
	if s.bySender[m.Sender] == nil {
		s.bySender[m.Sender] = make(map[domain.MessageID]struct{})
	}
	s.bySender[m.Sender][m.ID] = struct{}{}
}

func (s *Store) unindex(m domain.Message) {
	if ids, ok := s.byReceiver[m.Receiver]; ok {
		delete(ids, m.ID)
		if len(ids) == 0 {
			delete(s.byReceiver, m.Receiver)
		}
	}
	if ids, ok := s.bySender[m.Sender]; ok {
		delete(ids, m.ID)
		if len(ids) == 0 {
			delete(s.bySender, m.Sender)
		}
	}
}

// Unlocked lookups, shared by the public accessors and by Tx reads that
// already run under the write lock.

func (s *Store) findUser(identity domain.Identity) (domain.User, bool) {
	user, ok := s.users[identity]
	if !ok {
		return domain.User{}, false
	}
	return user.Clone(), true
}

func (s *Store) findGroup(id domain.GroupID) (domain.Group, bool) {
	group, ok := s.groups[id]
	if !ok {
		return domain.Group{}, false
	}
	return group.Clone(), true
}

func (s *Store) findMessage(id domain.MessageID) (domain.Message, bool) {
	msg, ok := s.messages[id]
	if !ok {
		return domain.Message{}, false
	}
	return msg.Clone(), true
}

func (s *Store) messagesByReceiver(r domain.Receiver) []domain.Message {
	var out []domain.Message
	for id := range s.byReceiver[r] {
		out = append(out, s.messages[id].Clone())
	}
	return out
}

func (s *Store) messagesBySender(identity domain.Identity) []domain.Message {
	var out []domain.Message
	for id := range s.bySender[identity] {
		out = append(out, s.messages[id].Clone())
	}
	return out
}

// FindUser returns a detached copy of the user row.
func (s *Store) FindUser(identity domain.Identity) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findUser(identity)
}

// FindGroup returns a detached copy of the group row.
func (s *Store) FindGroup(id domain.GroupID) (domain.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findGroup(id)
}

// FindMessage returns a detached copy of the message row.
func (s *Store) FindMessage(id domain.MessageID) (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findMessage(id)
}

// MessagesByReceiver returns every message addressed to the receiver,
// via the equality index.
func (s *Store) MessagesByReceiver(r domain.Receiver) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messagesByReceiver(r)
}

// MessagesBySender returns every message the identity sent, via the
// equality index.
func (s *Store) MessagesBySender(identity domain.Identity) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messagesBySender(identity)
}

// Users returns detached copies of every user row.
func (s *Store) Users() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	return out
}

// Groups returns detached copies of every group row.
func (s *Store) Groups() []domain.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g.Clone())
	}
	return out
}

// Messages returns detached copies of every message row.
func (s *Store) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, m.Clone())
	}
	return out
}
