package store

import (
	"time"

	"chat-core/domain"
)

// Tx is one procedure's unit of work: the caller identity, a single
// timestamp for every row the procedure touches, and an overlay of
// staged changes. Reads see the overlay over the base tables; nothing
// reaches the base until the whole procedure succeeds.
//
// In the group/message overlays a nil entry marks a staged delete.
// Users are never deleted.
type Tx struct {
	store  *Store
	Caller domain.Identity
	At     time.Time

	users    map[domain.Identity]domain.User
	groups   map[domain.GroupID]*domain.Group
	messages map[domain.MessageID]*domain.Message

	nextGroupID   domain.GroupID
	nextMessageID domain.MessageID
}

func newTx(s *Store, caller domain.Identity, at time.Time) *Tx {
	return &Tx{
		store:         s,
		Caller:        caller,
		At:            at,
		users:         make(map[domain.Identity]domain.User),
		groups:        make(map[domain.GroupID]*domain.Group),
		messages:      make(map[domain.MessageID]*domain.Message),
		nextGroupID:   s.nextGroupID,
		nextMessageID: s.nextMessageID,
	}
}

// FindUser reads through the overlay and returns a detached copy.
func (tx *Tx) FindUser(identity domain.Identity) (domain.User, bool) {
	if user, ok := tx.users[identity]; ok {
		return user.Clone(), true
	}
	return tx.store.findUser(identity)
}

// PutUser stages an insert or a wholesale replace of the user row.
func (tx *Tx) PutUser(user domain.User) {
	tx.users[user.Identity] = user.Clone()
}

// FindGroup reads through the overlay and returns a detached copy.
func (tx *Tx) FindGroup(id domain.GroupID) (domain.Group, bool) {
	if group, ok := tx.groups[id]; ok {
		if group == nil {
			return domain.Group{}, false
		}
		return group.Clone(), true
	}
	return tx.store.findGroup(id)
}

// InsertGroup stages a new group row and assigns its id.
func (tx *Tx) InsertGroup(group domain.Group) domain.GroupID {
	group.ID = tx.nextGroupID
	tx.nextGroupID++
	staged := group.Clone()
	tx.groups[group.ID] = &staged
	return group.ID
}

// PutGroup stages a wholesale replace of an existing group row.
func (tx *Tx) PutGroup(group domain.Group) {
	staged := group.Clone()
	tx.groups[group.ID] = &staged
}

// DeleteGroup stages the removal of the group row.
func (tx *Tx) DeleteGroup(id domain.GroupID) {
	tx.groups[id] = nil
}

// FindMessage reads through the overlay and returns a detached copy.
func (tx *Tx) FindMessage(id domain.MessageID) (domain.Message, bool) {
	if msg, ok := tx.messages[id]; ok {
		if msg == nil {
			return domain.Message{}, false
		}
		return msg.Clone(), true
	}
	return tx.store.findMessage(id)
}

// InsertMessage stages a new message row and assigns its id.
func (tx *Tx) InsertMessage(msg domain.Message) domain.MessageID {
	msg.ID = tx.nextMessageID
	tx.nextMessageID++
	staged := msg.Clone()
	tx.messages[msg.ID] = &staged
	return msg.ID
}

// PutMessage stages a wholesale replace of an existing message row.
func (tx *Tx) PutMessage(msg domain.Message) {
	staged := msg.Clone()
	tx.messages[msg.ID] = &staged
}

// DeleteMessage stages the removal of the message row.
func (tx *Tx) DeleteMessage(id domain.MessageID) {
	tx.messages[id] = nil
}
