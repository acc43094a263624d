package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"chat-core/domain"

	"github.com/dgraph-io/badger/v4"
)

// Badger key layout:
//
//	user:<identity>     JSON diskUser
//	group:<20-digit id> JSON diskGroup
//	msg:<20-digit id>   JSON diskMessage
//	seq:group, seq:msg  next id to assign, decimal
//
// The 19+ digit zero padding keeps keys in id order under badger's
// lexicographic iteration.
const (
	userPrefix  = "user:"
	groupPrefix = "group:"
	msgPrefix   = "msg:"
	seqGroupKey = "seq:group"
	seqMsgKey   = "seq:msg"
)

func groupKey(id domain.GroupID) []byte {
	return []byte(fmt.Sprintf("%s%020d", groupPrefix, id))
}

func msgKey(id domain.MessageID) []byte {
	return []byte(fmt.Sprintf("%s%020d", msgPrefix, id))
}

const (
	statusOnline  = "online"
	statusOffline = "offline"
	statusOnCall  = "on_call"

	receiverUser  = "user"
	receiverGroup = "group"
)

type diskUser struct {
	Identity  string     `json:"identity"`
	Status    string     `json:"status"`
	OfflineAt *time.Time `json:"offline_at,omitempty"`
	Username  *string    `json:"username,omitempty"`
	Avatar    []byte     `json:"avatar,omitempty"`
	Groups    []uint64   `json:"groups"`
}

type diskGroup struct {
	ID     uint64   `json:"id"`
	Owner  string   `json:"owner"`
	Name   *string  `json:"name,omitempty"`
	Avatar []byte   `json:"avatar,omitempty"`
	Users  []string `json:"users"`
}

type diskMessage struct {
	ID            uint64    `json:"id"`
	ReceiverKind  string    `json:"receiver_kind"`
	ReceiverUser  string    `json:"receiver_user,omitempty"`
	ReceiverGroup uint64    `json:"receiver_group,omitempty"`
	Sender        string    `json:"sender"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func fromUser(u domain.User) diskUser {
	d := diskUser{
		Identity: string(u.Identity),
		Username: u.Username,
		Avatar:   u.Avatar,
		Groups:   make([]uint64, 0, len(u.Groups)),
	}
	for _, id := range u.Groups {
		d.Groups = append(d.Groups, uint64(id))
	}
	switch status := u.Status.(type) {
	case domain.Offline:
		at := status.At
		d.Status, d.OfflineAt = statusOffline, &at
	case domain.OnCall:
		d.Status = statusOnCall
	default:
		d.Status = statusOnline
	}
	return d
}

func toUser(d diskUser) domain.User {
	u := domain.User{
		Identity: domain.Identity(d.Identity),
		Username: d.Username,
		Avatar:   d.Avatar,
		Groups:   make([]domain.GroupID, 0, len(d.Groups)),
	}
	for _, id := range d.Groups {
		u.Groups = append(u.Groups, domain.GroupID(id))
	}
	switch d.Status {
	case statusOffline:
		var at time.Time
		if d.OfflineAt != nil {
			at = *d.OfflineAt
		}
		u.Status = domain.Offline{At: at}
	case statusOnCall:
		u.Status = domain.OnCall{}
	default:
		u.Status = domain.Online{}
	}
	return u
}

func fromGroup(g domain.Group) diskGroup {
	d := diskGroup{
		ID:     uint64(g.ID),
		Owner:  string(g.Owner),
		Name:   g.Name,
		Avatar: g.Avatar,
		Users:  make([]string, 0, len(g.Users)),
	}
	for _, identity := range g.Users {
		d.Users = append(d.Users, string(identity))
	}
	return d
}

func toGroup(d diskGroup) domain.Group {
	g := domain.Group{
		ID:     domain.GroupID(d.ID),
		Owner:  domain.Identity(d.Owner),
		Name:   d.Name,
		Avatar: d.Avatar,
		Users:  make([]domain.Identity, 0, len(d.Users)),
	}
	for _, identity := range d.Users {
		g.Users = append(g.Users, domain.Identity(identity))
	}
	return g
}

func fromMessage(m domain.Message) diskMessage {
	d := diskMessage{
		ID:        uint64(m.ID),
		Sender:    string(m.Sender),
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	switch receiver := m.Receiver.(type) {
	case domain.ToUser:
		d.ReceiverKind, d.ReceiverUser = receiverUser, string(receiver.Identity)
	case domain.ToGroup:
		d.ReceiverKind, d.ReceiverGroup = receiverGroup, uint64(receiver.ID)
	}
	return d
}

func toMessage(d diskMessage) domain.Message {
	m := domain.Message{
		ID:        domain.MessageID(d.ID),
		Sender:    domain.Identity(d.Sender),
		Body:      d.Body,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	switch d.ReceiverKind {
	case receiverGroup:
		m.Receiver = domain.ToGroup{ID: domain.GroupID(d.ReceiverGroup)}
	default:
		m.Receiver = domain.ToUser{Identity: domain.Identity(d.ReceiverUser)}
	}
	return m
}

// persist writes the overlay to badger in a single transaction. A nil
// db makes this a no-op. Persisting before apply means a badger failure
// rolls the procedure back like any validation error.
func (s *Store) persist(tx *Tx) error {
	if s.db == nil {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for identity, user := range tx.users {
			data, err := json.Marshal(fromUser(user))
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(userPrefix+string(identity)), data); err != nil {
				return err
			}
		}
		for id, group := range tx.groups {
			if group == nil {
				if err := txn.Delete(groupKey(id)); err != nil {
					return err
				}
				continue
			}
			data, err := json.Marshal(fromGroup(*group))
			if err != nil {
				return err
			}
			if err := txn.Set(groupKey(id), data); err != nil {
				return err
			}
		}
		for id, msg := range tx.messages {
			if msg == nil {
				if err := txn.Delete(msgKey(id)); err != nil {
					return err
				}
				continue
			}
			data, err := json.Marshal(fromMessage(*msg))
			if err != nil {
				return err
			}
			if err := txn.Set(msgKey(id), data); err != nil {
				return err
			}
		}
		if tx.nextGroupID != s.nextGroupID {
			if err := txn.Set([]byte(seqGroupKey), []byte(strconv.FormatUint(uint64(tx.nextGroupID), 10))); err != nil {
				return err
			}
		}
		if tx.nextMessageID != s.nextMessageID {
			if err := txn.Set([]byte(seqMsgKey), []byte(strconv.FormatUint(uint64(tx.nextMessageID), 10))); err != nil {
				return err
			}
		}
		return nil
	})
}

// load rebuilds the in-memory tables and indexes from badger.
func (s *Store) load() error {
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(value []byte) error {
				switch {
				case len(key) > len(userPrefix) && key[:len(userPrefix)] == userPrefix:
					var d diskUser
					if err := json.Unmarshal(value, &d); err != nil {
						return fmt.Errorf("user row %q: %w", key, err)
					}
					user := toUser(d)
					s.users[user.Identity] = user
				case len(key) > len(groupPrefix) && key[:len(groupPrefix)] == groupPrefix:
					var d diskGroup
					if err := json.Unmarshal(value, &d); err != nil {
						return fmt.Errorf("group row %q: %w", key, err)
					}
					group := toGroup(d)
					s.groups[group.ID] = group
				case len(key) > len(msgPrefix) && key[:len(msgPrefix)] == msgPrefix:
					var d diskMessage
					if err := json.Unmarshal(value, &d); err != nil {
						return fmt.Errorf("message row %q: %w", key, err)
					}
					msg := toMessage(d)
					s.messages[msg.ID] = msg
					s.index(msg)
				case key == seqGroupKey:
					next, err := strconv.ParseUint(string(value), 10, 64)
					if err != nil {
						return fmt.Errorf("group sequence: %w", err)
					}
					s.nextGroupID = domain.GroupID(next)
				case key == seqMsgKey:
					next, err := strconv.ParseUint(string(value), 10, 64)
					if err != nil {
						return fmt.Errorf("message sequence: %w", err)
					}
					s.nextMessageID = domain.MessageID(next)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("Store loaded from disk",
		"users", len(s.users), "groups", len(s.groups), "messages", len(s.messages))
	return nil
}
