package session

import (
	"fmt"
	"time"

	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"
)

// Client frame. Op selects the procedure; the other fields are read
// per-op. Avatar travels base64-encoded (encoding/json default for
// byte slices).
type request struct {
	ID uint64 `json:"id"`
	Op string `json:"op"`

	Name       *string       `json:"name,omitempty"`
	Avatar     []byte        `json:"avatar,omitempty"`
	GroupID    uint64        `json:"group_id,omitempty"`
	Identities []string      `json:"identities,omitempty"`
	NewOwner   string        `json:"new_owner,omitempty"`
	Receiver   *wireReceiver `json:"receiver,omitempty"`
	MessageID  uint64        `json:"message_id,omitempty"`
	Body       string        `json:"body,omitempty"`
}

const (
	opSetUserUsername  = "set_user_username"
	opSetUserAvatar    = "set_user_avatar"
	opCreateGroup      = "create_group"
	opDeleteGroup      = "delete_group"
	opAddGroupUsers    = "add_group_users"
	opRemoveGroupUsers = "remove_group_users"
	opSetGroupOwner    = "set_group_owner"
	opSetGroupName     = "set_group_name"
	opSetGroupAvatar   = "set_group_avatar"
	opSendMessage      = "send_message"
	opUpdateMessage    = "update_message"
	opDeleteMessage    = "delete_message"
)

// Server reply to one request.
type response struct {
	ID    uint64 `json:"id"`
	OK    bool   `json:"ok"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

type wireReceiver struct {
	Kind     string `json:"kind"` // "user" | "group"
	Identity string `json:"identity,omitempty"`
	GroupID  uint64 `json:"group_id,omitempty"`
}

func (w *wireReceiver) toDomain() (domain.Receiver, error) {
	if w == nil {
		return nil, fmt.Errorf("receiver missing: %w", errors.ErrValidationFailed)
	}
	switch w.Kind {
	case "user":
		return domain.ToUser{Identity: domain.Identity(w.Identity)}, nil
	case "group":
		return domain.ToGroup{ID: domain.GroupID(w.GroupID)}, nil
	default:
		return nil, fmt.Errorf("unknown receiver kind %q: %w", w.Kind, errors.ErrValidationFailed)
	}
}

func fromReceiver(r domain.Receiver) wireReceiver {
	switch receiver := r.(type) {
	case domain.ToGroup:
		return wireReceiver{Kind: "group", GroupID: uint64(receiver.ID)}
	case domain.ToUser:
		return wireReceiver{Kind: "user", Identity: string(receiver.Identity)}
	default:
		return wireReceiver{}
	}
}

// Delta frame pushed to the client whenever one of its views changed.
type deltaFrame struct {
	View    string        `json:"view"` // "groups" | "messages"
	Added   []interface{} `json:"added,omitempty"`
	Updated []interface{} `json:"updated,omitempty"`
	Removed []uint64      `json:"removed,omitempty"`
}

type wireGroup struct {
	ID     uint64   `json:"id"`
	Owner  string   `json:"owner"`
	Name   *string  `json:"name,omitempty"`
	Avatar []byte   `json:"avatar,omitempty"`
	Users  []string `json:"users"`
}

type wireMessage struct {
	ID        uint64       `json:"id"`
	Receiver  wireReceiver `json:"receiver"`
	Sender    string       `json:"sender"`
	Body      string       `json:"body"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func fromGroup(g domain.Group) wireGroup {
	users := make([]string, 0, len(g.Users))
	for _, identity := range g.Users {
		users = append(users, string(identity))
	}
	return wireGroup{
		ID:     uint64(g.ID),
		Owner:  string(g.Owner),
		Name:   g.Name,
		Avatar: g.Avatar,
		Users:  users,
	}
}

func fromMessage(m domain.Message) wireMessage {
	return wireMessage{
		ID:        uint64(m.ID),
		Receiver:  fromReceiver(m.Receiver),
		Sender:    string(m.Sender),
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func fromDelta(d event.Delta) deltaFrame {
	switch delta := d.(type) {
	case event.GroupsDelta:
		frame := deltaFrame{View: "groups"}
		for _, g := range delta.Added {
			frame.Added = append(frame.Added, fromGroup(g))
		}
		for _, g := range delta.Updated {
			frame.Updated = append(frame.Updated, fromGroup(g))
		}
		for _, id := range delta.Removed {
			frame.Removed = append(frame.Removed, uint64(id))
		}
		return frame
	case event.MessagesDelta:
		frame := deltaFrame{View: "messages"}
		for _, m := range delta.Added {
			frame.Added = append(frame.Added, fromMessage(m))
		}
		for _, m := range delta.Updated {
			frame.Updated = append(frame.Updated, fromMessage(m))
		}
		for _, id := range delta.Removed {
			frame.Removed = append(frame.Removed, uint64(id))
		}
		return frame
	default:
		return deltaFrame{}
	}
}

func toIdentities(raw []string) []domain.Identity {
	out := make([]domain.Identity, 0, len(raw))
	for _, identity := range raw {
		out = append(out, domain.Identity(identity))
	}
	return out
}
