package reducer

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"chat-core/domain"
	"chat-core/errors"
	"chat-core/moderation"
	"chat-core/store"

	"github.com/stretchr/testify/require"
)

func TestSendMessage_To_A_User_Stamps_Both_Timestamps(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)
	connect(t, engine, "alice", "bob")

	at := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	engine.WithClock(func() time.Time { return at })

	req.NoError(engine.SendMessage("alice", domain.ToUser{Identity: "bob"}, "hi"))

	msg, ok := st.FindMessage(1)
	req.True(ok)
	req.Equal(domain.Identity("alice"), msg.Sender)
	req.Equal(domain.ToUser{Identity: "bob"}, msg.Receiver)
	req.Equal("hi", msg.Body)
	req.Equal(at, msg.CreatedAt)
	req.Equal(at, msg.UpdatedAt)
}

func TestSendMessage_To_A_Group_Does_Not_Require_Membership(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)
	connect(t, engine, "alice", "bob")
	req.NoError(engine.CreateGroup("alice", nil, nil, nil))

	// bob is not a member; only the receiver's existence is checked
	req.NoError(engine.SendMessage("bob", domain.ToGroup{ID: 1}, "knock knock"))

	req.Len(st.MessagesByReceiver(domain.ToGroup{ID: 1}), 1)
}

func TestSendMessage_Rejects_An_Unknown_Receiver(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)
	connect(t, engine, "alice")

	err := engine.SendMessage("alice", domain.ToUser{Identity: "ghost"}, "hello?")
	req.ErrorIs(err, errors.ErrNotFound)

	err = engine.SendMessage("alice", domain.ToGroup{ID: 42}, "hello?")
	req.ErrorIs(err, errors.ErrNotFound)

	req.Empty(st.Messages())
}

func TestSendMessage_Body_Limit_Counts_Runes(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)
	connect(t, engine, "alice", "bob")

	// Exactly at the limit passes, multi-byte runes included
	req.NoError(engine.SendMessage("alice", domain.ToUser{Identity: "bob"},
		strings.Repeat("é", domain.MaxMessageChars)))

	// One rune over fails and stores nothing
	err := engine.SendMessage("alice", domain.ToUser{Identity: "bob"},
		strings.Repeat("é", domain.MaxMessageChars+1))
	req.ErrorIs(err, errors.ErrValidationFailed)
	req.Len(st.Messages(), 1)
}

func TestUpdateMessage_Preserves_Identity_Sender_And_CreatedAt(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)
	connect(t, engine, "alice", "bob")

	created := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	engine.WithClock(func() time.Time { return created })
	req.NoError(engine.SendMessage("alice", domain.ToUser{Identity: "bob"}, "first"))

	// When the sender edits it at a later time
	edited := created.Add(time.Hour)
	engine.WithClock(func() time.Time { return edited })
	req.NoError(engine.UpdateMessage("alice", 1, "second"))

	msg, _ := st.FindMessage(1)
	req.Equal(domain.MessageID(1), msg.ID)
	req.Equal(domain.Identity("alice"), msg.Sender)
	req.Equal("second", msg.Body)
	req.Equal(created, msg.CreatedAt)
	req.Equal(edited, msg.UpdatedAt)
}

func TestUpdateMessage_Is_Sender_Only(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)
	connect(t, engine, "alice", "bob")
	req.NoError(engine.SendMessage("alice", domain.ToUser{Identity: "bob"}, "original"))

	err := engine.UpdateMessage("bob", 1, "hijacked")
	req.ErrorIs(err, errors.ErrUnauthorized)

	msg, _ := st.FindMessage(1)
	req.Equal("original", msg.Body)
}

func TestUpdateMessage_Unknown_Message_Is_NotFound(t *testing.T) {
	req := require.New(t)
	engine, _ := newTestEngine(t)
	connect(t, engine, "alice")

	err := engine.UpdateMessage("alice", 42, "nothing there")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestDeleteMessage_Is_Sender_Only(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)
	connect(t, engine, "alice", "bob")
	req.NoError(engine.SendMessage("alice", domain.ToUser{Identity: "bob"}, "ephemeral"))

	err := engine.DeleteMessage("bob", 1)
	req.ErrorIs(err, errors.ErrUnauthorized)

	req.NoError(engine.DeleteMessage("alice", 1))
	_, ok := st.FindMessage(1)
	req.False(ok)

	err = engine.DeleteMessage("alice", 1)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestSendMessage_Applies_Moderation_To_The_Stored_Body(t *testing.T) {
	req := require.New(t)
	st, err := store.New(slog.Default(), nil)
	req.NoError(err)
	moderator, err := moderation.New([]string{"duck"}, '*')
	req.NoError(err)
	engine := NewEngine(slog.Default(), st, nil, moderator)

	connect(t, engine, "alice", "bob")
	req.NoError(engine.SendMessage("alice", domain.ToUser{Identity: "bob"}, "what the duck"))

	msg, _ := st.FindMessage(1)
	req.Equal("what the ****", msg.Body)

	// Edits go through the same rewrite
	req.NoError(engine.UpdateMessage("alice", 1, "ducks everywhere"))
	msg, _ = st.FindMessage(1)
	req.Equal("****s everywhere", msg.Body)
}
