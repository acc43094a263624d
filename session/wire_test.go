package session

import (
	"testing"
	"time"

	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"

	"github.com/stretchr/testify/require"
)

func TestWireReceiver_ToDomain(t *testing.T) {
	req := require.New(t)

	receiver, err := (&wireReceiver{Kind: "user", Identity: "bob"}).toDomain()
	req.NoError(err)
	req.Equal(domain.ToUser{Identity: "bob"}, receiver)

	receiver, err = (&wireReceiver{Kind: "group", GroupID: 7}).toDomain()
	req.NoError(err)
	req.Equal(domain.ToGroup{ID: 7}, receiver)

	_, err = (&wireReceiver{Kind: "channel"}).toDomain()
	req.ErrorIs(err, errors.ErrValidationFailed)

	var missing *wireReceiver
	_, err = missing.toDomain()
	req.ErrorIs(err, errors.ErrValidationFailed)
}

func TestFromDelta_Builds_A_Groups_Frame(t *testing.T) {
	req := require.New(t)
	name := "general"

	frame := fromDelta(event.GroupsDelta{
		Added:   []domain.Group{{ID: 1, Owner: "alice", Name: &name, Users: []domain.Identity{"alice", "bob"}}},
		Removed: []domain.GroupID{2, 3},
	})

	req.Equal("groups", frame.View)
	req.Len(frame.Added, 1)
	group, ok := frame.Added[0].(wireGroup)
	req.True(ok)
	req.Equal(uint64(1), group.ID)
	req.Equal([]string{"alice", "bob"}, group.Users)
	req.Equal([]uint64{2, 3}, frame.Removed)
}

func TestFromDelta_Builds_A_Messages_Frame(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	frame := fromDelta(event.MessagesDelta{
		Updated: []domain.Message{{
			ID:        9,
			Receiver:  domain.ToGroup{ID: 4},
			Sender:    "alice",
			Body:      "edited",
			CreatedAt: at,
			UpdatedAt: at.Add(time.Minute),
		}},
	})

	req.Equal("messages", frame.View)
	req.Len(frame.Updated, 1)
	msg, ok := frame.Updated[0].(wireMessage)
	req.True(ok)
	req.Equal(wireReceiver{Kind: "group", GroupID: 4}, msg.Receiver)
	req.Equal("edited", msg.Body)
}
