package session

import (
	"log/slog"
	"testing"

	"chat-core/reducer"
	"chat-core/service"
	"chat-core/store"
	"chat-core/views"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.New(slog.Default(), nil)
	require.NoError(t, err)

	registry := views.NewRegistry(slog.Default())
	viewEngine := views.NewEngine(slog.Default(), st, registry, 8)
	reducers := reducer.NewEngine(slog.Default(), st, viewEngine, nil)
	return NewServer(slog.Default(), service.NewChatService(reducers, viewEngine), nil, nil)
}

func TestDispatch_Routes_A_Frame_To_Its_Procedure(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	req.NoError(server.chat.IdentityConnected("alice"))

	name := "general"
	result := server.dispatch("alice", request{ID: 1, Op: opCreateGroup, Name: &name})
	req.True(result.OK)
	req.Equal(uint64(1), result.ID)

	groups := server.chat.Groups("alice")
	req.Len(groups, 1)
	req.Equal("general", *groups[0].Name)
}

func TestDispatch_Maps_Failures_To_Stable_Codes(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	req.NoError(server.chat.IdentityConnected("alice"))
	req.NoError(server.chat.IdentityConnected("bob"))
	req.NoError(server.chat.CreateGroup("alice", nil, nil, nil))

	cases := []struct {
		name string
		req  request
		code string
	}{
		{"unknown group", request{Op: opDeleteGroup, GroupID: 42}, "not_found"},
		{"foreign group", request{Op: opSetGroupOwner, GroupID: 1, NewOwner: "bob"}, "unauthorized"},
		{"missing receiver", request{Op: opSendMessage, Body: "hi"}, "validation_failed"},
		{"unknown op", request{Op: "frobnicate"}, "unknown_op"},
	}
	for _, tc := range cases {
		result := server.dispatch("bob", tc.req)
		req.False(result.OK, tc.name)
		req.Equal(tc.code, result.Code, tc.name)
		req.NotEmpty(result.Error, tc.name)
	}
}

func TestDispatch_Echoes_The_Request_Id(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	result := server.dispatch("ghost", request{ID: 77, Op: opDeleteMessage, MessageID: 1})
	req.Equal(uint64(77), result.ID)
	req.False(result.OK)
}
