package reducer

import (
	"bytes"
	"testing"
	"time"

	"chat-core/domain"
	"chat-core/errors"

	"github.com/stretchr/testify/require"
)

func TestIdentityConnected_Creates_A_Fresh_Online_Row(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)

	// When an unknown identity connects
	req.NoError(engine.IdentityConnected("alice"))

	// Then a bare online row exists
	user, ok := st.FindUser("alice")
	req.True(ok)
	req.Equal(domain.Online{}, user.Status)
	req.Nil(user.Username)
	req.Nil(user.Avatar)
	req.Empty(user.Groups)
}

func TestIdentityConnected_Brings_A_Known_User_Back_Online(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)
	connect(t, engine, "alice")

	name := "Alice"
	req.NoError(engine.SetUserUsername("alice", &name))
	req.NoError(engine.CreateGroup("alice", nil, nil, nil))
	req.NoError(engine.IdentityDisconnected("alice"))

	// When the same identity reconnects
	req.NoError(engine.IdentityConnected("alice"))

	// Then only the status changed; profile and memberships survive
	user, _ := st.FindUser("alice")
	req.Equal(domain.Online{}, user.Status)
	req.Equal(&name, user.Username)
	req.Equal([]domain.GroupID{1}, user.Groups)
}

func TestIdentityDisconnected_Records_The_Commit_Timestamp(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)
	connect(t, engine, "alice")

	at := time.Date(2026, 5, 17, 22, 0, 0, 0, time.UTC)
	engine.WithClock(func() time.Time { return at })

	req.NoError(engine.IdentityDisconnected("alice"))

	user, _ := st.FindUser("alice")
	req.Equal(domain.Offline{At: at}, user.Status)
}

func TestIdentityDisconnected_For_An_Unknown_Identity_Changes_Nothing(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)

	// A stale session close must not surface an error or create a row
	req.NoError(engine.IdentityDisconnected("ghost"))
	req.Empty(st.Users())
}

func TestSetUserUsername_Trims_And_Clears(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)
	connect(t, engine, "alice")

	padded := "  Alice  "
	req.NoError(engine.SetUserUsername("alice", &padded))
	user, _ := st.FindUser("alice")
	req.Equal("Alice", *user.Username)

	// A whitespace-only name stores as absent
	blank := "   "
	req.NoError(engine.SetUserUsername("alice", &blank))
	user, _ = st.FindUser("alice")
	req.Nil(user.Username)

	// Clearing an already absent name is a no-op, not an error
	req.NoError(engine.SetUserUsername("alice", nil))
	user, _ = st.FindUser("alice")
	req.Nil(user.Username)
}

func TestSetUserUsername_Requires_A_Known_User(t *testing.T) {
	req := require.New(t)
	engine, _ := newTestEngine(t)

	name := "Nobody"
	err := engine.SetUserUsername("ghost", &name)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestSetUserAvatar_Accepts_The_Exact_Byte_Limit(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)
	connect(t, engine, "alice")

	avatar := bytes.Repeat([]byte{0xAB}, domain.MaxAvatarBytes)
	req.NoError(engine.SetUserAvatar("alice", avatar))

	user, _ := st.FindUser("alice")
	req.Len(user.Avatar, domain.MaxAvatarBytes)
}

func TestSetUserAvatar_Rejects_One_Byte_Over_The_Limit(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)
	connect(t, engine, "alice")

	req.NoError(engine.SetUserAvatar("alice", []byte{0x01}))

	// When the payload is one byte too large
	err := engine.SetUserAvatar("alice", bytes.Repeat([]byte{0xAB}, domain.MaxAvatarBytes+1))
	req.ErrorIs(err, errors.ErrValidationFailed)

	// Then the previous avatar is untouched
	user, _ := st.FindUser("alice")
	req.Equal([]byte{0x01}, user.Avatar)
}

func TestSetUserAvatar_Nil_Clears_The_Avatar(t *testing.T) {
	req := require.New(t)
	engine, st := newTestEngine(t)
	connect(t, engine, "alice")

	req.NoError(engine.SetUserAvatar("alice", []byte{0x01, 0x02}))
	req.NoError(engine.SetUserAvatar("alice", nil))

	user, _ := st.FindUser("alice")
	req.Nil(user.Avatar)
}
