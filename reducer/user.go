package reducer

import (
	"fmt"

	"chat-core/domain"
	"chat-core/errors"
	"chat-core/store"

	"github.com/gabriel-vasile/mimetype"
)

type avatarArgs struct {
	Avatar []byte `validate:"omitempty,max=1000000"`
}

// IdentityConnected is the session-open lifecycle hook. It upserts the
// user row: known identities come back Online, unknown ones get a fresh
// row with no profile and no memberships. Not caller-invocable.
func (e *Engine) IdentityConnected(identity domain.Identity) error {
	return e.write(identity, func(tx *store.Tx) error {
		user, ok := tx.FindUser(identity)
		if !ok {
			user = domain.User{Identity: identity}
		}
		user.Status = domain.Online{}
		tx.PutUser(user)
		return nil
	})
}

// IdentityDisconnected is the session-close lifecycle hook. A
// disconnect for an untracked identity is a stale session: logged,
// never surfaced, no row change.
func (e *Engine) IdentityDisconnected(identity domain.Identity) error {
	return e.write(identity, func(tx *store.Tx) error {
		user, ok := tx.FindUser(identity)
		if !ok {
			e.log.Warn("Disconnect event for unknown identity", "identity", identity)
			return nil
		}
		user.Status = domain.Offline{At: tx.At}
		tx.PutUser(user)
		return nil
	})
}

// SetUserUsername stores the trimmed display name, or clears it when
// the result is empty.
func (e *Engine) SetUserUsername(caller domain.Identity, name *string) error {
	return e.write(caller, func(tx *store.Tx) error {
		user, ok := tx.FindUser(caller)
		if !ok {
			return fmt.Errorf("cannot set username for unknown user: %w", errors.ErrNotFound)
		}
		user.Username = trimName(name)
		tx.PutUser(user)
		return nil
	})
}

// SetUserAvatar stores the avatar blob, or clears it when nil. Payloads
// over the 1MB cap are rejected before the row is touched.
func (e *Engine) SetUserAvatar(caller domain.Identity, avatar []byte) error {
	return e.write(caller, func(tx *store.Tx) error {
		user, ok := tx.FindUser(caller)
		if !ok {
			return fmt.Errorf("cannot set avatar for unknown user: %w", errors.ErrNotFound)
		}
		if err := checkAvatar(avatar); err != nil {
			return err
		}
		if avatar != nil {
			e.log.Debug("User avatar updated",
				"identity", caller, "bytes", len(avatar), "mime", mimetype.Detect(avatar).String())
		}
		user.Avatar = avatar
		tx.PutUser(user)
		return nil
	})
}

func checkAvatar(avatar []byte) error {
	if err := validate.Struct(avatarArgs{Avatar: avatar}); err != nil {
		return fmt.Errorf("avatar over the %d byte limit: %w", domain.MaxAvatarBytes, errors.ErrValidationFailed)
	}
	return nil
}
