package reducer

import (
	"fmt"

	"chat-core/domain"
	"chat-core/errors"
	"chat-core/store"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
)

type batchArgs struct {
	Identities []domain.Identity `validate:"max=1000"`
}

// CreateGroup inserts a group owned by the caller with the caller as
// sole initial member, then applies the name, avatar and member batch
// through the same steps as the standalone procedures. Any failure in a
// sub-step discards the group as well.
func (e *Engine) CreateGroup(caller domain.Identity, name *string, avatar []byte, members []domain.Identity) error {
	return e.write(caller, func(tx *store.Tx) error {
		user, ok := tx.FindUser(caller)
		if !ok {
			return fmt.Errorf("cannot create group for unknown user: %w", errors.ErrNotFound)
		}

		group := domain.Group{Owner: caller}
		group.ID = tx.InsertGroup(group)
		link(&user, &group)
		tx.PutUser(user)
		tx.PutGroup(group)

		if err := e.setGroupName(tx, group.ID, name); err != nil {
			return err
		}
		if err := e.setGroupAvatar(tx, group.ID, avatar); err != nil {
			return err
		}
		return e.addGroupUsers(tx, group.ID, members)
	})
}

// DeleteGroup retracts the membership from every remaining member, then
// deletes the group row. Only the owner may delete a group.
func (e *Engine) DeleteGroup(caller domain.Identity, groupID domain.GroupID) error {
	return e.write(caller, func(tx *store.Tx) error {
		group, ok := tx.FindGroup(groupID)
		if !ok {
			return fmt.Errorf("cannot delete unknown group %d: %w", groupID, errors.ErrNotFound)
		}
		if group.Owner != caller {
			return fmt.Errorf("cannot delete group %d owned by another: %w", groupID, errors.ErrUnauthorized)
		}

		for _, identity := range group.Users {
			member, found := tx.FindUser(identity)
			if !found {
				// A member row that vanished is skippable; the group is
				// going away regardless.
				continue
			}
			unlink(&member, &group)
			tx.PutUser(member)
		}
		tx.DeleteGroup(groupID)
		return nil
	})
}

// AddGroupUsers links every identity that resolves to a known user into
// the group. Unknown identities are skipped, not an error; the batch is
// capped at 1,000.
func (e *Engine) AddGroupUsers(caller domain.Identity, groupID domain.GroupID, identities []domain.Identity) error {
	return e.write(caller, func(tx *store.Tx) error {
		return e.addGroupUsers(tx, groupID, identities)
	})
}

func (e *Engine) addGroupUsers(tx *store.Tx, groupID domain.GroupID, identities []domain.Identity) error {
	if err := checkBatch(identities); err != nil {
		return err
	}
	group, ok := tx.FindGroup(groupID)
	if !ok {
		return fmt.Errorf("cannot add users to unknown group %d: %w", groupID, errors.ErrNotFound)
	}

	skipped := 0
	for _, identity := range lo.Uniq(identities) {
		user, found := tx.FindUser(identity)
		if !found {
			skipped++
			continue
		}
		link(&user, &group)
		tx.PutUser(user)
	}
	tx.PutGroup(group)

	if skipped > 0 {
		e.log.Debug("Skipped unknown identities in add batch", "group", groupID, "skipped", skipped)
	}
	return nil
}

// RemoveGroupUsers is the mirror of AddGroupUsers, with one exception:
// the current owner is never removed, even when explicitly listed.
func (e *Engine) RemoveGroupUsers(caller domain.Identity, groupID domain.GroupID, identities []domain.Identity) error {
	return e.write(caller, func(tx *store.Tx) error {
		if err := checkBatch(identities); err != nil {
			return err
		}
		group, ok := tx.FindGroup(groupID)
		if !ok {
			return fmt.Errorf("cannot remove users from unknown group %d: %w", groupID, errors.ErrNotFound)
		}

		for _, identity := range lo.Uniq(identities) {
			if identity == group.Owner {
				continue
			}
			user, found := tx.FindUser(identity)
			if !found {
				continue
			}
			unlink(&user, &group)
			tx.PutUser(user)
		}
		tx.PutGroup(group)
		return nil
	})
}

// SetGroupOwner transfers ownership. Only the current owner may do so,
// and the new owner must resolve to a known user.
func (e *Engine) SetGroupOwner(caller domain.Identity, groupID domain.GroupID, newOwner domain.Identity) error {
	return e.write(caller, func(tx *store.Tx) error {
		group, ok := tx.FindGroup(groupID)
		if !ok {
			return fmt.Errorf("cannot set owner of unknown group %d: %w", groupID, errors.ErrNotFound)
		}
		if _, found := tx.FindUser(newOwner); !found {
			return fmt.Errorf("cannot transfer group %d to unknown user: %w", groupID, errors.ErrNotFound)
		}
		if group.Owner != caller {
			return fmt.Errorf("cannot transfer group %d owned by another: %w", groupID, errors.ErrUnauthorized)
		}
		group.Owner = newOwner
		tx.PutGroup(group)
		return nil
	})
}

// SetGroupName renames a known group. Same trimming rules as usernames.
// No membership check is applied.
func (e *Engine) SetGroupName(caller domain.Identity, groupID domain.GroupID, name *string) error {
	return e.write(caller, func(tx *store.Tx) error {
		return e.setGroupName(tx, groupID, name)
	})
}

func (e *Engine) setGroupName(tx *store.Tx, groupID domain.GroupID, name *string) error {
	group, ok := tx.FindGroup(groupID)
	if !ok {
		return fmt.Errorf("cannot rename unknown group %d: %w", groupID, errors.ErrNotFound)
	}
	group.Name = trimName(name)
	tx.PutGroup(group)
	return nil
}

// SetGroupAvatar stores or clears a known group's avatar. Same size cap
// as user avatars. No membership check is applied.
func (e *Engine) SetGroupAvatar(caller domain.Identity, groupID domain.GroupID, avatar []byte) error {
	return e.write(caller, func(tx *store.Tx) error {
		return e.setGroupAvatar(tx, groupID, avatar)
	})
}

func (e *Engine) setGroupAvatar(tx *store.Tx, groupID domain.GroupID, avatar []byte) error {
	group, ok := tx.FindGroup(groupID)
	if !ok {
		return fmt.Errorf("cannot set avatar of unknown group %d: %w", groupID, errors.ErrNotFound)
	}
	if err := checkAvatar(avatar); err != nil {
		return err
	}
	if avatar != nil {
		e.log.Debug("Group avatar updated",
			"group", groupID, "bytes", len(avatar), "mime", mimetype.Detect(avatar).String())
	}
	group.Avatar = avatar
	tx.PutGroup(group)
	return nil
}

func checkBatch(identities []domain.Identity) error {
	if err := validate.Struct(batchArgs{Identities: identities}); err != nil {
		return fmt.Errorf("batch over the %d identity limit: %w", domain.MaxBatchIdentities, errors.ErrValidationFailed)
	}
	return nil
}
