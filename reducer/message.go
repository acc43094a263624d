package reducer

import (
	"fmt"

	"chat-core/domain"
	"chat-core/errors"
	"chat-core/store"

	"github.com/abadojack/whatlanggo"
)

type bodyArgs struct {
	Body string `validate:"max=65535"`
}

// SendMessage validates the body length first, then the receiver, and
// inserts the message with sender = caller and both timestamps set to
// the procedure timestamp. The receiver is only checked at creation
// time; it is never re-validated afterwards.
func (e *Engine) SendMessage(caller domain.Identity, receiver domain.Receiver, body string) error {
	return e.write(caller, func(tx *store.Tx) error {
		if err := checkBody(body); err != nil {
			return err
		}

		switch r := receiver.(type) {
		case domain.ToUser:
			if _, ok := tx.FindUser(r.Identity); !ok {
				return fmt.Errorf("cannot send message to unknown user: %w", errors.ErrNotFound)
			}
		case domain.ToGroup:
			if _, ok := tx.FindGroup(r.ID); !ok {
				return fmt.Errorf("cannot send message to unknown group %d: %w", r.ID, errors.ErrNotFound)
			}
		default:
			return fmt.Errorf("message has no receiver: %w", errors.ErrValidationFailed)
		}

		id := tx.InsertMessage(domain.Message{
			Receiver:  receiver,
			Sender:    caller,
			Body:      e.moderate(body),
			CreatedAt: tx.At,
			UpdatedAt: tx.At,
		})

		info := whatlanggo.Detect(body)
		e.log.Debug("Message stored",
			"id", id, "sender", caller, "lang", info.Lang.String())
		return nil
	})
}

// UpdateMessage replaces the body and bumps UpdatedAt. Id, sender and
// CreatedAt are immutable, and only the sender may edit.
func (e *Engine) UpdateMessage(caller domain.Identity, id domain.MessageID, body string) error {
	return e.write(caller, func(tx *store.Tx) error {
		if err := checkBody(body); err != nil {
			return err
		}
		msg, ok := tx.FindMessage(id)
		if !ok {
			return fmt.Errorf("cannot update unknown message %d: %w", id, errors.ErrNotFound)
		}
		if msg.Sender != caller {
			return fmt.Errorf("cannot update message %d sent by another: %w", id, errors.ErrUnauthorized)
		}

		msg.Body = e.moderate(body)
		msg.UpdatedAt = tx.At
		tx.PutMessage(msg)
		return nil
	})
}

// DeleteMessage removes the row. Only the sender may delete.
func (e *Engine) DeleteMessage(caller domain.Identity, id domain.MessageID) error {
	return e.write(caller, func(tx *store.Tx) error {
		msg, ok := tx.FindMessage(id)
		if !ok {
			return fmt.Errorf("cannot delete unknown message %d: %w", id, errors.ErrNotFound)
		}
		if msg.Sender != caller {
			return fmt.Errorf("cannot delete message %d sent by another: %w", id, errors.ErrUnauthorized)
		}
		tx.DeleteMessage(id)
		return nil
	})
}

func (e *Engine) moderate(body string) string {
	if e.moderator == nil {
		return body
	}
	return e.moderator.Censor(body)
}

func checkBody(body string) error {
	if err := validate.Struct(bodyArgs{Body: body}); err != nil {
		return fmt.Errorf("message over the %d character limit: %w", domain.MaxMessageChars, errors.ErrValidationFailed)
	}
	return nil
}
