package domain

import "time"

// MessageID is assigned by the store on insert: strictly increasing,
// starting at 1, never reused.
type MessageID uint64

// Limits enforced by the mutation engine before any row is touched.
const (
	MaxAvatarBytes     = 1_000_000
	MaxMessageChars    = 65_535
	MaxBatchIdentities = 1_000
)

// Receiver is the closed tagged destination of a message: exactly one
// of a user identity or a group id. Variants are comparable structs so
// a Receiver works directly as an equality index key.
type Receiver interface {
	isReceiver()
}

type ToUser struct {
	Identity Identity
}

type ToGroup struct {
	ID GroupID
}

func (ToUser) isReceiver()  {}
func (ToGroup) isReceiver() {}

// Message is addressed at creation time; a receiver that later vanishes
// does not invalidate the row. Only the sender may edit or delete it.
type Message struct {
	ID        MessageID
	Receiver  Receiver
	Sender    Identity
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy safe to hand out. All message fields are value
// types, so a shallow copy is already detached from the stored row.
func (m Message) Clone() Message {
	return m
}
