// Package event defines the deltas shipped to view subscribers.
// A delta describes how one caller's view of a table changed after a
// single committed mutation; it never contains rows the caller is not
// entitled to see.
package event

import "chat-core/domain"

type Delta interface {
	isDelta()
}

// GroupsDelta is the change to a caller's groups() view.
type GroupsDelta struct {
	Added   []domain.Group
	Updated []domain.Group
	Removed []domain.GroupID
}

// MessagesDelta is the change to a caller's messages() view.
type MessagesDelta struct {
	Added   []domain.Message
	Updated []domain.Message
	Removed []domain.MessageID
}

func (GroupsDelta) isDelta()   {}
func (MessagesDelta) isDelta() {}

// Empty reports whether the delta carries no change at all.
func (d GroupsDelta) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

func (d MessagesDelta) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}
