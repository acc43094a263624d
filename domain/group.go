package domain

import "slices"

// GroupID is assigned by the store on insert: strictly increasing,
// starting at 1, never reused even after deletion.
type GroupID uint64

// Group invariants: creation always adds the owner as first member, but
// the owner may later leave; a group with no members is not deleted.
type Group struct {
	ID     GroupID
	Owner  Identity
	Name   *string
	Avatar []byte
	Users  []Identity
}

// HasMember reports whether the identity is currently in the member set.
func (g Group) HasMember(identity Identity) bool {
	return slices.Contains(g.Users, identity)
}

// Clone returns a deep copy so callers can never alias a stored row.
func (g Group) Clone() Group {
	g.Avatar = slices.Clone(g.Avatar)
	g.Users = slices.Clone(g.Users)
	if g.Name != nil {
		name := *g.Name
		g.Name = &name
	}
	return g
}
