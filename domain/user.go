package domain

import "slices"

// User is created on first connection and never deleted; only its
// status, profile fields and group set change afterwards.
type User struct {
	Identity Identity
	Status   UserStatus
	Username *string
	Avatar   []byte
	Groups   []GroupID
}

// DisplayName is the username when set, the raw identity otherwise.
func (u User) DisplayName() string {
	if u.Username != nil {
		return *u.Username
	}
	return string(u.Identity)
}

// MemberOf reports whether the user currently belongs to the group.
func (u User) MemberOf(id GroupID) bool {
	return slices.Contains(u.Groups, id)
}

// Clone returns a deep copy so callers can never alias a stored row.
func (u User) Clone() User {
	u.Avatar = slices.Clone(u.Avatar)
	u.Groups = slices.Clone(u.Groups)
	if u.Username != nil {
		name := *u.Username
		u.Username = &name
	}
	return u
}
