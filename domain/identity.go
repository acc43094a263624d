// Package domain contains the core entities of the chat system: users,
// groups, messages and the membership relation between them.
// No storage, runtime or transport logic should be added here.
package domain

import "time"

// Identity is the opaque principal identifier handed to the core by the
// authentication layer. It is stable per principal and never reissued.
type Identity string

// UserStatus is a closed sum: Online, Offline or OnCall.
// Each variant is a comparable struct so a status can be switched on
// and compared directly.
type UserStatus interface {
	isUserStatus()
}

type Online struct{}

type Offline struct {
	At time.Time
}

type OnCall struct{}

func (Online) isUserStatus()  {}
func (Offline) isUserStatus() {}
func (OnCall) isUserStatus()  {}
