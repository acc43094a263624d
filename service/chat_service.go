//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
// Package service is the facade the platform adapters call: every named
// mutation procedure plus view subscription, behind one interface.
package service

import (
	"chat-core/contract"
	"chat-core/domain"
	"chat-core/reducer"
	"chat-core/views"
)

type IChatService interface {
	// Lifecycle hooks, invoked by the session layer only.
	IdentityConnected(identity domain.Identity) error
	IdentityDisconnected(identity domain.Identity) error

	SetUserUsername(caller domain.Identity, name *string) error
	SetUserAvatar(caller domain.Identity, avatar []byte) error

	CreateGroup(caller domain.Identity, name *string, avatar []byte, members []domain.Identity) error
	DeleteGroup(caller domain.Identity, groupID domain.GroupID) error
	AddGroupUsers(caller domain.Identity, groupID domain.GroupID, identities []domain.Identity) error
	RemoveGroupUsers(caller domain.Identity, groupID domain.GroupID, identities []domain.Identity) error
	SetGroupOwner(caller domain.Identity, groupID domain.GroupID, newOwner domain.Identity) error
	SetGroupName(caller domain.Identity, groupID domain.GroupID, name *string) error
	SetGroupAvatar(caller domain.Identity, groupID domain.GroupID, avatar []byte) error

	SendMessage(caller domain.Identity, receiver domain.Receiver, body string) error
	UpdateMessage(caller domain.Identity, id domain.MessageID, body string) error
	DeleteMessage(caller domain.Identity, id domain.MessageID) error

	// Caller-scoped reads, same row sets the deltas are diffed against.
	Groups(caller domain.Identity) []domain.Group
	Messages(caller domain.Identity) []domain.Message

	Subscribe(sessionID string, caller domain.Identity, sink contract.DeltaSink) *views.Subscriber
	Unsubscribe(sessionID string)
}

type ChatService struct {
	*reducer.Engine
	views *views.Engine
}

func NewChatService(reducers *reducer.Engine, viewEngine *views.Engine) *ChatService {
	return &ChatService{Engine: reducers, views: viewEngine}
}

func (s *ChatService) Groups(caller domain.Identity) []domain.Group {
	return s.views.Groups(caller)
}

func (s *ChatService) Messages(caller domain.Identity) []domain.Message {
	return s.views.Messages(caller)
}

func (s *ChatService) Subscribe(sessionID string, caller domain.Identity, sink contract.DeltaSink) *views.Subscriber {
	return s.views.Subscribe(sessionID, caller, sink)
}

func (s *ChatService) Unsubscribe(sessionID string) {
	s.views.Unsubscribe(sessionID)
}
