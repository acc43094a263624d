// Package session is the platform adapter around the core: it
// authenticates a connection, hands the core a stable caller identity,
// forwards named mutation calls, and ships view deltas back. The core
// never sees the transport.
package session

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"sync"

	"chat-core/auth"
	"chat-core/domain"
	"chat-core/errors"
	"chat-core/runtime"
	"chat-core/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Server struct {
	log        *slog.Logger
	chat       service.IChatService
	tokens     *auth.Tokens
	supervisor *runtime.Supervisor
	upgrader   websocket.Upgrader
}

func NewServer(log *slog.Logger, chat service.IChatService, tokens *auth.Tokens, supervisor *runtime.Supervisor) *Server {
	return &Server{
		log:        log,
		chat:       chat,
		tokens:     tokens,
		supervisor: supervisor,
		upgrader:   websocket.Upgrader{},
	}
}

// Handler serves the websocket endpoint. The bearer token rides in the
// "token" query parameter.
func (s *Server) Handler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.tokens.Resolve(r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("Websocket upgrade failed", "error", err)
			return
		}

		go s.serve(ctx, conn, identity)
	})
}

// serve owns one session from lifecycle hook to lifecycle hook.
func (s *Server) serve(ctx context.Context, conn *websocket.Conn, identity domain.Identity) {
	sessionID := uuid.NewString()
	log := s.log.With("session", sessionID, "identity", identity)
	defer conn.Close()

	if err := s.chat.IdentityConnected(identity); err != nil {
		log.Error("Connect hook failed", "error", err)
		return
	}
	log.Info("Session opened")

	writeMu := &sync.Mutex{}
	sub := s.chat.Subscribe(sessionID, identity, &wsSink{conn: conn, writeMu: writeMu})
	s.supervisor.Start(ctx, runtime.NewDeliveryWorker(sub, s.log))

	defer func() {
		s.chat.Unsubscribe(sessionID)
		if err := s.chat.IdentityDisconnected(identity); err != nil {
			log.Error("Disconnect hook failed", "error", err)
		}
		log.Info("Session closed")
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("Session read failed", "error", err)
			}
			return
		}

		result := s.dispatch(identity, req)
		writeMu.Lock()
		err := conn.WriteJSON(result)
		writeMu.Unlock()
		if err != nil {
			log.Warn("Session write failed", "error", err)
			return
		}
	}
}

// dispatch maps one frame onto the named procedure it selects.
func (s *Server) dispatch(caller domain.Identity, req request) response {
	var err error
	switch req.Op {
	case opSetUserUsername:
		err = s.chat.SetUserUsername(caller, req.Name)
	case opSetUserAvatar:
		err = s.chat.SetUserAvatar(caller, req.Avatar)
	case opCreateGroup:
		err = s.chat.CreateGroup(caller, req.Name, req.Avatar, toIdentities(req.Identities))
	case opDeleteGroup:
		err = s.chat.DeleteGroup(caller, domain.GroupID(req.GroupID))
	case opAddGroupUsers:
		err = s.chat.AddGroupUsers(caller, domain.GroupID(req.GroupID), toIdentities(req.Identities))
	case opRemoveGroupUsers:
		err = s.chat.RemoveGroupUsers(caller, domain.GroupID(req.GroupID), toIdentities(req.Identities))
	case opSetGroupOwner:
		err = s.chat.SetGroupOwner(caller, domain.GroupID(req.GroupID), domain.Identity(req.NewOwner))
	case opSetGroupName:
		err = s.chat.SetGroupName(caller, domain.GroupID(req.GroupID), req.Name)
	case opSetGroupAvatar:
		err = s.chat.SetGroupAvatar(caller, domain.GroupID(req.GroupID), req.Avatar)
	case opSendMessage:
		var receiver domain.Receiver
		if receiver, err = req.Receiver.toDomain(); err == nil {
			err = s.chat.SendMessage(caller, receiver, req.Body)
		}
	case opUpdateMessage:
		err = s.chat.UpdateMessage(caller, domain.MessageID(req.MessageID), req.Body)
	case opDeleteMessage:
		err = s.chat.DeleteMessage(caller, domain.MessageID(req.MessageID))
	default:
		return response{ID: req.ID, Code: "unknown_op", Error: "unknown op " + req.Op}
	}

	if err != nil {
		return response{ID: req.ID, Code: errorCode(err), Error: err.Error()}
	}
	return response{ID: req.ID, OK: true}
}

func errorCode(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrNotFound):
		return "not_found"
	case stderrors.Is(err, errors.ErrUnauthorized):
		return "unauthorized"
	case stderrors.Is(err, errors.ErrValidationFailed):
		return "validation_failed"
	default:
		return "internal"
	}
}
