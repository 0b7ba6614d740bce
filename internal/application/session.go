package application

import (
	"time"

	"github.com/akulinin/subman/internal/domain/model"
)

// PendingAuth holds the in-flight authorization exchange for one session.
// Its presence is what makes a submitted code acceptable; a restart discards
// it, which is why a late code yields ErrAuthSessionExpired.
type PendingAuth struct {
	BeganAt time.Time
}

// Session is the explicit per-chat conversation context. All state that the
// original flow kept in ambient per-user storage lives here and is passed
// explicitly into the services that need it.
type Session struct {
	ChatID      int64
	State       model.SessionState
	PendingAuth *PendingAuth
}

// NewSession returns an idle session for the given chat.
func NewSession(chatID int64) *Session {
	return &Session{ChatID: chatID, State: model.StateIdle}
}
