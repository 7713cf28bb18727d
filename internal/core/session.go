// Package core owns the presence model: live sessions, the per-user
// registry, and the closed set of events that fan out over them.
package core

import "github.com/chatcore/chatcore/internal/domain"

type SessionID string

// Session is one live connection belonging to a user. A user may hold
// several concurrently (multi-device). The registry tracks which rooms a
// session has joined and whom it is typing to; the transport behind the
// session only knows how to push frames.
// Owned by the adapter; the adapter must Close() it.
type Session interface {
	ID() SessionID
	UserID() domain.UserID
	TrySend(ev Event) error
	Close()
}
