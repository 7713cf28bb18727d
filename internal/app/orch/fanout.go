// Package orch sequences every flow as validate -> persist -> fan out. The
// domain services below it return pure results and never reach a socket;
// the transport adapters above it never touch a store. That keeps the
// broadcaster/service dependency one-directional.
package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/chatcore/chatcore/internal/core"
	"github.com/chatcore/chatcore/internal/domain"
)

// Fanout resolves a logical target (user or room) to its live sessions and
// emits one event to exactly that set. A session that cannot take the
// event is closed; its pump unwinds and the registry drops it.
type Fanout struct {
	Registry *core.Registry
}

// ToUser emits to every live session owned by the user: multi-device
// fan-out, all devices get the same event. No live session, no-op.
func (f *Fanout) ToUser(uid domain.UserID, ev core.Event) {
	for _, sess := range f.Registry.SessionsOf(uid) {
		f.send(sess, ev)
	}
}

// ToRoom emits to every live session currently joined to the room,
// regardless of owning user.
func (f *Fanout) ToRoom(roomID domain.RoomID, ev core.Event) {
	for _, sess := range f.Registry.SessionsInRoom(roomID) {
		f.send(sess, ev)
	}
}

func (f *Fanout) send(sess core.Session, ev core.Event) {
	if err := sess.TrySend(ev); err != nil {
		log.Warn().Err(err).Str("module", "orch.fanout").
			Str("sid", string(sess.ID())).Str("event", ev.Name()).
			Msg("dropping slow session")
		sess.Close()
	}
}
