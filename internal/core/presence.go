package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/chatcore/chatcore/internal/domain"
)

// Transition marks an empty<->non-empty edge of a user's live session set.
// Exactly one Online is reported for any number of concurrent connects from
// zero sessions, and exactly one Offline when the last session goes away.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionOnline
	TransitionOffline
)

// JoinResult is the outcome of a capacity-checked room join.
type JoinResult int

const (
	JoinedNew JoinResult = iota
	AlreadyJoined
	RoomFull
	NotRegistered
)

// Cleanup is the transient state a removed session held. The registry has
// already detached everything by the time the caller sees it; the caller
// only fans out the side effects.
type Cleanup struct {
	Rooms        []domain.RoomID
	TypingTarget domain.UserID
}

// sessionState is the registry's view of one live connection.
type sessionState struct {
	sess   Session
	rooms  map[domain.RoomID]struct{}
	typing domain.UserID
}

// userEntry serializes all session-set mutations for a single user id, so
// the size-check-and-signal pair is atomic without a global lock.
type userEntry struct {
	mu       sync.Mutex
	sessions map[SessionID]*sessionState
}

type roomPresence struct {
	sessions map[SessionID]Session
	users    map[domain.UserID]int
}

// Registry maps user ids to their live sessions and rooms to the sessions
// currently joined. It owns no persisted state.
//
// Lock order is users map -> user entry -> rooms index; no path takes them
// in reverse. User entries are never deleted once created: removal would
// race re-creation and could double-signal a presence transition.
type Registry struct {
	mu    sync.RWMutex
	users map[domain.UserID]*userEntry

	roomMu sync.RWMutex
	rooms  map[domain.RoomID]*roomPresence
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[domain.UserID]*userEntry),
		rooms: make(map[domain.RoomID]*roomPresence),
	}
}

func (r *Registry) entry(uid domain.UserID, create bool) *userEntry {
	r.mu.RLock()
	e, ok := r.users[uid]
	r.mu.RUnlock()
	if ok || !create {
		return e
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok = r.users[uid]; ok {
		return e
	}
	e = &userEntry{sessions: make(map[SessionID]*sessionState)}
	r.users[uid] = e
	return e
}

// AddSession registers a live connection. Adding the same session id twice
// is a no-op.
func (r *Registry) AddSession(sess Session) Transition {
	e := r.entry(sess.UserID(), true)
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions[sess.ID()]; ok {
		return TransitionNone
	}
	e.sessions[sess.ID()] = &sessionState{
		sess:  sess,
		rooms: make(map[domain.RoomID]struct{}),
	}
	log.Debug().Str("module", "core.presence").
		Str("user", string(sess.UserID())).Str("sid", string(sess.ID())).
		Int("sessions", len(e.sessions)).Msg("session added")
	if len(e.sessions) == 1 {
		return TransitionOnline
	}
	return TransitionNone
}

// RemoveSession detaches a connection and strips its transient state (room
// presence, typing indicator) before returning. Removing an unknown session
// is a no-op.
func (r *Registry) RemoveSession(sess Session) (Transition, Cleanup) {
	e := r.entry(sess.UserID(), false)
	if e == nil {
		return TransitionNone, Cleanup{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.sessions[sess.ID()]
	if !ok {
		return TransitionNone, Cleanup{}
	}
	delete(e.sessions, sess.ID())

	var cl Cleanup
	cl.TypingTarget = state.typing
	for roomID := range state.rooms {
		cl.Rooms = append(cl.Rooms, roomID)
		r.dropFromRoom(roomID, sess)
	}
	log.Debug().Str("module", "core.presence").
		Str("user", string(sess.UserID())).Str("sid", string(sess.ID())).
		Int("sessions", len(e.sessions)).Msg("session removed")
	if len(e.sessions) == 0 {
		return TransitionOffline, cl
	}
	return TransitionNone, cl
}

func (r *Registry) IsOnline(uid domain.UserID) bool {
	e := r.entry(uid, false)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions) > 0
}

// LiveSessionsFor counts live sessions per user id. Ids with no sessions
// are omitted from the result.
func (r *Registry) LiveSessionsFor(ids []domain.UserID) map[domain.UserID]int {
	out := make(map[domain.UserID]int, len(ids))
	for _, uid := range ids {
		e := r.entry(uid, false)
		if e == nil {
			continue
		}
		e.mu.Lock()
		if n := len(e.sessions); n > 0 {
			out[uid] = n
		}
		e.mu.Unlock()
	}
	return out
}

// SessionsOf snapshots a user's live sessions.
func (r *Registry) SessionsOf(uid domain.UserID) []Session {
	e := r.entry(uid, false)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Session, 0, len(e.sessions))
	for _, st := range e.sessions {
		out = append(out, st.sess)
	}
	return out
}

// JoinRoom adds the session to a room's live set iff the room's distinct
// online user count is below capacity. The count check and the insert run
// under the room index lock, so a concurrent 51st joiner observes the
// updated count. Exempt callers (creator, existing members) and users
// already present through another device bypass the cap.
func (r *Registry) JoinRoom(sess Session, roomID domain.RoomID, capacity int, exempt bool) JoinResult {
	e := r.entry(sess.UserID(), false)
	if e == nil {
		return NotRegistered
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.sessions[sess.ID()]
	if !ok {
		return NotRegistered
	}
	if _, ok := state.rooms[roomID]; ok {
		return AlreadyJoined
	}

	r.roomMu.Lock()
	defer r.roomMu.Unlock()
	rp, ok := r.rooms[roomID]
	if !ok {
		rp = &roomPresence{
			sessions: make(map[SessionID]Session),
			users:    make(map[domain.UserID]int),
		}
		r.rooms[roomID] = rp
	}
	uid := sess.UserID()
	if !exempt && rp.users[uid] == 0 && len(rp.users) >= capacity {
		return RoomFull
	}
	rp.sessions[sess.ID()] = sess
	rp.users[uid]++
	state.rooms[roomID] = struct{}{}
	return JoinedNew
}

// LeaveRoom detaches one session from a room. Reports whether the session
// was actually joined.
func (r *Registry) LeaveRoom(sess Session, roomID domain.RoomID) bool {
	e := r.entry(sess.UserID(), false)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.sessions[sess.ID()]
	if !ok {
		return false
	}
	if _, ok := state.rooms[roomID]; !ok {
		return false
	}
	delete(state.rooms, roomID)
	r.dropFromRoom(roomID, sess)
	return true
}

// ForceLeaveRoom detaches every live session of a user from a room, for
// kick and ban. Returns true if any session was joined.
func (r *Registry) ForceLeaveRoom(uid domain.UserID, roomID domain.RoomID) bool {
	e := r.entry(uid, false)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	left := false
	for _, state := range e.sessions {
		if _, ok := state.rooms[roomID]; !ok {
			continue
		}
		delete(state.rooms, roomID)
		r.dropFromRoom(roomID, state.sess)
		left = true
	}
	return left
}

// SetTyping records the one target the session is typing to (empty clears)
// and returns the previous target.
func (r *Registry) SetTyping(sess Session, target domain.UserID) domain.UserID {
	e := r.entry(sess.UserID(), false)
	if e == nil {
		return ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.sessions[sess.ID()]
	if !ok {
		return ""
	}
	prev := state.typing
	state.typing = target
	return prev
}

// SessionsInRoom snapshots every live session joined to the room,
// regardless of owning user.
func (r *Registry) SessionsInRoom(roomID domain.RoomID) []Session {
	r.roomMu.RLock()
	defer r.roomMu.RUnlock()
	rp, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]Session, 0, len(rp.sessions))
	for _, s := range rp.sessions {
		out = append(out, s)
	}
	return out
}

// UsersInRoom snapshots the distinct user ids with at least one session
// joined to the room. Recomputed on demand, never cached: presence changes
// faster than membership.
func (r *Registry) UsersInRoom(roomID domain.RoomID) []domain.UserID {
	r.roomMu.RLock()
	defer r.roomMu.RUnlock()
	rp, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]domain.UserID, 0, len(rp.users))
	for uid := range rp.users {
		out = append(out, uid)
	}
	return out
}

// dropFromRoom removes one session from the room index. Callers hold the
// owning user's entry lock.
func (r *Registry) dropFromRoom(roomID domain.RoomID, sess Session) {
	r.roomMu.Lock()
	defer r.roomMu.Unlock()
	rp, ok := r.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := rp.sessions[sess.ID()]; !ok {
		return
	}
	delete(rp.sessions, sess.ID())
	uid := sess.UserID()
	if rp.users[uid]--; rp.users[uid] <= 0 {
		delete(rp.users, uid)
	}
	if len(rp.sessions) == 0 {
		delete(r.rooms, roomID)
	}
}
