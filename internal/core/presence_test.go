package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/chatcore/chatcore/internal/domain"
)

type fakeSession struct {
	id  SessionID
	uid domain.UserID

	mu     sync.Mutex
	events []Event
	closed bool
	full   bool
}

func newFakeSession(id string, uid string) *fakeSession {
	return &fakeSession{id: SessionID(id), uid: domain.UserID(uid)}
}

func (s *fakeSession) ID() SessionID         { return s.id }
func (s *fakeSession) UserID() domain.UserID { return s.uid }

func (s *fakeSession) TrySend(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return fmt.Errorf("backpressure")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func TestAddRemoveSessionTransitions(t *testing.T) {
	r := NewRegistry()
	a := newFakeSession("s1", "u1")
	b := newFakeSession("s2", "u1")

	if got := r.AddSession(a); got != TransitionOnline {
		t.Fatalf("first AddSession = %v, want TransitionOnline", got)
	}
	if got := r.AddSession(b); got != TransitionNone {
		t.Fatalf("second AddSession = %v, want TransitionNone", got)
	}
	if got := r.AddSession(b); got != TransitionNone {
		t.Fatalf("duplicate AddSession = %v, want TransitionNone", got)
	}
	if !r.IsOnline("u1") {
		t.Fatal("IsOnline = false with two live sessions")
	}

	if tr, _ := r.RemoveSession(a); tr != TransitionNone {
		t.Fatalf("RemoveSession with one left = %v, want TransitionNone", tr)
	}
	if tr, _ := r.RemoveSession(b); tr != TransitionOffline {
		t.Fatalf("last RemoveSession = %v, want TransitionOffline", tr)
	}
	if r.IsOnline("u1") {
		t.Fatal("IsOnline = true after all sessions removed")
	}
	if tr, _ := r.RemoveSession(b); tr != TransitionNone {
		t.Fatal("removing an unknown session must not signal a transition")
	}
}

// Any interleaving of concurrent connects from zero sessions must produce
// exactly one online transition, and the matching teardown exactly one
// offline transition.
func TestConcurrentTransitionsSignalOnce(t *testing.T) {
	r := NewRegistry()
	const n = 64

	sessions := make([]*fakeSession, n)
	for i := range sessions {
		sessions[i] = newFakeSession(fmt.Sprintf("s%d", i), "u1")
	}

	var wg sync.WaitGroup
	online := make(chan Transition, n)
	for _, s := range sessions {
		wg.Add(1)
		go func(s *fakeSession) {
			defer wg.Done()
			online <- r.AddSession(s)
		}(s)
	}
	wg.Wait()
	close(online)

	var onlineCount int
	for tr := range online {
		if tr == TransitionOnline {
			onlineCount++
		}
	}
	if onlineCount != 1 {
		t.Fatalf("online transitions = %d, want exactly 1", onlineCount)
	}

	offline := make(chan Transition, n)
	for _, s := range sessions {
		wg.Add(1)
		go func(s *fakeSession) {
			defer wg.Done()
			tr, _ := r.RemoveSession(s)
			offline <- tr
		}(s)
	}
	wg.Wait()
	close(offline)

	var offlineCount int
	for tr := range offline {
		if tr == TransitionOffline {
			offlineCount++
		}
	}
	if offlineCount != 1 {
		t.Fatalf("offline transitions = %d, want exactly 1", offlineCount)
	}
}

func TestJoinRoomCapacity(t *testing.T) {
	r := NewRegistry()
	const capacity = 3

	for i := 0; i < capacity; i++ {
		s := newFakeSession(fmt.Sprintf("s%d", i), fmt.Sprintf("u%d", i))
		r.AddSession(s)
		if got := r.JoinRoom(s, "room1", capacity, false); got != JoinedNew {
			t.Fatalf("join %d = %v, want JoinedNew", i, got)
		}
	}

	late := newFakeSession("late", "u-late")
	r.AddSession(late)
	if got := r.JoinRoom(late, "room1", capacity, false); got != RoomFull {
		t.Fatalf("join over capacity = %v, want RoomFull", got)
	}

	// Exempt callers (creator, members) bypass the cap.
	member := newFakeSession("member", "u-member")
	r.AddSession(member)
	if got := r.JoinRoom(member, "room1", capacity, true); got != JoinedNew {
		t.Fatalf("exempt join = %v, want JoinedNew", got)
	}

	// A second device of a user already inside does not consume a slot.
	second := newFakeSession("s0-b", "u0")
	r.AddSession(second)
	if got := r.JoinRoom(second, "room1", capacity, false); got != JoinedNew {
		t.Fatalf("second-device join = %v, want JoinedNew", got)
	}

	if got := r.JoinRoom(second, "room1", capacity, false); got != AlreadyJoined {
		t.Fatalf("re-join same session = %v, want AlreadyJoined", got)
	}
}

func TestJoinRoomUnregisteredSession(t *testing.T) {
	r := NewRegistry()
	s := newFakeSession("ghost", "u1")
	if got := r.JoinRoom(s, "room1", 10, false); got != NotRegistered {
		t.Fatalf("JoinRoom before AddSession = %v, want NotRegistered", got)
	}
}

func TestRemoveSessionCleansTransientState(t *testing.T) {
	r := NewRegistry()
	s := newFakeSession("s1", "u1")
	r.AddSession(s)
	r.JoinRoom(s, "roomA", 10, false)
	r.JoinRoom(s, "roomB", 10, false)
	r.SetTyping(s, "u2")

	_, cl := r.RemoveSession(s)
	if len(cl.Rooms) != 2 {
		t.Fatalf("cleanup rooms = %d, want 2", len(cl.Rooms))
	}
	if cl.TypingTarget != "u2" {
		t.Fatalf("cleanup typing target = %q, want u2", cl.TypingTarget)
	}
	if got := len(r.UsersInRoom("roomA")); got != 0 {
		t.Fatalf("roomA still holds %d users after cleanup", got)
	}
	if got := len(r.SessionsInRoom("roomB")); got != 0 {
		t.Fatalf("roomB still holds %d sessions after cleanup", got)
	}
}

func TestForceLeaveRoomDetachesAllDevices(t *testing.T) {
	r := NewRegistry()
	a := newFakeSession("s1", "u1")
	b := newFakeSession("s2", "u1")
	other := newFakeSession("s3", "u2")
	for _, s := range []*fakeSession{a, b, other} {
		r.AddSession(s)
		r.JoinRoom(s, "room1", 10, false)
	}

	if !r.ForceLeaveRoom("u1", "room1") {
		t.Fatal("ForceLeaveRoom = false, want true")
	}
	users := r.UsersInRoom("room1")
	if len(users) != 1 || users[0] != "u2" {
		t.Fatalf("UsersInRoom after force leave = %v, want [u2]", users)
	}
	if r.ForceLeaveRoom("u1", "room1") {
		t.Fatal("second ForceLeaveRoom must report nothing to detach")
	}
}

func TestLeaveRoomSingleSession(t *testing.T) {
	r := NewRegistry()
	a := newFakeSession("s1", "u1")
	b := newFakeSession("s2", "u1")
	r.AddSession(a)
	r.AddSession(b)
	r.JoinRoom(a, "room1", 10, false)
	r.JoinRoom(b, "room1", 10, false)

	if !r.LeaveRoom(a, "room1") {
		t.Fatal("LeaveRoom = false for a joined session")
	}
	if r.LeaveRoom(a, "room1") {
		t.Fatal("LeaveRoom = true for a session already out")
	}
	// The user keeps room presence through the other device.
	users := r.UsersInRoom("room1")
	if len(users) != 1 || users[0] != "u1" {
		t.Fatalf("UsersInRoom = %v, want [u1]", users)
	}
}

func TestSetTypingReturnsPrevious(t *testing.T) {
	r := NewRegistry()
	s := newFakeSession("s1", "u1")
	r.AddSession(s)

	if prev := r.SetTyping(s, "u2"); prev != "" {
		t.Fatalf("first SetTyping prev = %q, want empty", prev)
	}
	if prev := r.SetTyping(s, "u3"); prev != "u2" {
		t.Fatalf("second SetTyping prev = %q, want u2", prev)
	}
	if prev := r.SetTyping(s, ""); prev != "u3" {
		t.Fatalf("clearing SetTyping prev = %q, want u3", prev)
	}
}
