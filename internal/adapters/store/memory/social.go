package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chatcore/chatcore/internal/domain"
)

type Notifications struct {
	mu    sync.Mutex
	seq   int
	items []*domain.Notification
}

func NewNotifications() *Notifications {
	return &Notifications{}
}

func (s *Notifications) Insert(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	cp := *n
	cp.ID = fmt.Sprintf("n%d", s.seq)
	s.items = append(s.items, &cp)
	return nil
}

func (s *Notifications) UnreadExists(_ context.Context, owner domain.UserID, t domain.NotificationType, user domain.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.OwnerID == owner && n.Type == t && n.UserID == user && !n.IsRead {
			return true, nil
		}
	}
	return false, nil
}

func (s *Notifications) CountUnread(_ context.Context, owner domain.UserID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, n := range s.items {
		if n.OwnerID == owner && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *Notifications) List(_ context.Context, owner domain.UserID, _ int) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Notification{}
	for _, n := range s.items {
		if n.OwnerID == owner {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *Notifications) MarkRead(_ context.Context, owner domain.UserID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.ID == id && n.OwnerID == owner {
			n.IsRead = true
			return nil
		}
	}
	return domain.NotFoundErr("notification not found")
}

func (s *Notifications) DeleteFor(_ context.Context, owner, user domain.UserID, t domain.NotificationType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.items[:0]
	for _, n := range s.items {
		if !(n.OwnerID == owner && n.UserID == user && n.Type == t) {
			out = append(out, n)
		}
	}
	s.items = out
	return nil
}

type Friends struct {
	mu   sync.Mutex
	rows []*domain.Friend
}

func NewFriends() *Friends {
	return &Friends{}
}

func (s *Friends) find(owner, user domain.UserID) *domain.Friend {
	for _, r := range s.rows {
		if r.OwnerID == owner && r.UserID == user {
			return r
		}
	}
	return nil
}

func (s *Friends) IsFriend(_ context.Context, owner, user domain.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.find(owner, user)
	return r != nil && r.IsAccepted, nil
}

func (s *Friends) Get(_ context.Context, owner, user domain.UserID) (*domain.Friend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.find(owner, user)
	if r == nil {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *Friends) FriendIDs(_ context.Context, owner domain.UserID) ([]domain.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.UserID{}
	for _, r := range s.rows {
		if r.OwnerID == owner && r.IsAccepted {
			out = append(out, r.UserID)
		}
	}
	return out, nil
}

func (s *Friends) List(_ context.Context, owner domain.UserID, _ int) ([]domain.Friend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Friend{}
	for _, r := range s.rows {
		if r.OwnerID == owner && r.IsAccepted {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *Friends) Requests(_ context.Context, user domain.UserID, _ int) ([]domain.Friend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Friend{}
	for _, r := range s.rows {
		if r.UserID == user && !r.IsAccepted {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *Friends) Upsert(_ context.Context, owner, user domain.UserID, accepted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.find(owner, user); r != nil {
		r.IsAccepted = accepted
		return nil
	}
	s.rows = append(s.rows, &domain.Friend{
		OwnerID:    owner,
		UserID:     user,
		IsAccepted: accepted,
		CreatedAt:  time.Now(),
	})
	return nil
}

// Accept flips the row in place and hands back its prior state, matching
// the ReturnDocument Before semantics of the mongo adapter.
func (s *Friends) Accept(_ context.Context, owner, user domain.UserID) (*domain.Friend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.find(owner, user)
	if r == nil {
		return nil, nil
	}
	prior := *r
	r.IsAccepted = true
	return &prior, nil
}

func (s *Friends) Delete(_ context.Context, owner, user domain.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteRow(owner, user, nil), nil
}

func (s *Friends) deleteRow(owner, user domain.UserID, accepted *bool) bool {
	out := s.rows[:0]
	deleted := false
	for _, r := range s.rows {
		match := r.OwnerID == owner && r.UserID == user
		if match && accepted != nil {
			match = r.IsAccepted == *accepted
		}
		if match {
			deleted = true
			continue
		}
		out = append(out, r)
	}
	s.rows = out
	return deleted
}

func (s *Friends) DeletePair(_ context.Context, a, b domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteRow(a, b, nil)
	s.deleteRow(b, a, nil)
	return nil
}

func (s *Friends) DeleteRequest(_ context.Context, owner, user domain.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := false
	return s.deleteRow(owner, user, &pending), nil
}

type Blocks struct {
	mu   sync.Mutex
	rows map[[2]domain.UserID]bool
}

func NewBlocks() *Blocks {
	return &Blocks{rows: make(map[[2]domain.UserID]bool)}
}

func (s *Blocks) Exists(_ context.Context, owner, user domain.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[[2]domain.UserID{owner, user}], nil
}

func (s *Blocks) Upsert(_ context.Context, owner, user domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[[2]domain.UserID{owner, user}] = true
	return nil
}

func (s *Blocks) Delete(_ context.Context, owner, user domain.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]domain.UserID{owner, user}
	existed := s.rows[key]
	delete(s.rows, key)
	return existed, nil
}

func (s *Blocks) IDsFor(_ context.Context, owner domain.UserID) ([]domain.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.UserID{}
	for key := range s.rows {
		if key[0] == owner {
			out = append(out, key[1])
		}
	}
	return out, nil
}
