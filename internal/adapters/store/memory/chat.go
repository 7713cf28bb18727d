package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chatcore/chatcore/internal/domain"
)

type Messages struct {
	mu   sync.Mutex
	seq  int
	msgs []*domain.PrivateMessage
}

func NewMessages() *Messages {
	return &Messages{}
}

func (s *Messages) Insert(_ context.Context, m *domain.PrivateMessage) (domain.MessageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := domain.MessageID(fmt.Sprintf("m%d", s.seq))
	cp := *m
	cp.ID = id
	s.msgs = append(s.msgs, &cp)
	return id, nil
}

func (s *Messages) get(id domain.MessageID) *domain.PrivateMessage {
	for _, m := range s.msgs {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *Messages) ByID(_ context.Context, id domain.MessageID) (*domain.PrivateMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.get(id)
	if m == nil {
		return nil, domain.ErrMessageNotFound
	}
	cp := *m
	return &cp, nil
}

// Conversation walks newest first, mirroring the descending createdAt sort
// of the mongo adapter. Blocked inbound messages and messages the owner
// deleted for themselves are filtered out.
func (s *Messages) Conversation(_ context.Context, owner, counterpart domain.UserID, _ int) ([]domain.PrivateMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.PrivateMessage{}
	for i := len(s.msgs) - 1; i >= 0; i-- {
		m := s.msgs[i]
		mine := m.SenderID == owner && m.ReceiverID == counterpart
		theirs := m.SenderID == counterpart && m.ReceiverID == owner && !m.IsBlock
		if !mine && !theirs {
			continue
		}
		hidden := false
		for _, d := range m.Deleted {
			if d == owner {
				hidden = true
			}
		}
		if !hidden {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *Messages) MarkSent(_ context.Context, ids []domain.MessageID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if m := s.get(id); m != nil && m.SentDate == nil && !m.IsBlock {
			t := at
			m.SentDate = &t
		}
	}
	return nil
}

func (s *Messages) MarkSeen(_ context.Context, sender, receiver domain.UserID, at time.Time) ([]domain.MessageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []domain.MessageID
	for _, m := range s.msgs {
		if m.SenderID == sender && m.ReceiverID == receiver && m.SeenDate == nil && !m.IsBlock {
			t := at
			m.SeenDate = &t
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

func (s *Messages) UnsentFor(_ context.Context, receiver domain.UserID) ([]domain.PrivateMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.PrivateMessage{}
	for _, m := range s.msgs {
		if m.ReceiverID == receiver && m.SentDate == nil && !m.IsBlock {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *Messages) PullReaction(_ context.Context, id domain.MessageID, user domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.get(id)
	if m == nil {
		return domain.ErrMessageNotFound
	}
	out := m.Reactions[:0]
	for _, r := range m.Reactions {
		if r.UserID != user {
			out = append(out, r)
		}
	}
	m.Reactions = out
	return nil
}

// AddReaction enforces the same at-most-one guard as the mongo adapter: the
// push happens only while the user holds no reaction row on the message.
func (s *Messages) AddReaction(_ context.Context, id domain.MessageID, r domain.Reaction) (*domain.PrivateMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.get(id)
	if m == nil {
		return nil, domain.ErrMessageNotFound
	}
	for _, have := range m.Reactions {
		if have.UserID == r.UserID {
			return nil, domain.ErrReactionExists
		}
	}
	m.Reactions = append(m.Reactions, r)
	cp := *m
	return &cp, nil
}

func (s *Messages) HideFor(_ context.Context, id domain.MessageID, viewer domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.get(id)
	if m == nil {
		return domain.ErrMessageNotFound
	}
	m.Deleted = append(m.Deleted, viewer)
	return nil
}

func (s *Messages) UnseenCounts(_ context.Context, owner domain.UserID, senders []domain.UserID) (map[domain.UserID]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[domain.UserID]bool, len(senders))
	for _, sender := range senders {
		want[sender] = true
	}
	out := map[domain.UserID]int{}
	for _, m := range s.msgs {
		if m.ReceiverID == owner && want[m.SenderID] && m.SeenDate == nil && !m.IsBlock {
			out[m.SenderID]++
		}
	}
	return out, nil
}

type Contacts struct {
	mu       sync.Mutex
	contacts []*domain.Contact
}

func NewContacts() *Contacts {
	return &Contacts{}
}

func (s *Contacts) EnsurePair(_ context.Context, a, b domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pair := range [][2]domain.UserID{{a, b}, {b, a}} {
		found := false
		for _, c := range s.contacts {
			if c.OwnerID == pair[0] && c.UserID == pair[1] {
				found = true
			}
		}
		if !found {
			s.contacts = append(s.contacts, &domain.Contact{
				OwnerID:   pair[0],
				UserID:    pair[1],
				CreatedAt: time.Now(),
			})
		}
	}
	return nil
}

func (s *Contacts) SetLastMessage(_ context.Context, a, b domain.UserID, id domain.MessageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contacts {
		if (c.OwnerID == a && c.UserID == b) || (c.OwnerID == b && c.UserID == a) {
			c.LastMsgID = id
		}
	}
	return nil
}

func (s *Contacts) For(_ context.Context, owner domain.UserID) ([]domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Contact{}
	for _, c := range s.contacts {
		if c.OwnerID == owner {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *Contacts) IDsFor(_ context.Context, owner domain.UserID) ([]domain.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.UserID{}
	for _, c := range s.contacts {
		if c.OwnerID == owner {
			out = append(out, c.UserID)
		}
	}
	return out, nil
}
