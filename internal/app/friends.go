package app

import (
	"context"

	"github.com/chatcore/chatcore/internal/domain"
)

// FriendService owns the friendship graph that gates private delivery and
// scopes the online-status fan-out audience. Accepted friendships are
// mirrored row pairs; a pending request is a single unaccepted row owned
// by the requester.
type FriendService struct {
	friends FriendStore
	blocks  BlockStore
	users   UserStore
}

func NewFriendService(friends FriendStore, blocks BlockStore, users UserStore) *FriendService {
	return &FriendService{friends: friends, blocks: blocks, users: users}
}

func (s *FriendService) Friends(ctx context.Context, owner domain.UserID, page int) ([]domain.Friend, error) {
	friends, err := s.friends.List(ctx, owner, page)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, friends, func(f domain.Friend) domain.UserID { return f.UserID })
}

func (s *FriendService) Requests(ctx context.Context, user domain.UserID, page int) ([]domain.Friend, error) {
	requests, err := s.friends.Requests(ctx, user, page)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, requests, func(f domain.Friend) domain.UserID { return f.OwnerID })
}

// FriendIDs is the accepted-friend audience for presence fan-out.
func (s *FriendService) FriendIDs(ctx context.Context, owner domain.UserID) ([]domain.UserID, error) {
	return s.friends.FriendIDs(ctx, owner)
}

// SendRequest creates a pending request unless one party blocks the other
// or a relationship already exists. Returns true when the receiver should
// be notified.
func (s *FriendService) SendRequest(ctx context.Context, from, to domain.UserID) error {
	if from == to {
		return domain.ErrSelfAction
	}
	blocked, err := s.eitherBlocks(ctx, from, to)
	if err != nil {
		return err
	}
	if blocked {
		return domain.ErrUserNotFound
	}
	existing, err := s.friends.Get(ctx, from, to)
	if err != nil {
		return err
	}
	if existing != nil && !existing.IsAccepted {
		return domain.Conflict("friend request already sent")
	}
	if existing != nil {
		return domain.Conflict("user is already a friend")
	}
	return s.friends.Upsert(ctx, from, to, false)
}

// AcceptRequest flips the requester's row and mirrors an accepted row back.
func (s *FriendService) AcceptRequest(ctx context.Context, user, requester domain.UserID) error {
	if user == requester {
		return domain.ErrSelfAction
	}
	prior, err := s.friends.Accept(ctx, requester, user)
	if err != nil {
		return err
	}
	if prior == nil {
		return domain.NotFoundErr("friend request not found")
	}
	if prior.IsAccepted {
		return domain.Conflict("user is already a friend")
	}
	return s.friends.Upsert(ctx, user, requester, true)
}

// Delete removes both directions of a friendship.
func (s *FriendService) Delete(ctx context.Context, user, friend domain.UserID) error {
	if user == friend {
		return domain.ErrSelfAction
	}
	return s.friends.DeletePair(ctx, user, friend)
}

// CancelRequest withdraws a pending request the user sent. Reports whether
// one existed.
func (s *FriendService) CancelRequest(ctx context.Context, user, target domain.UserID) (bool, error) {
	if user == target {
		return false, domain.ErrSelfAction
	}
	return s.friends.DeleteRequest(ctx, user, target)
}

func (s *FriendService) eitherBlocks(ctx context.Context, a, b domain.UserID) (bool, error) {
	if blocked, err := s.blocks.Exists(ctx, a, b); err != nil || blocked {
		return blocked, err
	}
	return s.blocks.Exists(ctx, b, a)
}

func (s *FriendService) hydrate(ctx context.Context, friends []domain.Friend, pick func(domain.Friend) domain.UserID) ([]domain.Friend, error) {
	if len(friends) == 0 {
		return []domain.Friend{}, nil
	}
	ids := make([]domain.UserID, 0, len(friends))
	for _, f := range friends {
		ids = append(ids, pick(f))
	}
	users, err := s.users.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[domain.UserID]*domain.User, len(users))
	for i := range users {
		masked := users[i].PublicView()
		byID[users[i].ID] = &masked
	}
	out := friends[:0]
	for _, f := range friends {
		if u := byID[pick(f)]; u != nil {
			f.User = u
			out = append(out, f)
		}
	}
	return out, nil
}
