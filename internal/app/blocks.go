package app

import (
	"context"

	"github.com/chatcore/chatcore/internal/domain"
)

// BlockService owns the one-directional block list. Blocking severs any
// friendship in both directions in the same action.
type BlockService struct {
	blocks  BlockStore
	friends FriendStore
	users   UserStore
}

func NewBlockService(blocks BlockStore, friends FriendStore, users UserStore) *BlockService {
	return &BlockService{blocks: blocks, friends: friends, users: users}
}

func (s *BlockService) Add(ctx context.Context, owner, target domain.UserID) error {
	if owner == target {
		return domain.ErrSelfAction
	}
	exists, err := s.blocks.Exists(ctx, owner, target)
	if err != nil {
		return err
	}
	if exists {
		return domain.Conflict("user is already in the block list")
	}
	if err := s.friends.DeletePair(ctx, owner, target); err != nil {
		return err
	}
	return s.blocks.Upsert(ctx, owner, target)
}

func (s *BlockService) Delete(ctx context.Context, owner, target domain.UserID) error {
	if owner == target {
		return domain.ErrSelfAction
	}
	removed, err := s.blocks.Delete(ctx, owner, target)
	if err != nil {
		return err
	}
	if !removed {
		return domain.NotFoundErr("user is not in the block list")
	}
	return nil
}

func (s *BlockService) List(ctx context.Context, owner domain.UserID) ([]domain.User, error) {
	ids, err := s.blocks.IDsFor(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	return s.users.ByIDs(ctx, ids)
}
