package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/chatcore/chatcore/internal/app"
	"github.com/chatcore/chatcore/internal/core"
	"github.com/chatcore/chatcore/internal/domain"
)

// SendFriendRequest records the pending request and notifies the receiver:
// live badge refresh when connected, push fallback otherwise.
func (o *Orchestrator) SendFriendRequest(ctx context.Context, from, to domain.UserID) error {
	if err := o.Friends.SendRequest(ctx, from, to); err != nil {
		return err
	}
	created, err := o.Notifs.Dispatch(ctx, app.DispatchInput{
		Owner:    to,
		Type:     domain.NotificationFriendRequest,
		Related:  from,
		WithPush: !o.Registry.IsOnline(to),
	})
	if err != nil {
		log.Warn().Err(err).Str("module", "orch.social").Msg("friend request notification")
	}
	if created {
		o.RefreshBadges(ctx, to)
	}
	return nil
}

// AcceptFriendRequest mirrors the friendship and retires the pending
// notification. Both parties see their friends view refresh.
func (o *Orchestrator) AcceptFriendRequest(ctx context.Context, user, requester domain.UserID) error {
	if err := o.Friends.AcceptRequest(ctx, user, requester); err != nil {
		return err
	}
	if err := o.Notifs.Delete(ctx, user, requester, domain.NotificationFriendRequest); err != nil {
		log.Warn().Err(err).Str("module", "orch.social").Msg("retire request notification")
	}
	o.RefreshBadges(ctx, user)
	o.RefreshBadges(ctx, requester)
	return nil
}

// CancelFriendRequest withdraws a pending request and retracts its
// notification from the receiver, badge included.
func (o *Orchestrator) CancelFriendRequest(ctx context.Context, user, target domain.UserID) error {
	existed, err := o.Friends.CancelRequest(ctx, user, target)
	if err != nil {
		return err
	}
	if !existed {
		return domain.NotFoundErr("friend request not found")
	}
	if err := o.Notifs.Delete(ctx, target, user, domain.NotificationFriendRequest); err != nil {
		log.Warn().Err(err).Str("module", "orch.social").Msg("retract request notification")
	}
	o.RefreshBadges(ctx, target)
	return nil
}

func (o *Orchestrator) DeleteFriend(ctx context.Context, user, friend domain.UserID) error {
	if err := o.Friends.Delete(ctx, user, friend); err != nil {
		return err
	}
	o.Fanout.ToUser(user, core.UpdateFriends{})
	o.Fanout.ToUser(friend, core.UpdateFriends{})
	return nil
}

// BlockUser severs the friendship inside the block action, so both parties
// need their friends and contacts views refreshed.
func (o *Orchestrator) BlockUser(ctx context.Context, owner, target domain.UserID) error {
	if err := o.Blocks.Add(ctx, owner, target); err != nil {
		return err
	}
	for _, uid := range []domain.UserID{owner, target} {
		o.Fanout.ToUser(uid, core.UpdateFriends{})
		o.Fanout.ToUser(uid, core.RefreshContacts{})
	}
	return nil
}

func (o *Orchestrator) UnblockUser(ctx context.Context, owner, target domain.UserID) error {
	if err := o.Blocks.Delete(ctx, owner, target); err != nil {
		return err
	}
	o.Fanout.ToUser(owner, core.RefreshContacts{})
	o.Fanout.ToUser(target, core.RefreshContacts{})
	return nil
}
