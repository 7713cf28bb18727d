package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/chatcore/chatcore/internal/domain"
)

// NotificationService is the push fallback dispatcher: when an event could
// not be delivered to a live session it lands here, is persisted for the
// badge count, and is best-effort multicast to the owner's devices.
type NotificationService struct {
	notifications NotificationStore
	users         UserStore
	push          PushSender
}

func NewNotificationService(notifications NotificationStore, users UserStore, push PushSender) *NotificationService {
	return &NotificationService{notifications: notifications, users: users, push: push}
}

// DispatchInput identifies one pending notification. WithPush false skips
// the transport and only records the row.
type DispatchInput struct {
	Owner    domain.UserID
	Type     domain.NotificationType
	Related  domain.UserID
	WithPush bool
}

// Dispatch persists the notification unless an unread duplicate of the
// same (owner, type, related user) is already pending, then multicasts to
// the owner's registered tokens. No tokens means a silent drop; push
// failures are swallowed since live delivery already failed or was never
// attempted. Reports whether a row was created.
func (s *NotificationService) Dispatch(ctx context.Context, in DispatchInput) (bool, error) {
	var (
		owner     *domain.User
		related   *domain.User
		duplicate bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		owner, err = s.users.ByID(gctx, in.Owner)
		return err
	})
	g.Go(func() (err error) {
		related, err = s.users.ByID(gctx, in.Related)
		return err
	})
	g.Go(func() (err error) {
		duplicate, err = s.notifications.UnreadExists(gctx, in.Owner, in.Type, in.Related)
		return err
	})
	if err := g.Wait(); err != nil {
		return false, err
	}
	if duplicate {
		return false, nil
	}

	err := s.notifications.Insert(ctx, &domain.Notification{
		OwnerID:   in.Owner,
		Type:      in.Type,
		UserID:    in.Related,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return false, err
	}

	if in.WithPush && len(owner.FCMTokens) > 0 {
		title, body := notificationText(in.Type, related.Username)
		if err := s.push.SendMulticast(ctx, owner.FCMTokens, title, body); err != nil {
			log.Warn().Err(err).Str("module", "app.notifications").
				Str("owner", string(in.Owner)).Msg("push multicast failed")
		}
	}
	return true, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, owner domain.UserID) (int64, error) {
	return s.notifications.CountUnread(ctx, owner)
}

func (s *NotificationService) List(ctx context.Context, owner domain.UserID, page int) ([]domain.Notification, error) {
	items, err := s.notifications.List(ctx, owner, page)
	if err != nil {
		return nil, err
	}
	var ids []domain.UserID
	for _, n := range items {
		if n.UserID != "" {
			ids = append(ids, n.UserID)
		}
	}
	if len(ids) > 0 {
		users, err := s.users.ByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		byID := make(map[domain.UserID]*domain.User, len(users))
		for i := range users {
			byID[users[i].ID] = &users[i]
		}
		for i := range items {
			items[i].User = byID[items[i].UserID]
		}
	}
	return items, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, owner domain.UserID, id string) error {
	return s.notifications.MarkRead(ctx, owner, id)
}

// Delete clears pending notifications of one type about one user, for
// request-cancel and accept flows.
func (s *NotificationService) Delete(ctx context.Context, owner, related domain.UserID, t domain.NotificationType) error {
	return s.notifications.DeleteFor(ctx, owner, related, t)
}

func notificationText(t domain.NotificationType, username string) (string, string) {
	switch t {
	case domain.NotificationFriendRequest:
		return "New Friend Request", fmt.Sprintf("New friend request from %s", username)
	case domain.NotificationNewMessage:
		return "New Message", fmt.Sprintf("New message from %s", username)
	}
	return "", ""
}
