package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/chatcore/chatcore/internal/app"
	"github.com/chatcore/chatcore/internal/core"
	"github.com/chatcore/chatcore/internal/domain"
)

type Orchestrator struct {
	Registry *core.Registry
	Fanout   *Fanout
	Chat     *app.ChatService
	Rooms    *app.RoomService
	Friends  *app.FriendService
	Blocks   *app.BlockService
	Notifs   *app.NotificationService
	Users    app.UserStore
}

// Connected runs the connect side effects: push the badge count to the new
// device and, iff this was the user's 0->1 session edge, persist the online
// flag and announce it.
func (o *Orchestrator) Connected(ctx context.Context, sess core.Session) {
	tr := o.Registry.AddSession(sess)
	uid := sess.UserID()

	if count, err := o.Notifs.UnreadCount(ctx, uid); err == nil {
		o.Fanout.ToUser(uid, core.NotificationsCount{Count: count})
	}

	if tr != core.TransitionOnline {
		return
	}
	if err := o.Users.SetConnectionStatus(ctx, uid, true, time.Time{}); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("user", string(uid)).Msg("persist online")
	}
	o.fanOnlineStatus(ctx, uid, true)
}

// Disconnected cleans the session's transient state through the registry
// first, then fans out the consequences: synthetic leaves for each joined
// room, a typing-stopped notice, and the offline announcement on the last
// session. A reconnect arriving after this sees no residue.
func (o *Orchestrator) Disconnected(ctx context.Context, sess core.Session) {
	tr, cleanup := o.Registry.RemoveSession(sess)
	uid := sess.UserID()

	for _, roomID := range cleanup.Rooms {
		if msg, err := o.Chat.SyntheticRoomMessage(ctx, uid, roomID, domain.RoomMsgLeave, ""); err == nil {
			o.Fanout.ToRoom(roomID, core.NewRoomMessage{RoomMessage: *msg})
		}
		o.fanRoomMembersCount(ctx, roomID)
	}
	if cleanup.TypingTarget != "" {
		o.Fanout.ToUser(cleanup.TypingTarget, core.WritingMessage{UserID: uid, Status: false})
	}

	if tr != core.TransitionOffline {
		return
	}
	if err := o.Users.SetConnectionStatus(ctx, uid, false, time.Now()); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("user", string(uid)).Msg("persist offline")
	}
	o.fanOnlineStatus(ctx, uid, false)
}

// Typing relays the indicator to the target and parks it on the session so
// a disconnect can retract it.
func (o *Orchestrator) Typing(sess core.Session, target domain.UserID, status bool) {
	parked := target
	if !status {
		parked = ""
	}
	o.Registry.SetTyping(sess, parked)
	o.Fanout.ToUser(target, core.WritingMessage{UserID: sess.UserID(), Status: status})
}

// OnlineMembersOf answers "who in this room is reachable now" by pushing
// the authoritative member set through the presence registry. Recomputed
// every call; presence changes faster than membership.
func (o *Orchestrator) OnlineMembersOf(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error) {
	members, err := o.Rooms.MemberIDs(ctx, roomID)
	if err != nil {
		return nil, err
	}
	live := o.Registry.LiveSessionsFor(members)
	out := make([]domain.UserID, 0, len(live))
	for uid := range live {
		out = append(out, uid)
	}
	return out, nil
}

// onlineUsers resolves the room's live sessions (members and visitors) to
// user records for the room payloads.
func (o *Orchestrator) onlineUsers(ctx context.Context, roomID domain.RoomID) []domain.User {
	ids := o.Registry.UsersInRoom(roomID)
	if len(ids) == 0 {
		return []domain.User{}
	}
	users, err := o.Users.ByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(roomID)).Msg("resolve online users")
		return []domain.User{}
	}
	for i := range users {
		users[i] = users[i].PublicView()
	}
	return users
}

func (o *Orchestrator) fanRoomMembersCount(ctx context.Context, roomID domain.RoomID) {
	online := o.onlineUsers(ctx, roomID)
	o.Fanout.ToRoom(roomID, core.RoomMembersCount{ID: roomID, Online: online})
}

// fanOnlineStatus announces a presence edge to the user's friends and
// conversation partners. A hidden-activity user reads as unknown: both
// status and last-seen are null for observers.
func (o *Orchestrator) fanOnlineStatus(ctx context.Context, uid domain.UserID, online bool) {
	var (
		user     *domain.User
		friends  []domain.UserID
		contacts []domain.UserID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = o.Users.ByID(gctx, uid)
		return err
	})
	g.Go(func() (err error) {
		friends, err = o.Friends.FriendIDs(gctx, uid)
		return err
	})
	g.Go(func() (err error) {
		contacts, err = o.Chat.ContactIDs(gctx, uid)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("user", string(uid)).Msg("resolve status audience")
		return
	}

	ev := core.UserOnlineStatus{UserID: uid}
	if !user.IsHiddenActivity {
		status := online
		now := time.Now().UnixMilli()
		ev.Status = &status
		ev.LastSeen = &now
	}

	seen := make(map[domain.UserID]bool, len(contacts)+len(friends))
	for _, id := range contacts {
		seen[id] = true
		o.Fanout.ToUser(id, ev)
	}
	for _, id := range friends {
		if !seen[id] {
			o.Fanout.ToUser(id, ev)
		}
	}
}

// RefreshBadges recomputes the unread count for the owner's live sessions
// and nudges the friends view.
func (o *Orchestrator) RefreshBadges(ctx context.Context, uid domain.UserID) {
	if count, err := o.Notifs.UnreadCount(ctx, uid); err == nil {
		o.Fanout.ToUser(uid, core.NotificationsCount{Count: count})
	}
	o.Fanout.ToUser(uid, core.UpdateFriends{})
}
