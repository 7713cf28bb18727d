package orch

import (
	"context"
	"errors"

	"github.com/chatcore/chatcore/internal/app"
	"github.com/chatcore/chatcore/internal/core"
	"github.com/chatcore/chatcore/internal/domain"
)

// Join statuses acknowledged back to the joining client.
const (
	JoinSuccess         = "success"
	JoinNotExist        = "notExist"
	JoinBanned          = "banned"
	JoinMembersOnly     = "members-only"
	JoinInvalidPassword = "invalid-password"
	JoinFull            = "full"
)

// JoinAck is the answer to a join attempt. Room is populated only on
// success, with the live online list attached. Enter belongs to the
// transport: it echoes whatever flag the client sent.
type JoinAck struct {
	ID     domain.RoomID   `json:"id"`
	Name   domain.RoomName `json:"name,omitempty"`
	Status string          `json:"status"`
	Enter  bool            `json:"enter"`
	Room   *domain.Room    `json:"room,omitempty"`
}

// JoinRoom walks the admission ladder in order: existence, ban, members-only
// gate, password, capacity. Creators and members pass every gate except the
// ban. A user already present through another device does not consume a
// capacity slot twice.
func (o *Orchestrator) JoinRoom(ctx context.Context, sess core.Session, roomID domain.RoomID, password string) (*JoinAck, error) {
	uid := sess.UserID()
	room, err := o.Rooms.ByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return &JoinAck{ID: roomID, Status: JoinNotExist}, nil
		}
		return nil, err
	}

	ack := &JoinAck{ID: room.ID, Name: room.Name}
	exempt := room.IsCreator(uid) || room.IsMember(uid)

	if room.IsBanned(uid) {
		ack.Status = JoinBanned
		return ack, nil
	}
	if room.MembersOnly && !exempt {
		ack.Status = JoinMembersOnly
		return ack, nil
	}
	if room.Password != "" && !exempt && password != room.Password {
		ack.Status = JoinInvalidPassword
		return ack, nil
	}

	switch o.Registry.JoinRoom(sess, roomID, domain.RoomCapacity, exempt) {
	case core.RoomFull:
		ack.Status = JoinFull
		return ack, nil
	case core.NotRegistered:
		return nil, domain.Unauthorized("session is not registered")
	case core.JoinedNew:
		if msg, err := o.Chat.SyntheticRoomMessage(ctx, uid, roomID, domain.RoomMsgJoin, ""); err == nil {
			o.Fanout.ToRoom(roomID, core.NewRoomMessage{RoomMessage: *msg})
		}
		if err := o.Rooms.AddActiveRoom(ctx, uid, roomID); err != nil {
			return nil, err
		}
		o.fanRoomMembersCount(ctx, roomID)
	case core.AlreadyJoined:
		// Another device of the same user is re-entering; no side effects.
	}

	room.Online = o.onlineUsers(ctx, roomID)
	ack.Status = JoinSuccess
	ack.Room = room
	return ack, nil
}

// CreateRoom persists the room, auto-joins every live session of the
// creator, and seeds the feed with the creation entry.
func (o *Orchestrator) CreateRoom(ctx context.Context, creator domain.UserID, name domain.RoomName) (*domain.Room, error) {
	room, err := o.Rooms.Create(ctx, creator, name)
	if err != nil {
		return nil, err
	}
	for _, sess := range o.Registry.SessionsOf(creator) {
		o.Registry.JoinRoom(sess, room.ID, domain.RoomCapacity, true)
	}
	if err := o.Rooms.AddActiveRoom(ctx, creator, room.ID); err != nil {
		return nil, err
	}
	if msg, err := o.Chat.SyntheticRoomMessage(ctx, creator, room.ID, domain.RoomMsgCreate, ""); err == nil {
		o.Fanout.ToRoom(room.ID, core.NewRoomMessage{RoomMessage: *msg})
	}
	room.Online = o.onlineUsers(ctx, room.ID)
	return room, nil
}

// UpdateRoom applies the settings patch and pushes the fresh room document
// to everyone currently inside.
func (o *Orchestrator) UpdateRoom(ctx context.Context, actor domain.UserID, roomID domain.RoomID, patch domain.RoomPatch) (*domain.Room, error) {
	room, err := o.Rooms.Update(ctx, actor, roomID, patch)
	if err != nil {
		return nil, err
	}
	o.Fanout.ToRoom(roomID, core.UpdateRoom{Room: *room})
	return room, nil
}

// LeaveRoom is the persisted exit: every role drops, live sessions detach,
// and the remaining audience sees both the feed entry and the new document.
func (o *Orchestrator) LeaveRoom(ctx context.Context, user domain.UserID, roomID domain.RoomID) (*domain.Room, error) {
	room, err := o.Rooms.Leave(ctx, user, roomID)
	if err != nil {
		return nil, err
	}
	if msg, err := o.Chat.SyntheticRoomMessage(ctx, user, roomID, domain.RoomMsgLeave, ""); err == nil {
		o.Fanout.ToRoom(roomID, core.NewRoomMessage{RoomMessage: *msg})
	}
	if o.Registry.ForceLeaveRoom(user, roomID) {
		o.fanRoomMembersCount(ctx, roomID)
	}
	o.Fanout.ToRoom(roomID, core.UpdateRoom{Room: *room})
	return room, nil
}

type roleTransition func(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) (*app.RoleAction, error)

// finishRole fans out the consequences shared by every role change: the
// feed entry carrying the target's username, the refreshed room document to
// the audience and the target, and the personal notice to the target. Evict
// additionally severs the target's live presence first.
func (o *Orchestrator) finishRole(ctx context.Context, actor domain.UserID, act *app.RoleAction,
	notice func(core.Notice) core.Event, evict bool) error {

	room, err := o.Rooms.ByID(ctx, act.RoomID)
	if err != nil {
		return err
	}
	target, err := o.Users.ByID(ctx, act.Target)
	if err != nil {
		return err
	}

	if evict && o.Registry.ForceLeaveRoom(act.Target, act.RoomID) {
		o.fanRoomMembersCount(ctx, act.RoomID)
	}
	if msg, err := o.Chat.SyntheticRoomMessage(ctx, actor, act.RoomID, act.MessageType, target.Username); err == nil {
		o.Fanout.ToRoom(act.RoomID, core.NewRoomMessage{RoomMessage: *msg})
	}
	o.Fanout.ToRoom(act.RoomID, core.UpdateRoom{Room: *room})
	o.Fanout.ToUser(act.Target, core.UpdateRoom{Room: *room})
	o.Fanout.ToUser(act.Target, notice(core.Notice{
		UserID:   act.Target,
		RoomID:   act.RoomID,
		RoomName: room.Name,
	}))
	return nil
}

func (o *Orchestrator) roleAction(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID,
	do roleTransition, notice func(core.Notice) core.Event, evict bool) error {

	act, err := do(ctx, actor, target, roomID)
	if err != nil {
		return err
	}
	return o.finishRole(ctx, actor, act, notice, evict)
}

func (o *Orchestrator) KickUser(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) error {
	return o.roleAction(ctx, actor, target, roomID, o.Rooms.Kick,
		func(n core.Notice) core.Event { return core.UserKicked{Notice: n} }, true)
}

func (o *Orchestrator) BanUser(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) error {
	return o.roleAction(ctx, actor, target, roomID, o.Rooms.Ban,
		func(n core.Notice) core.Event { return core.UserBanned{Notice: n} }, true)
}

func (o *Orchestrator) UnbanUser(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) error {
	return o.roleAction(ctx, actor, target, roomID, o.Rooms.UnBan,
		func(n core.Notice) core.Event { return core.UserUnbanned{Notice: n} }, false)
}

func (o *Orchestrator) SetAdmin(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) error {
	return o.roleAction(ctx, actor, target, roomID, o.Rooms.SetAdmin,
		func(n core.Notice) core.Event { return core.SetAdmin{Notice: n} }, false)
}

func (o *Orchestrator) RemoveAdmin(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) error {
	return o.roleAction(ctx, actor, target, roomID, o.Rooms.RemoveAdmin,
		func(n core.Notice) core.Event { return core.RemoveAdmin{Notice: n} }, false)
}

func (o *Orchestrator) SetOwner(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) error {
	return o.roleAction(ctx, actor, target, roomID, o.Rooms.SetOwner,
		func(n core.Notice) core.Event { return core.SetOwner{Notice: n} }, false)
}

func (o *Orchestrator) RemoveOwner(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) error {
	return o.roleAction(ctx, actor, target, roomID, o.Rooms.RemoveOwner,
		func(n core.Notice) core.Event { return core.RemoveOwner{Notice: n} }, false)
}

func (o *Orchestrator) AddMember(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) error {
	return o.roleAction(ctx, actor, target, roomID, o.Rooms.AddMember,
		func(n core.Notice) core.Event { return core.SetMember{Notice: n} }, false)
}

func (o *Orchestrator) RemoveMember(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) error {
	return o.roleAction(ctx, actor, target, roomID, o.Rooms.RemoveMember,
		func(n core.Notice) core.Event { return core.RemoveMember{Notice: n} }, false)
}
