package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chatcore/chatcore/internal/domain"
)

// RoomService is the room membership and role authority. Every transition
// in the table below runs as one atomic conditional update through
// RoomStore.Apply: the precondition is the filter, the effect is the
// mutation, and a concurrent conflicting actor fails its own precondition
// instead of racing to an inconsistent role set.
type RoomService struct {
	rooms RoomStore
	users UserStore
}

func NewRoomService(rooms RoomStore, users UserStore) *RoomService {
	return &RoomService{rooms: rooms, users: users}
}

// RoleAction is what an accepted transition hands back to the orchestration
// layer: the feed entry type plus the ids needed for fan-out.
type RoleAction struct {
	RoomID      domain.RoomID
	Target      domain.UserID
	MessageType domain.RoomMessageType
}

var anyStaff = []domain.RoleSet{domain.ActorCreator, domain.SetOwners, domain.SetAdmins}
var creatorOrOwner = []domain.RoleSet{domain.ActorCreator, domain.SetOwners}
var creatorOnly = []domain.RoleSet{domain.ActorCreator}

// Create inserts a room with a globally unique name, the caller as creator
// and sole member. The unique index backs up the pre-check under races.
func (s *RoomService) Create(ctx context.Context, creator domain.UserID, name domain.RoomName) (*domain.Room, error) {
	if name == "" {
		return nil, domain.Validation("name is required")
	}
	if existing, err := s.rooms.ByName(ctx, name); err == nil && existing != nil {
		return nil, domain.Conflict("room name already exists")
	}
	room := &domain.Room{
		Name:      name,
		CreatorID: creator,
		Members:   []domain.UserID{creator},
		Owners:    []domain.UserID{},
		Admins:    []domain.UserID{},
		Banned:    []domain.UserID{},
		CreatedAt: time.Now(),
	}
	id, err := s.rooms.Insert(ctx, room)
	if err != nil {
		return nil, err
	}
	room.ID = id
	return room, nil
}

func (s *RoomService) ByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	return s.rooms.ByID(ctx, id)
}

// AddMember invites a user into the room (the "set-member" action).
func (s *RoomService) AddMember(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) (*RoleAction, error) {
	act, err := s.apply(ctx, roomID, actor, target,
		domain.RoleCond{
			ActorAnyOf:       anyStaff,
			TargetNotIn:      []domain.RoleSet{domain.SetMembers, domain.SetBanned},
			TargetNotCreator: true,
		},
		domain.RoleChange{AddTo: []domain.RoleSet{domain.SetMembers}},
		domain.RoomMsgBecomeMember,
		domain.Conflict("user is already a member or is banned"),
	)
	if err != nil {
		return nil, err
	}
	if err := s.users.AddActiveRoom(ctx, target, roomID); err != nil {
		return nil, err
	}
	return act, nil
}

// Kick changes no persisted role: it only severs the target's live presence
// in the room. The caller disconnects the sessions after this validates.
func (s *RoomService) Kick(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) (*RoleAction, error) {
	if actor == target {
		return nil, domain.ErrSelfAction
	}
	room, err := s.rooms.ByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.RoleOf(actor) < domain.RoleAdmin {
		return nil, domain.Unauthorized("you are not the creator, an owner or an admin")
	}
	if room.IsCreator(target) {
		return nil, domain.Unauthorized("the creator cannot be kicked")
	}
	if err := s.users.PullRoom(ctx, target, roomID); err != nil {
		return nil, err
	}
	return &RoleAction{RoomID: roomID, Target: target, MessageType: domain.RoomMsgKick}, nil
}

func (s *RoomService) RemoveMember(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) (*RoleAction, error) {
	return s.apply(ctx, roomID, actor, target,
		domain.RoleCond{
			ActorAnyOf:       anyStaff,
			TargetIn:         []domain.RoleSet{domain.SetMembers},
			TargetNotCreator: true,
		},
		domain.RoleChange{RemoveFrom: []domain.RoleSet{domain.SetMembers}},
		domain.RoomMsgRemoveMember,
		domain.Conflict("user is not a member"),
	)
}

// Ban moves the target from whatever role it held into the banned set. The
// creator is immune. The caller force-disconnects live sessions afterward.
func (s *RoomService) Ban(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) (*RoleAction, error) {
	act, err := s.apply(ctx, roomID, actor, target,
		domain.RoleCond{
			ActorAnyOf:       anyStaff,
			TargetNotIn:      []domain.RoleSet{domain.SetBanned},
			TargetNotCreator: true,
		},
		domain.RoleChange{
			AddTo:      []domain.RoleSet{domain.SetBanned},
			RemoveFrom: []domain.RoleSet{domain.SetMembers, domain.SetOwners, domain.SetAdmins},
		},
		domain.RoomMsgBanned,
		domain.Conflict("user is already banned"),
	)
	if err != nil {
		return nil, err
	}
	if err := s.users.PullRoom(ctx, target, roomID); err != nil {
		return nil, err
	}
	return act, nil
}

// UnBan releases the target from the banned set only; no prior role is
// restored.
func (s *RoomService) UnBan(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) (*RoleAction, error) {
	return s.apply(ctx, roomID, actor, target,
		domain.RoleCond{
			ActorAnyOf:       anyStaff,
			TargetIn:         []domain.RoleSet{domain.SetBanned},
			TargetNotCreator: true,
		},
		domain.RoleChange{RemoveFrom: []domain.RoleSet{domain.SetBanned}},
		domain.RoomMsgUnbanned,
		domain.Conflict("user is not banned"),
	)
}

// SetAdmin promotes to admin, ensuring membership and dropping any owner
// role in the same update.
func (s *RoomService) SetAdmin(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) (*RoleAction, error) {
	act, err := s.apply(ctx, roomID, actor, target,
		domain.RoleCond{ActorAnyOf: creatorOrOwner, TargetNotCreator: true},
		domain.RoleChange{
			AddTo:      []domain.RoleSet{domain.SetMembers, domain.SetAdmins},
			RemoveFrom: []domain.RoleSet{domain.SetOwners},
		},
		domain.RoomMsgBecomeAdmin,
		domain.Conflict("user cannot become admin"),
	)
	if err != nil {
		return nil, err
	}
	if err := s.users.AddActiveRoom(ctx, target, roomID); err != nil {
		return nil, err
	}
	return act, nil
}

// RemoveAdmin is a full eviction: admins, owners and members all drop.
func (s *RoomService) RemoveAdmin(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) (*RoleAction, error) {
	return s.apply(ctx, roomID, actor, target,
		domain.RoleCond{
			ActorAnyOf:       creatorOrOwner,
			TargetIn:         []domain.RoleSet{domain.SetAdmins},
			TargetNotCreator: true,
		},
		domain.RoleChange{RemoveFrom: []domain.RoleSet{domain.SetAdmins, domain.SetOwners, domain.SetMembers}},
		domain.RoomMsgRemoveAdmin,
		domain.Conflict("user is not an admin"),
	)
}

// SetOwner is reserved to the creator.
func (s *RoomService) SetOwner(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) (*RoleAction, error) {
	act, err := s.apply(ctx, roomID, actor, target,
		domain.RoleCond{ActorAnyOf: creatorOnly, TargetNotCreator: true},
		domain.RoleChange{
			AddTo:      []domain.RoleSet{domain.SetMembers, domain.SetOwners},
			RemoveFrom: []domain.RoleSet{domain.SetAdmins},
		},
		domain.RoomMsgBecomeOwner,
		domain.Conflict("user cannot become owner"),
	)
	if err != nil {
		return nil, err
	}
	if err := s.users.AddActiveRoom(ctx, target, roomID); err != nil {
		return nil, err
	}
	return act, nil
}

// RemoveOwner is a full eviction, creator only.
func (s *RoomService) RemoveOwner(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) (*RoleAction, error) {
	return s.apply(ctx, roomID, actor, target,
		domain.RoleCond{
			ActorAnyOf:       creatorOnly,
			TargetIn:         []domain.RoleSet{domain.SetOwners},
			TargetNotCreator: true,
		},
		domain.RoleChange{RemoveFrom: []domain.RoleSet{domain.SetOwners, domain.SetAdmins, domain.SetMembers}},
		domain.RoomMsgRemoveOwner,
		domain.Conflict("user is not an owner"),
	)
}

// Leave is the voluntary exit: every role the user held is dropped.
func (s *RoomService) Leave(ctx context.Context, user domain.UserID, roomID domain.RoomID) (*domain.Room, error) {
	room, err := s.rooms.PullAllRoles(ctx, roomID, user)
	if err != nil {
		return nil, err
	}
	if err := s.users.PullRoom(ctx, user, roomID); err != nil {
		return nil, err
	}
	return room, nil
}

// Update edits room settings; only the creator or an owner may.
func (s *RoomService) Update(ctx context.Context, actor domain.UserID, roomID domain.RoomID, patch domain.RoomPatch) (*domain.Room, error) {
	room, err := s.rooms.UpdateInfo(ctx, roomID, actor, patch)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.Unauthorized("room not found or you are not the creator or an owner")
	}
	return room, nil
}

func (s *RoomService) Search(ctx context.Context, user domain.UserID, query string) ([]domain.Room, error) {
	return s.rooms.Search(ctx, query, user)
}

func (s *RoomService) Public(ctx context.Context, user domain.UserID, page int) ([]domain.Room, error) {
	rooms, err := s.rooms.Page(ctx, page)
	if err != nil {
		return nil, err
	}
	s.flagFavorites(ctx, user, rooms)
	return rooms, nil
}

// flagFavorites marks the rooms the user has favorited. Listing decoration
// only; a failed user read just leaves the flags unset.
func (s *RoomService) flagFavorites(ctx context.Context, user domain.UserID, rooms []domain.Room) {
	u, err := s.users.ByID(ctx, user)
	if err != nil {
		return
	}
	fav := make(map[domain.RoomID]bool, len(u.FavoriteRooms))
	for _, id := range u.FavoriteRooms {
		fav[id] = true
	}
	for i := range rooms {
		rooms[i].IsFavorite = fav[rooms[i].ID]
	}
}

// Active combines rooms the user is a member of with rooms it has joined
// as a visitor.
func (s *RoomService) Active(ctx context.Context, user domain.UserID) ([]domain.Room, error) {
	var (
		memberIDs []domain.RoomID
		u         *domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		memberIDs, err = s.rooms.MemberRoomIDs(gctx, user)
		return err
	})
	g.Go(func() (err error) {
		u, err = s.users.ByID(gctx, user)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := append([]domain.RoomID{}, u.ActiveRooms...)
	known := make(map[domain.RoomID]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	for _, id := range memberIDs {
		if !known[id] {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []domain.Room{}, nil
	}
	return s.rooms.ByIDs(ctx, ids)
}

func (s *RoomService) Favorites(ctx context.Context, user domain.UserID) ([]domain.Room, error) {
	u, err := s.users.ByID(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(u.FavoriteRooms) == 0 {
		return []domain.Room{}, nil
	}
	return s.rooms.ByIDs(ctx, u.FavoriteRooms)
}

func (s *RoomService) AddFavorite(ctx context.Context, user domain.UserID, roomID domain.RoomID) error {
	return s.users.AddFavoriteRoom(ctx, user, roomID)
}

func (s *RoomService) RemoveFavorite(ctx context.Context, user domain.UserID, roomID domain.RoomID) error {
	return s.users.RemoveFavoriteRoom(ctx, user, roomID)
}

// MemberIDs resolves the authoritative member set, the basis for "who in
// this room is reachable now".
func (s *RoomService) MemberIDs(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error) {
	return s.rooms.MemberIDs(ctx, roomID)
}

// AddActiveRoom records a visited room on the user document.
func (s *RoomService) AddActiveRoom(ctx context.Context, user domain.UserID, roomID domain.RoomID) error {
	return s.users.AddActiveRoom(ctx, user, roomID)
}

// apply runs one transition and, when the condition did not match,
// re-reads the room to report which rule was violated. The re-read is
// diagnostic only; the authoritative decision was the atomic update.
func (s *RoomService) apply(ctx context.Context, roomID domain.RoomID, actor, target domain.UserID,
	cond domain.RoleCond, change domain.RoleChange, msgType domain.RoomMessageType, conflict error) (*RoleAction, error) {

	if actor == target {
		return nil, domain.ErrSelfAction
	}
	if target == "" {
		return nil, domain.Validation("target user is required")
	}
	matched, err := s.rooms.Apply(ctx, roomID, actor, target, cond, change)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, s.explain(ctx, roomID, actor, target, cond, conflict)
	}
	return &RoleAction{RoomID: roomID, Target: target, MessageType: msgType}, nil
}

func (s *RoomService) explain(ctx context.Context, roomID domain.RoomID, actor, target domain.UserID,
	cond domain.RoleCond, conflict error) error {

	room, err := s.rooms.ByID(ctx, roomID)
	if err != nil {
		return err
	}
	if !actorAllowed(room, actor, cond.ActorAnyOf) {
		switch len(cond.ActorAnyOf) {
		case 1:
			return domain.Unauthorized("you are not the creator")
		case 2:
			return domain.Unauthorized("you are not the creator or an owner")
		default:
			return domain.Unauthorized("you are not the creator, an owner or an admin")
		}
	}
	if room.IsCreator(target) {
		return domain.Unauthorized("the creator's role cannot be changed")
	}
	return conflict
}

func actorAllowed(room *domain.Room, actor domain.UserID, sets []domain.RoleSet) bool {
	for _, set := range sets {
		switch set {
		case domain.ActorCreator:
			if room.CreatorID == actor {
				return true
			}
		case domain.SetOwners:
			if room.RoleOf(actor) == domain.RoleOwner {
				return true
			}
		case domain.SetAdmins:
			if room.RoleOf(actor) == domain.RoleAdmin {
				return true
			}
		}
	}
	return false
}
