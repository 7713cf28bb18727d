// Package memory implements the persistence contracts in process, with the
// same observable semantics as the mongo adapters. It backs the test suites
// and runs the server without a database in development.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chatcore/chatcore/internal/domain"
)

type Users struct {
	mu    sync.Mutex
	users map[domain.UserID]*domain.User
}

func NewUsers(users ...*domain.User) *Users {
	s := &Users{users: make(map[domain.UserID]*domain.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *Users) ByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Users) ByIDs(_ context.Context, ids []domain.UserID) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.User{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *Users) SetConnectionStatus(_ context.Context, id domain.UserID, online bool, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsOnline = &online
		if !online {
			u.LastSeen = &lastSeen
		}
	}
	return nil
}

func (s *Users) AddActiveRoom(_ context.Context, id domain.UserID, roomID domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ActiveRooms = addRoom(u.ActiveRooms, roomID)
	return nil
}

func (s *Users) AddFavoriteRoom(_ context.Context, id domain.UserID, roomID domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.FavoriteRooms = addRoom(u.FavoriteRooms, roomID)
	return nil
}

func (s *Users) RemoveFavoriteRoom(_ context.Context, id domain.UserID, roomID domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.FavoriteRooms = removeRoom(u.FavoriteRooms, roomID)
	}
	return nil
}

func (s *Users) PullRoom(_ context.Context, id domain.UserID, roomID domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.ActiveRooms = removeRoom(u.ActiveRooms, roomID)
		u.FavoriteRooms = removeRoom(u.FavoriteRooms, roomID)
	}
	return nil
}

func (s *Users) AddFCMToken(_ context.Context, id domain.UserID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	for _, t := range u.FCMTokens {
		if t == token {
			return nil
		}
	}
	u.FCMTokens = append(u.FCMTokens, token)
	return nil
}

func addRoom(rooms []domain.RoomID, id domain.RoomID) []domain.RoomID {
	for _, r := range rooms {
		if r == id {
			return rooms
		}
	}
	return append(rooms, id)
}

func removeRoom(rooms []domain.RoomID, id domain.RoomID) []domain.RoomID {
	out := rooms[:0]
	for _, r := range rooms {
		if r != id {
			out = append(out, r)
		}
	}
	return out
}

type Rooms struct {
	mu    sync.Mutex
	seq   int
	rooms map[domain.RoomID]*domain.Room
}

func NewRooms(rooms ...*domain.Room) *Rooms {
	s := &Rooms{rooms: make(map[domain.RoomID]*domain.Room)}
	for _, r := range rooms {
		s.rooms[r.ID] = r
	}
	return s
}

func (s *Rooms) Insert(_ context.Context, r *domain.Room) (domain.RoomID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rooms {
		if existing.Name == r.Name {
			return "", domain.Conflict("room name already exists")
		}
	}
	s.seq++
	id := domain.RoomID(fmt.Sprintf("room-%d", s.seq))
	cp := *r
	cp.ID = id
	s.rooms[id] = &cp
	return id, nil
}

func (s *Rooms) ByID(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Rooms) ByName(_ context.Context, name domain.RoomName) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrRoomNotFound
}

func (s *Rooms) ByIDs(_ context.Context, ids []domain.RoomID) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Room{}
	for _, id := range ids {
		if r, ok := s.rooms[id]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func setOf(r *domain.Room, set domain.RoleSet) *[]domain.UserID {
	switch set {
	case domain.SetMembers:
		return &r.Members
	case domain.SetOwners:
		return &r.Owners
	case domain.SetAdmins:
		return &r.Admins
	case domain.SetBanned:
		return &r.Banned
	}
	return nil
}

func inSet(ids []domain.UserID, id domain.UserID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Apply evaluates the whole condition against the current document and
// applies the change only when it holds, all under one lock, matching the
// atomicity of the mongo conditional update.
func (s *Rooms) Apply(_ context.Context, roomID domain.RoomID, actor, target domain.UserID,
	cond domain.RoleCond, change domain.RoleChange) (bool, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return false, nil
	}

	if len(cond.ActorAnyOf) > 0 {
		allowed := false
		for _, set := range cond.ActorAnyOf {
			if set == domain.ActorCreator {
				allowed = allowed || r.CreatorID == actor
			} else if roles := setOf(r, set); roles != nil {
				allowed = allowed || inSet(*roles, actor)
			}
		}
		if !allowed {
			return false, nil
		}
	}
	for _, set := range cond.TargetIn {
		if roles := setOf(r, set); roles == nil || !inSet(*roles, target) {
			return false, nil
		}
	}
	for _, set := range cond.TargetNotIn {
		if roles := setOf(r, set); roles != nil && inSet(*roles, target) {
			return false, nil
		}
	}
	if cond.TargetNotCreator && r.CreatorID == target {
		return false, nil
	}

	for _, set := range change.AddTo {
		if roles := setOf(r, set); roles != nil && !inSet(*roles, target) {
			*roles = append(*roles, target)
		}
	}
	for _, set := range change.RemoveFrom {
		if roles := setOf(r, set); roles != nil {
			*roles = removeUser(*roles, target)
		}
	}
	return true, nil
}

func removeUser(ids []domain.UserID, id domain.UserID) []domain.UserID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (s *Rooms) PullAllRoles(_ context.Context, roomID domain.RoomID, user domain.UserID) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	r.Members = removeUser(r.Members, user)
	r.Owners = removeUser(r.Owners, user)
	r.Admins = removeUser(r.Admins, user)
	cp := *r
	return &cp, nil
}

func (s *Rooms) UpdateInfo(_ context.Context, roomID domain.RoomID, actor domain.UserID, patch domain.RoomPatch) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	if r.CreatorID != actor && !inSet(r.Owners, actor) {
		return nil, nil
	}
	if patch.Name != nil {
		r.Name = *patch.Name
	}
	if patch.Picture != nil {
		r.Picture = *patch.Picture
	}
	if patch.MembersOnly != nil {
		r.MembersOnly = *patch.MembersOnly
	}
	if patch.Password != nil {
		r.Password = *patch.Password
	}
	cp := *r
	return &cp, nil
}

func (s *Rooms) Search(_ context.Context, query string, notBannedUser domain.UserID) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Room{}
	for _, r := range s.rooms {
		if strings.Contains(strings.ToLower(string(r.Name)), strings.ToLower(query)) && !inSet(r.Banned, notBannedUser) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *Rooms) Page(_ context.Context, _ int) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Room{}
	for _, r := range s.rooms {
		out = append(out, *r)
	}
	return out, nil
}

func (s *Rooms) MemberRoomIDs(_ context.Context, user domain.UserID) ([]domain.RoomID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.RoomID{}
	for id, r := range s.rooms {
		if r.CreatorID == user || inSet(r.Members, user) || inSet(r.Owners, user) || inSet(r.Admins, user) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Rooms) MemberIDs(_ context.Context, roomID domain.RoomID) ([]domain.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	out := []domain.UserID{r.CreatorID}
	for _, id := range r.Members {
		if id != r.CreatorID {
			out = append(out, id)
		}
	}
	return out, nil
}
