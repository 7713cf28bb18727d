package app

import (
	"context"
	"testing"

	"github.com/chatcore/chatcore/internal/adapters/store/memory"
	"github.com/chatcore/chatcore/internal/domain"
)

// testRoom builds a room with creator, one owner, one admin, one plain
// member and one banned user.
func testRoom() *domain.Room {
	return &domain.Room{
		ID:        "r1",
		Name:      "general",
		CreatorID: "creator",
		Members:   []domain.UserID{"creator", "owner", "admin", "member"},
		Owners:    []domain.UserID{"owner"},
		Admins:    []domain.UserID{"admin"},
		Banned:    []domain.UserID{"outcast"},
	}
}

func newRoomFixture() (*RoomService, *memory.Rooms, *memory.Users) {
	rooms := memory.NewRooms(testRoom())
	users := memory.NewUsers(
		&domain.User{ID: "creator"}, &domain.User{ID: "owner"},
		&domain.User{ID: "admin"}, &domain.User{ID: "member"},
		&domain.User{ID: "outcast"}, &domain.User{ID: "newbie"},
	)
	return NewRoomService(rooms, users), rooms, users
}

func TestCreateRoom(t *testing.T) {
	svc, _, _ := newRoomFixture()
	ctx := context.Background()

	room, err := svc.Create(ctx, "creator", "another")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if room.CreatorID != "creator" {
		t.Errorf("creator = %q", room.CreatorID)
	}
	if len(room.Members) != 1 || room.Members[0] != "creator" {
		t.Errorf("members = %v, want just the creator", room.Members)
	}

	if _, err := svc.Create(ctx, "creator", "another"); err == nil {
		t.Fatal("duplicate name accepted")
	} else if kind, _ := domain.KindOf(err); kind != domain.KindConflict {
		t.Errorf("duplicate name error kind = %v, want conflict", kind)
	}

	if _, err := svc.Create(ctx, "creator", ""); err == nil {
		t.Fatal("empty name accepted")
	}
}

func TestRoleTransitionTable(t *testing.T) {
	type result struct {
		err  bool
		kind domain.ErrKind
	}
	ok := result{}
	unauthorized := result{err: true, kind: domain.KindAuthorization}
	conflict := result{err: true, kind: domain.KindConflict}
	validation := result{err: true, kind: domain.KindValidation}

	cases := []struct {
		name   string
		run    func(svc *RoomService) (*RoleAction, error)
		want   result
		verify func(t *testing.T, rooms *memory.Rooms)
	}{
		{
			name: "admin bans member",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.Ban(context.Background(), "admin", "member", "r1")
			},
			want: ok,
			verify: func(t *testing.T, rooms *memory.Rooms) {
				r, _ := rooms.ByID(context.Background(), "r1")
				if !r.IsBanned("member") {
					t.Error("target not in banned set")
				}
				if r.IsMember("member") {
					t.Error("banned target still a member")
				}
			},
		},
		{
			name: "member cannot ban",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.Ban(context.Background(), "member", "admin", "r1")
			},
			want: unauthorized,
		},
		{
			name: "creator is immune to ban",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.Ban(context.Background(), "owner", "creator", "r1")
			},
			want: unauthorized,
		},
		{
			name: "double ban conflicts",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.Ban(context.Background(), "admin", "outcast", "r1")
			},
			want: conflict,
		},
		{
			name: "self action rejected",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.Ban(context.Background(), "admin", "admin", "r1")
			},
			want: validation,
		},
		{
			name: "unban releases without restoring roles",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.UnBan(context.Background(), "admin", "outcast", "r1")
			},
			want: ok,
			verify: func(t *testing.T, rooms *memory.Rooms) {
				r, _ := rooms.ByID(context.Background(), "r1")
				if r.IsBanned("outcast") {
					t.Error("target still banned")
				}
				if r.IsMember("outcast") {
					t.Error("unban must not grant membership")
				}
			},
		},
		{
			name: "unban of non-banned conflicts",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.UnBan(context.Background(), "admin", "member", "r1")
			},
			want: conflict,
		},
		{
			name: "owner promotes member to admin",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.SetAdmin(context.Background(), "owner", "member", "r1")
			},
			want: ok,
			verify: func(t *testing.T, rooms *memory.Rooms) {
				r, _ := rooms.ByID(context.Background(), "r1")
				if r.RoleOf("member") != domain.RoleAdmin {
					t.Errorf("role = %v, want admin", r.RoleOf("member"))
				}
			},
		},
		{
			name: "admin cannot promote to admin",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.SetAdmin(context.Background(), "admin", "member", "r1")
			},
			want: unauthorized,
		},
		{
			name: "only creator sets owner",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.SetOwner(context.Background(), "owner", "member", "r1")
			},
			want: unauthorized,
		},
		{
			name: "creator promotes admin to owner",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.SetOwner(context.Background(), "creator", "admin", "r1")
			},
			want: ok,
			verify: func(t *testing.T, rooms *memory.Rooms) {
				r, _ := rooms.ByID(context.Background(), "r1")
				if r.RoleOf("admin") != domain.RoleOwner {
					t.Errorf("role = %v, want owner", r.RoleOf("admin"))
				}
			},
		},
		{
			name: "remove admin evicts fully",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.RemoveAdmin(context.Background(), "owner", "admin", "r1")
			},
			want: ok,
			verify: func(t *testing.T, rooms *memory.Rooms) {
				r, _ := rooms.ByID(context.Background(), "r1")
				if r.RoleOf("admin") != domain.RoleNone {
					t.Errorf("role = %v, want none after eviction", r.RoleOf("admin"))
				}
			},
		},
		{
			name: "remove owner is creator only",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.RemoveOwner(context.Background(), "admin", "owner", "r1")
			},
			want: unauthorized,
		},
		{
			name: "set member admits a newcomer",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.AddMember(context.Background(), "admin", "newbie", "r1")
			},
			want: ok,
			verify: func(t *testing.T, rooms *memory.Rooms) {
				r, _ := rooms.ByID(context.Background(), "r1")
				if !r.IsMember("newbie") {
					t.Error("target not admitted")
				}
			},
		},
		{
			name: "set member rejects banned target",
			run: func(svc *RoomService) (*RoleAction, error) {
				return svc.AddMember(context.Background(), "admin", "outcast", "r1")
			},
			want: conflict,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, rooms, _ := newRoomFixture()
			act, err := tc.run(svc)
			if tc.want.err {
				if err == nil {
					t.Fatal("expected error")
				}
				if kind, okKind := domain.KindOf(err); !okKind || kind != tc.want.kind {
					t.Fatalf("error kind = %v (%v), want %v", kind, err, tc.want.kind)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if act == nil || act.RoomID != "r1" {
				t.Fatalf("action = %+v", act)
			}
			if tc.verify != nil {
				tc.verify(t, rooms)
			}
		})
	}
}

// After any transition, the role sets stay disjoint: a user holds exactly
// one persisted role besides the creator field.
func TestRoleSetsStayDisjoint(t *testing.T) {
	svc, rooms, _ := newRoomFixture()
	ctx := context.Background()

	if _, err := svc.SetAdmin(ctx, "creator", "member", "r1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetOwner(ctx, "creator", "member", "r1"); err != nil {
		t.Fatal(err)
	}

	r, _ := rooms.ByID(ctx, "r1")
	inAdmins := inSet(r.Admins, "member")
	inOwners := inSet(r.Owners, "member")
	if inAdmins || !inOwners {
		t.Errorf("admins=%v owners=%v, want promotion to owner to drop admin", inAdmins, inOwners)
	}
}

func TestKickValidatesButPersistsNothing(t *testing.T) {
	svc, rooms, _ := newRoomFixture()
	ctx := context.Background()

	act, err := svc.Kick(ctx, "admin", "member", "r1")
	if err != nil {
		t.Fatalf("Kick() error = %v", err)
	}
	if act.MessageType != domain.RoomMsgKick {
		t.Errorf("message type = %v", act.MessageType)
	}
	r, _ := rooms.ByID(ctx, "r1")
	if !r.IsMember("member") {
		t.Error("kick must not change persisted membership")
	}

	if _, err := svc.Kick(ctx, "member", "admin", "r1"); err == nil {
		t.Fatal("member allowed to kick")
	}
	if _, err := svc.Kick(ctx, "admin", "creator", "r1"); err == nil {
		t.Fatal("creator kicked")
	}
}

func TestLeaveDropsEveryRole(t *testing.T) {
	svc, rooms, users := newRoomFixture()
	ctx := context.Background()
	_ = users.AddActiveRoom(ctx, "owner", "r1")

	room, err := svc.Leave(ctx, "owner", "r1")
	if err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if room.RoleOf("owner") != domain.RoleNone {
		t.Errorf("role after leave = %v", room.RoleOf("owner"))
	}
	r, _ := rooms.ByID(ctx, "r1")
	if inSet(r.Owners, "owner") || inSet(r.Members, "owner") {
		t.Error("leave left residual roles")
	}
	u, _ := users.ByID(ctx, "owner")
	for _, id := range u.ActiveRooms {
		if id == "r1" {
			t.Error("room still on the user's active list")
		}
	}
}

func TestUpdateRoomPermission(t *testing.T) {
	svc, _, _ := newRoomFixture()
	ctx := context.Background()
	name := domain.RoomName("renamed")

	room, err := svc.Update(ctx, "owner", "r1", domain.RoomPatch{Name: &name})
	if err != nil {
		t.Fatalf("Update() by owner error = %v", err)
	}
	if room.Name != "renamed" {
		t.Errorf("name = %q", room.Name)
	}

	if _, err := svc.Update(ctx, "admin", "r1", domain.RoomPatch{Name: &name}); err == nil {
		t.Fatal("admin allowed to update room settings")
	} else if kind, _ := domain.KindOf(err); kind != domain.KindAuthorization {
		t.Errorf("error kind = %v, want authorization", kind)
	}
}

func TestActiveCombinesMembershipAndVisits(t *testing.T) {
	rooms := memory.NewRooms(testRoom(),
		&domain.Room{ID: "r2", Name: "visited", CreatorID: "someone"})
	users := memory.NewUsers(&domain.User{ID: "member"})
	svc := NewRoomService(rooms, users)
	ctx := context.Background()
	_ = users.AddActiveRoom(ctx, "member", "r2")

	got, err := svc.Active(ctx, "member")
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	ids := map[domain.RoomID]bool{}
	for _, r := range got {
		ids[r.ID] = true
	}
	if !ids["r1"] || !ids["r2"] {
		t.Errorf("active rooms = %v, want r1 (membership) and r2 (visit)", ids)
	}
}
