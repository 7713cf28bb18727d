package domain

import "time"

type (
	RoomID   string
	RoomName string
)

// RoomCapacity is the live-member cap for public rooms. Creators and
// existing members are exempt and may always rejoin.
const RoomCapacity = 50

type Room struct {
	ID          RoomID     `bson:"_id,omitempty" json:"id"`
	Name        RoomName   `bson:"name" json:"name"`
	Picture     string     `bson:"picture,omitempty" json:"picture,omitempty"`
	CreatorID   UserID     `bson:"creator" json:"creatorId"`
	MembersOnly bool       `bson:"membersOnly" json:"membersOnly"`
	Password    string     `bson:"password,omitempty" json:"-"`
	Members     []UserID   `bson:"members" json:"members"`
	Owners      []UserID   `bson:"owners" json:"owners"`
	Admins      []UserID   `bson:"admins" json:"admins"`
	Banned      []UserID   `bson:"banned" json:"banned"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	IsFavorite  bool       `bson:"-" json:"isFavorite,omitempty"`
	Online      []User     `bson:"-" json:"online"`
}

func contains(ids []UserID, id UserID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (r *Room) IsCreator(id UserID) bool { return r.CreatorID == id }
func (r *Room) IsMember(id UserID) bool  { return contains(r.Members, id) }
func (r *Room) IsBanned(id UserID) bool  { return contains(r.Banned, id) }

// RoomPatch is the creator/owner-editable subset of a room.
type RoomPatch struct {
	Name        *RoomName `json:"name,omitempty"`
	Picture     *string   `json:"picture,omitempty"`
	MembersOnly *bool     `json:"membersOnly,omitempty"`
	Password    *string   `json:"password,omitempty"`
}

// Role is a room permission level. Creator sits above Owner and is not a
// set membership: it is a singular, immutable field on the room.
type Role int

const (
	RoleNone Role = iota
	RoleMember
	RoleAdmin
	RoleOwner
	RoleCreator
)

// RoleOf resolves the highest role the user holds in the room.
func (r *Room) RoleOf(id UserID) Role {
	switch {
	case r.CreatorID == id:
		return RoleCreator
	case contains(r.Owners, id):
		return RoleOwner
	case contains(r.Admins, id):
		return RoleAdmin
	case contains(r.Members, id):
		return RoleMember
	default:
		return RoleNone
	}
}
