package domain

// RoleSet names one of a room's persisted role arrays. ActorCreator is a
// pseudo-set matching the room's creator field; it is only meaningful in a
// condition, never in a change.
type RoleSet string

const (
	SetMembers   RoleSet = "members"
	SetOwners    RoleSet = "owners"
	SetAdmins    RoleSet = "admins"
	SetBanned    RoleSet = "banned"
	ActorCreator RoleSet = "creator"
)

// RoleCond is the precondition half of a role transition, expressed as a
// filter so the store can apply condition and effect in one atomic update.
// A transition whose condition no longer holds matches nothing; the caller
// observes that instead of racing a concurrent actor.
type RoleCond struct {
	ActorAnyOf  []RoleSet
	TargetIn    []RoleSet
	TargetNotIn []RoleSet
	// TargetNotCreator guards the creator's permanence: no transition may
	// touch the creator's standing in the room.
	TargetNotCreator bool
}

// RoleChange is the effect half: sets the target id is added to and pulled
// from when the condition matches.
type RoleChange struct {
	AddTo      []RoleSet
	RemoveFrom []RoleSet
}
