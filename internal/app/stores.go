// Package app holds the domain services: they validate, persist through
// the store contracts, and return pure results. Fan-out is sequenced one
// layer up, in app/orch, so no service ever calls back into a transport.
package app

import (
	"context"
	"time"

	"github.com/chatcore/chatcore/internal/domain"
)

// UserStore is the user collection surface the services need.
type UserStore interface {
	ByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	ByIDs(ctx context.Context, ids []domain.UserID) ([]domain.User, error)
	SetConnectionStatus(ctx context.Context, id domain.UserID, online bool, lastSeen time.Time) error
	AddActiveRoom(ctx context.Context, id domain.UserID, roomID domain.RoomID) error
	AddFavoriteRoom(ctx context.Context, id domain.UserID, roomID domain.RoomID) error
	RemoveFavoriteRoom(ctx context.Context, id domain.UserID, roomID domain.RoomID) error
	// PullRoom removes the room from the user's active and favorite lists.
	PullRoom(ctx context.Context, id domain.UserID, roomID domain.RoomID) error
	AddFCMToken(ctx context.Context, id domain.UserID, token string) error
}

// MessageStore persists private messages and their delivery flags. MarkSent
// and MarkSeen are conditional updates over messages still lacking the
// flag; a flag, once set, is never touched again.
type MessageStore interface {
	Insert(ctx context.Context, m *domain.PrivateMessage) (domain.MessageID, error)
	ByID(ctx context.Context, id domain.MessageID) (*domain.PrivateMessage, error)
	Conversation(ctx context.Context, owner, counterpart domain.UserID, page int) ([]domain.PrivateMessage, error)
	MarkSent(ctx context.Context, ids []domain.MessageID, at time.Time) error
	MarkSeen(ctx context.Context, sender, receiver domain.UserID, at time.Time) ([]domain.MessageID, error)
	// UnsentFor lists unblocked messages to the receiver with no sent mark.
	UnsentFor(ctx context.Context, receiver domain.UserID) ([]domain.PrivateMessage, error)
	PullReaction(ctx context.Context, id domain.MessageID, user domain.UserID) error
	// AddReaction pushes the reaction only while the user holds none on the
	// message, reporting ErrReactionExists on a no-match so callers can pull
	// and retry.
	AddReaction(ctx context.Context, id domain.MessageID, r domain.Reaction) (*domain.PrivateMessage, error)
	HideFor(ctx context.Context, id domain.MessageID, viewer domain.UserID) error
	// UnseenCounts groups the owner's unseen, unblocked messages by sender.
	UnseenCounts(ctx context.Context, owner domain.UserID, senders []domain.UserID) (map[domain.UserID]int, error)
}

// ContactStore keeps the per-direction conversation summaries.
type ContactStore interface {
	// EnsurePair lazily upserts both directions of an (a, b) conversation.
	EnsurePair(ctx context.Context, a, b domain.UserID) error
	SetLastMessage(ctx context.Context, a, b domain.UserID, id domain.MessageID) error
	For(ctx context.Context, owner domain.UserID) ([]domain.Contact, error)
	IDsFor(ctx context.Context, owner domain.UserID) ([]domain.UserID, error)
}

// RoomStore owns the authoritative role sets. Apply runs one role
// transition as a single conditional update: the condition is evaluated and
// the change applied atomically, and a false return means the condition did
// not hold at that instant.
type RoomStore interface {
	Insert(ctx context.Context, r *domain.Room) (domain.RoomID, error)
	ByID(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	ByName(ctx context.Context, name domain.RoomName) (*domain.Room, error)
	ByIDs(ctx context.Context, ids []domain.RoomID) ([]domain.Room, error)
	Apply(ctx context.Context, roomID domain.RoomID, actor, target domain.UserID, cond domain.RoleCond, change domain.RoleChange) (bool, error)
	// PullAllRoles removes the user from members, owners and admins and
	// returns the updated room (voluntary leave).
	PullAllRoles(ctx context.Context, roomID domain.RoomID, user domain.UserID) (*domain.Room, error)
	UpdateInfo(ctx context.Context, roomID domain.RoomID, actor domain.UserID, patch domain.RoomPatch) (*domain.Room, error)
	Search(ctx context.Context, query string, notBannedUser domain.UserID) ([]domain.Room, error)
	Page(ctx context.Context, page int) ([]domain.Room, error)
	MemberRoomIDs(ctx context.Context, user domain.UserID) ([]domain.RoomID, error)
	MemberIDs(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error)
}

type NotificationStore interface {
	Insert(ctx context.Context, n *domain.Notification) error
	// UnreadExists reports a pending duplicate for (owner, type, user).
	UnreadExists(ctx context.Context, owner domain.UserID, t domain.NotificationType, user domain.UserID) (bool, error)
	CountUnread(ctx context.Context, owner domain.UserID) (int64, error)
	List(ctx context.Context, owner domain.UserID, page int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, owner domain.UserID, id string) error
	DeleteFor(ctx context.Context, owner, user domain.UserID, t domain.NotificationType) error
}

type FriendStore interface {
	// IsFriend reports an accepted friendship row owned by owner.
	IsFriend(ctx context.Context, owner, user domain.UserID) (bool, error)
	Get(ctx context.Context, owner, user domain.UserID) (*domain.Friend, error)
	FriendIDs(ctx context.Context, owner domain.UserID) ([]domain.UserID, error)
	List(ctx context.Context, owner domain.UserID, page int) ([]domain.Friend, error)
	Requests(ctx context.Context, user domain.UserID, page int) ([]domain.Friend, error)
	Upsert(ctx context.Context, owner, user domain.UserID, accepted bool) error
	// Accept flips the (owner, user) request row and returns its prior state.
	Accept(ctx context.Context, owner, user domain.UserID) (*domain.Friend, error)
	Delete(ctx context.Context, owner, user domain.UserID) (bool, error)
	DeletePair(ctx context.Context, a, b domain.UserID) error
	DeleteRequest(ctx context.Context, owner, user domain.UserID) (bool, error)
}

type BlockStore interface {
	Exists(ctx context.Context, owner, user domain.UserID) (bool, error)
	Upsert(ctx context.Context, owner, user domain.UserID) error
	Delete(ctx context.Context, owner, user domain.UserID) (bool, error)
	IDsFor(ctx context.Context, owner domain.UserID) ([]domain.UserID, error)
}

// PushSender is the narrow push-transport collaborator. Delivery is
// best-effort; implementations never surface transport failures.
type PushSender interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string) error
}
