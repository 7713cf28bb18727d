package core

import (
	"encoding/json"

	"github.com/chatcore/chatcore/internal/domain"
)

// Event is one outbound wire event. Every event name has exactly one
// variant type carrying its fixed field set, so the wire contract is
// checkable at compile time instead of being a bag of maps.
type Event interface {
	Name() string
}

// Envelope is the socket framing: {event, data}.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func Encode(ev Event) ([]byte, error) {
	return json.Marshal(Envelope{Event: ev.Name(), Data: ev})
}

type NewPrivateMessage struct {
	domain.PrivateMessage
}

func (NewPrivateMessage) Name() string { return "new-private-message" }

type NewRoomMessage struct {
	domain.RoomMessage
}

func (NewRoomMessage) Name() string { return "new-room-message" }

type UpdateRoom struct {
	domain.Room
}

func (UpdateRoom) Name() string { return "update-room" }

type MessagesSent struct {
	UserID      domain.UserID      `json:"userId"`
	MessagesIDs []domain.MessageID `json:"messagesIds"`
}

func (MessagesSent) Name() string { return "private-messages-is-sent" }

type MessagesSeen struct {
	UserID      domain.UserID      `json:"userId"`
	MessagesIDs []domain.MessageID `json:"messagesIds"`
}

func (MessagesSeen) Name() string { return "private-messages-is-seen" }

// UserOnlineStatus reports a presence edge to friends and conversation
// partners. Status and LastSeen are null when the user hides activity.
type UserOnlineStatus struct {
	UserID   domain.UserID `json:"userId"`
	Status   *bool         `json:"status"`
	LastSeen *int64        `json:"lastSeen"`
}

func (UserOnlineStatus) Name() string { return "user-online-status" }

type NotificationsCount struct {
	Count int64 `json:"count"`
}

func (NotificationsCount) Name() string { return "notifications-count" }

type UpdateFriends struct{}

func (UpdateFriends) Name() string { return "update-friends" }

type RefreshContacts struct{}

func (RefreshContacts) Name() string { return "refresh-contacts" }

type WritingMessage struct {
	UserID domain.UserID `json:"userId"`
	Status bool          `json:"status"`
}

func (WritingMessage) Name() string { return "writing-message" }

type RoomMembersCount struct {
	ID     domain.RoomID `json:"id"`
	Online []domain.User `json:"online"`
}

func (RoomMembersCount) Name() string { return "room-members-count" }

// Notice is the shared payload of the per-room-role events.
type Notice struct {
	UserID   domain.UserID   `json:"userId"`
	RoomID   domain.RoomID   `json:"roomId"`
	RoomName domain.RoomName `json:"roomName"`
}

type UserKicked struct{ Notice }

func (UserKicked) Name() string { return "user-kicked" }

type UserBanned struct{ Notice }

func (UserBanned) Name() string { return "user-banned" }

type UserUnbanned struct{ Notice }

func (UserUnbanned) Name() string { return "un-ban" }

type SetAdmin struct{ Notice }

func (SetAdmin) Name() string { return "set-admin" }

type RemoveAdmin struct{ Notice }

func (RemoveAdmin) Name() string { return "remove-admin" }

type SetOwner struct{ Notice }

func (SetOwner) Name() string { return "set-owner" }

type RemoveOwner struct{ Notice }

func (RemoveOwner) Name() string { return "remove-owner" }

type SetMember struct{ Notice }

func (SetMember) Name() string { return "set-member" }

type RemoveMember struct{ Notice }

func (RemoveMember) Name() string { return "remove-member" }
