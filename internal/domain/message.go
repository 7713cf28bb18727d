package domain

import "time"

type MessageID string

// MediaTypeAudio matches the client convention for voice attachments.
const MediaTypeAudio = 3

type Media struct {
	Type int    `bson:"type" json:"type"`
	URL  string `bson:"url" json:"url"`
}

// ReactionKind is a client-defined emoji class. The zero value is invalid;
// removal is expressed by reacting with no kind.
type ReactionKind int

type Reaction struct {
	UserID UserID       `bson:"userId" json:"userId"`
	Kind   ReactionKind `bson:"type" json:"type"`
	User   *User        `bson:"-" json:"user,omitempty"`
}

// PrivateMessage is the persisted unit of direct delivery. SentDate and
// SeenDate are independent monotonic flags: either may be set first, and
// neither is ever unset once set.
type PrivateMessage struct {
	ID         MessageID       `bson:"_id,omitempty" json:"id"`
	SenderID   UserID          `bson:"senderId" json:"senderId"`
	ReceiverID UserID          `bson:"receiverId" json:"receiverId"`
	Text       string          `bson:"text" json:"text"`
	Media      []Media         `bson:"media,omitempty" json:"media"`
	SentDate   *time.Time      `bson:"sentDate,omitempty" json:"sentDate"`
	SeenDate   *time.Time      `bson:"seenDate,omitempty" json:"seenDate"`
	IsBlock    bool            `bson:"isBlock" json:"isBlock"`
	Deleted    []UserID        `bson:"deleted,omitempty" json:"-"`
	ReplyTo    MessageID       `bson:"replyMessage,omitempty" json:"-"`
	Reply      *PrivateMessage `bson:"-" json:"replyMessage,omitempty"`
	Reactions  []Reaction      `bson:"reactions,omitempty" json:"reactions"`
	TempID     string          `bson:"-" json:"tempId,omitempty"`
	CreatedAt  time.Time       `bson:"createdAt" json:"createdAt"`
}

// RoomMessageType tags the synthetic and user-authored room feed entries.
type RoomMessageType int

const (
	RoomMsgCreate RoomMessageType = iota
	RoomMsgJoin
	RoomMsgLeave
	RoomMsgNormal
	RoomMsgBanned
	RoomMsgKick
	RoomMsgBecomeOwner
	RoomMsgBecomeAdmin
	RoomMsgBecomeMember
	RoomMsgRemoveOwner
	RoomMsgRemoveAdmin
	RoomMsgUnbanned
	RoomMsgRemoveMember
)

// RoomMessage is ephemeral: composed, broadcast to the room's live sessions
// and forgotten. There is no per-recipient delivery tracking.
type RoomMessage struct {
	ID        MessageID       `json:"id"`
	Sender    User            `json:"sender"`
	RoomID    RoomID          `json:"roomId"`
	Type      RoomMessageType `json:"type"`
	Text      string          `json:"text"`
	Media     []Media         `json:"media"`
	TempID    string          `json:"tempId,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
