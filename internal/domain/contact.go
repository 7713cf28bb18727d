package domain

import "time"

// Contact is the per-direction conversation summary: one row per ordered
// (owner, counterpart) pair, created lazily on first message.
type Contact struct {
	ID          string          `bson:"_id,omitempty" json:"id"`
	OwnerID     UserID          `bson:"owner" json:"-"`
	UserID      UserID          `bson:"user" json:"-"`
	User        *User           `bson:"-" json:"user"`
	LastMessage *PrivateMessage `bson:"-" json:"lastMessage,omitempty"`
	LastMsgID   MessageID       `bson:"lastMessage,omitempty" json:"-"`
	UnseenCount int             `bson:"-" json:"unSeenCount"`
	IsBlock     bool            `bson:"-" json:"isBlock"`
	CreatedAt   time.Time       `bson:"createdAt" json:"createdAt"`
}
