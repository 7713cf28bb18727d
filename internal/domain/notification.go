package domain

import "time"

type NotificationType int

const (
	NotificationUnknown       NotificationType = -1
	NotificationFriendRequest NotificationType = 0
	NotificationNewMessage    NotificationType = 1
)

type Notification struct {
	ID        string           `bson:"_id,omitempty" json:"id"`
	OwnerID   UserID           `bson:"ownerId" json:"ownerId"`
	Type      NotificationType `bson:"type" json:"type"`
	UserID    UserID           `bson:"user,omitempty" json:"-"`
	User      *User            `bson:"-" json:"user,omitempty"`
	IsRead    bool             `bson:"isRead" json:"isRead"`
	CreatedAt time.Time        `bson:"createdAt" json:"createdAt"`
}
