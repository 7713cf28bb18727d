// Package domain contains entities without logic, just meta-data.
package domain

import "time"

type UserID string

type User struct {
	ID               UserID     `bson:"_id,omitempty" json:"id"`
	Username         string     `bson:"username" json:"username"`
	Picture          string     `bson:"picture,omitempty" json:"picture,omitempty"`
	Status           string     `bson:"status,omitempty" json:"status,omitempty"`
	FCMTokens        []string   `bson:"fcm,omitempty" json:"-"`
	IsOnline         *bool      `bson:"isOnline,omitempty" json:"isOnline"`
	LastSeen         *time.Time `bson:"lastSeen,omitempty" json:"lastSeen"`
	IsHiddenActivity bool       `bson:"isHiddenActivity,omitempty" json:"-"`
	IsPrivateLock    bool       `bson:"isPrivateLock,omitempty" json:"-"`
	ActiveRooms      []RoomID   `bson:"activeRooms,omitempty" json:"-"`
	FavoriteRooms    []RoomID   `bson:"favoriteRooms,omitempty" json:"-"`
}

// PublicView strips presence details for observers the user hides from.
// IsOnline and LastSeen become unknown rather than false/zero.
func (u User) PublicView() User {
	if u.IsHiddenActivity {
		u.IsOnline = nil
		u.LastSeen = nil
	}
	return u
}
