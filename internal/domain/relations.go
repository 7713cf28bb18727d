package domain

import "time"

// Friend rows come in mirrored pairs once accepted; a pending request is a
// single row owned by the requester with IsAccepted false.
type Friend struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	OwnerID    UserID    `bson:"ownerId" json:"-"`
	UserID     UserID    `bson:"userId" json:"userId"`
	IsAccepted bool      `bson:"isAccepted" json:"-"`
	User       *User     `bson:"-" json:"user,omitempty"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

// Block is one-directional: the owner no longer accepts anything from the
// blocked user, while the blocked side keeps sending into the void.
type Block struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	OwnerID   UserID    `bson:"ownerId" json:"-"`
	UserID    UserID    `bson:"userId" json:"userId"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
