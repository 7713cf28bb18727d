package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chatcore/chatcore/internal/domain"
)

type Users struct {
	col *mongo.Collection
}

func (s *Users) ByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var u domain.User
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Users) ByIDs(ctx context.Context, ids []domain.UserID) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	cur, err := s.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	users := []domain.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SetConnectionStatus writes the persisted presence flag. Only the offline
// edge carries a last-seen stamp; going online clears nothing.
func (s *Users) SetConnectionStatus(ctx context.Context, id domain.UserID, online bool, lastSeen time.Time) error {
	set := bson.M{"isOnline": online}
	if !online {
		set["lastSeen"] = lastSeen
	}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func (s *Users) AddActiveRoom(ctx context.Context, id domain.UserID, roomID domain.RoomID) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"activeRooms": roomID}})
	return err
}

func (s *Users) AddFavoriteRoom(ctx context.Context, id domain.UserID, roomID domain.RoomID) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"favoriteRooms": roomID}})
	return err
}

func (s *Users) RemoveFavoriteRoom(ctx context.Context, id domain.UserID, roomID domain.RoomID) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$pull": bson.M{"favoriteRooms": roomID}})
	return err
}

func (s *Users) PullRoom(ctx context.Context, id domain.UserID, roomID domain.RoomID) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$pull": bson.M{"activeRooms": roomID, "favoriteRooms": roomID}})
	return err
}

// AddFCMToken registers a device token, deduplicated.
func (s *Users) AddFCMToken(ctx context.Context, id domain.UserID, token string) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"fcm": token}})
	return err
}
