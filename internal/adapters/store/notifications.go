package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chatcore/chatcore/internal/domain"
)

type Notifications struct {
	col *mongo.Collection
}

func (s *Notifications) Insert(ctx context.Context, n *domain.Notification) error {
	n.ID = primitive.NewObjectID().Hex()
	_, err := s.col.InsertOne(ctx, n)
	return err
}

func (s *Notifications) UnreadExists(ctx context.Context, owner domain.UserID, t domain.NotificationType, user domain.UserID) (bool, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{
		"ownerId": owner,
		"type":    t,
		"user":    user,
		"isRead":  false,
	}, options.Count().SetLimit(1))
	return count > 0, err
}

func (s *Notifications) CountUnread(ctx context.Context, owner domain.UserID) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"ownerId": owner, "isRead": false})
}

func (s *Notifications) List(ctx context.Context, owner domain.UserID, page int) ([]domain.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skipFor(page)).
		SetLimit(pageSize)
	cur, err := s.col.Find(ctx, bson.M{"ownerId": owner}, opts)
	if err != nil {
		return nil, err
	}
	items := []domain.Notification{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Notifications) MarkRead(ctx context.Context, owner domain.UserID, id string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "ownerId": owner},
		bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.NotFoundErr("notification not found")
	}
	return nil
}

func (s *Notifications) DeleteFor(ctx context.Context, owner, user domain.UserID, t domain.NotificationType) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"ownerId": owner, "user": user, "type": t})
	return err
}
