package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chatcore/chatcore/internal/domain"
)

type Blocks struct {
	col *mongo.Collection
}

func (s *Blocks) Exists(ctx context.Context, owner, user domain.UserID) (bool, error) {
	count, err := s.col.CountDocuments(ctx,
		bson.M{"ownerId": owner, "userId": user},
		options.Count().SetLimit(1))
	return count > 0, err
}

func (s *Blocks) Upsert(ctx context.Context, owner, user domain.UserID) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"ownerId": owner, "userId": user},
		bson.M{"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID().Hex(),
			"createdAt": time.Now(),
		}},
		options.Update().SetUpsert(true))
	return err
}

func (s *Blocks) Delete(ctx context.Context, owner, user domain.UserID) (bool, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"ownerId": owner, "userId": user})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (s *Blocks) IDsFor(ctx context.Context, owner domain.UserID) ([]domain.UserID, error) {
	raw, err := s.col.Distinct(ctx, "userId", bson.M{"ownerId": owner})
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			out = append(out, domain.UserID(id))
		}
	}
	return out, nil
}
