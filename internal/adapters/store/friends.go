package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chatcore/chatcore/internal/domain"
)

type Friends struct {
	col *mongo.Collection
}

func (s *Friends) IsFriend(ctx context.Context, owner, user domain.UserID) (bool, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{
		"ownerId":    owner,
		"userId":     user,
		"isAccepted": true,
	}, options.Count().SetLimit(1))
	return count > 0, err
}

func (s *Friends) Get(ctx context.Context, owner, user domain.UserID) (*domain.Friend, error) {
	var f domain.Friend
	err := s.col.FindOne(ctx, bson.M{"ownerId": owner, "userId": user}).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Friends) FriendIDs(ctx context.Context, owner domain.UserID) ([]domain.UserID, error) {
	raw, err := s.col.Distinct(ctx, "userId", bson.M{"ownerId": owner, "isAccepted": true})
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

func (s *Friends) List(ctx context.Context, owner domain.UserID, page int) ([]domain.Friend, error) {
	return s.page(ctx, bson.M{"ownerId": owner, "isAccepted": true}, page)
}

// Requests lists pending rows targeting the user; the requester sits in
// ownerId.
func (s *Friends) Requests(ctx context.Context, user domain.UserID, page int) ([]domain.Friend, error) {
	return s.page(ctx, bson.M{"userId": user, "isAccepted": false}, page)
}

func (s *Friends) page(ctx context.Context, filter bson.M, page int) ([]domain.Friend, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skipFor(page)).
		SetLimit(pageSize)
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	friends := []domain.Friend{}
	if err := cur.All(ctx, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

func (s *Friends) Upsert(ctx context.Context, owner, user domain.UserID, accepted bool) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"ownerId": owner, "userId": user},
		bson.M{
			"$set": bson.M{"isAccepted": accepted},
			"$setOnInsert": bson.M{
				"_id":       primitive.NewObjectID().Hex(),
				"createdAt": time.Now(),
			},
		},
		options.Update().SetUpsert(true))
	return err
}

// Accept flips the request row in place and returns its prior state, so the
// caller can distinguish no-row, already-accepted and the real transition.
func (s *Friends) Accept(ctx context.Context, owner, user domain.UserID) (*domain.Friend, error) {
	var prior domain.Friend
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"ownerId": owner, "userId": user},
		bson.M{"$set": bson.M{"isAccepted": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&prior)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prior, nil
}

func (s *Friends) Delete(ctx context.Context, owner, user domain.UserID) (bool, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"ownerId": owner, "userId": user})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (s *Friends) DeletePair(ctx context.Context, a, b domain.UserID) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"ownerId": a, "userId": b},
		bson.M{"ownerId": b, "userId": a},
	}})
	return err
}

func (s *Friends) DeleteRequest(ctx context.Context, owner, user domain.UserID) (bool, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{
		"ownerId":    owner,
		"userId":     user,
		"isAccepted": false,
	})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
