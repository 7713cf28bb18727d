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

type Messages struct {
	col *mongo.Collection
}

func (s *Messages) Insert(ctx context.Context, m *domain.PrivateMessage) (domain.MessageID, error) {
	id := domain.MessageID(primitive.NewObjectID().Hex())
	m.ID = id
	if _, err := s.col.InsertOne(ctx, m); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Messages) ByID(ctx context.Context, id domain.MessageID) (*domain.PrivateMessage, error) {
	var m domain.PrivateMessage
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Conversation pages the thread newest-first. Messages the owner soft
// deleted are filtered out, as are messages blocked on receipt unless the
// owner is their sender.
func (s *Messages) Conversation(ctx context.Context, owner, counterpart domain.UserID, page int) ([]domain.PrivateMessage, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"senderId": owner, "receiverId": counterpart},
			bson.M{"senderId": counterpart, "receiverId": owner, "isBlock": false},
		},
		"deleted": bson.M{"$ne": owner},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skipFor(page)).
		SetLimit(pageSize)
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	msgs := []domain.PrivateMessage{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkSent stamps only messages still lacking the flag; a set flag is never
// rewritten.
func (s *Messages) MarkSent(ctx context.Context, ids []domain.MessageID, at time.Time) error {
	_, err := s.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "sentDate": nil, "isBlock": false},
		bson.M{"$set": bson.M{"sentDate": at}})
	return err
}

// MarkSeen stamps every unseen, unblocked message from sender to receiver
// and returns the affected ids. The id read and the update are two steps;
// a message inserted between them is caught by the next call.
func (s *Messages) MarkSeen(ctx context.Context, sender, receiver domain.UserID, at time.Time) ([]domain.MessageID, error) {
	filter := bson.M{
		"senderId":   sender,
		"receiverId": receiver,
		"seenDate":   nil,
		"isBlock":    false,
	}
	cur, err := s.col.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID domain.MessageID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]domain.MessageID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	_, err = s.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "seenDate": nil},
		bson.M{"$set": bson.M{"seenDate": at}})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Messages) UnsentFor(ctx context.Context, receiver domain.UserID) ([]domain.PrivateMessage, error) {
	cur, err := s.col.Find(ctx, bson.M{
		"receiverId": receiver,
		"sentDate":   nil,
		"isBlock":    false,
	})
	if err != nil {
		return nil, err
	}
	msgs := []domain.PrivateMessage{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Messages) PullReaction(ctx context.Context, id domain.MessageID, user domain.UserID) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$pull": bson.M{"reactions": bson.M{"userId": user}}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// AddReaction pushes the reaction only while the user has no reaction row
// on the message: the at-most-one guard rides the filter, so guard and push
// are one atomic update. A no-match against a live message reports
// ErrReactionExists and the caller re-pulls.
func (s *Messages) AddReaction(ctx context.Context, id domain.MessageID, r domain.Reaction) (*domain.PrivateMessage, error) {
	var m domain.PrivateMessage
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "reactions.userId": bson.M{"$ne": r.UserID}},
		bson.M{"$push": bson.M{"reactions": r}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, err := s.ByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrReactionExists
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Messages) HideFor(ctx context.Context, id domain.MessageID, viewer domain.UserID) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"deleted": viewer}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// UnseenCounts groups the owner's pending messages by sender in one
// aggregation instead of a query per contact.
func (s *Messages) UnseenCounts(ctx context.Context, owner domain.UserID, senders []domain.UserID) (map[domain.UserID]int, error) {
	if len(senders) == 0 {
		return map[domain.UserID]int{}, nil
	}
	cur, err := s.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"receiverId": owner,
			"senderId":   bson.M{"$in": senders},
			"seenDate":   nil,
			"isBlock":    false,
			"deleted":    bson.M{"$ne": owner},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$senderId",
			"count": bson.M{"$sum": 1},
		}}},
	})
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID    domain.UserID `bson:"_id"`
		Count int           `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[domain.UserID]int, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Count
	}
	return out, nil
}
