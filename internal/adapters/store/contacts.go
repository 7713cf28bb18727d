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

type Contacts struct {
	col      *mongo.Collection
	messages *Messages
}

// EnsurePair upserts both directions of the conversation. The unique
// (owner, user) index absorbs concurrent first messages.
func (s *Contacts) EnsurePair(ctx context.Context, a, b domain.UserID) error {
	for _, pair := range [][2]domain.UserID{{a, b}, {b, a}} {
		_, err := s.col.UpdateOne(ctx,
			bson.M{"owner": pair[0], "user": pair[1]},
			bson.M{"$setOnInsert": bson.M{
				"_id":       primitive.NewObjectID().Hex(),
				"owner":     pair[0],
				"user":      pair[1],
				"createdAt": time.Now(),
			}},
			options.Update().SetUpsert(true))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Contacts) SetLastMessage(ctx context.Context, a, b domain.UserID, id domain.MessageID) error {
	_, err := s.col.UpdateMany(ctx,
		bson.M{"$or": bson.A{
			bson.M{"owner": a, "user": b},
			bson.M{"owner": b, "user": a},
		}},
		bson.M{"$set": bson.M{"lastMessage": id}})
	return err
}

// For lists the owner's contacts newest-activity-first with the last
// message hydrated. Unseen counts and user records are layered on by the
// service.
func (s *Contacts) For(ctx context.Context, owner domain.UserID) ([]domain.Contact, error) {
	cur, err := s.col.Find(ctx, bson.M{"owner": owner},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	contacts := []domain.Contact{}
	if err := cur.All(ctx, &contacts); err != nil {
		return nil, err
	}

	var msgIDs []domain.MessageID
	for _, c := range contacts {
		if c.LastMsgID != "" {
			msgIDs = append(msgIDs, c.LastMsgID)
		}
	}
	if len(msgIDs) > 0 {
		mcur, err := s.messages.col.Find(ctx, bson.M{"_id": bson.M{"$in": msgIDs}})
		if err != nil {
			return nil, err
		}
		var msgs []domain.PrivateMessage
		if err := mcur.All(ctx, &msgs); err != nil {
			return nil, err
		}
		byID := make(map[domain.MessageID]*domain.PrivateMessage, len(msgs))
		for i := range msgs {
			byID[msgs[i].ID] = &msgs[i]
		}
		for i := range contacts {
			contacts[i].LastMessage = byID[contacts[i].LastMsgID]
		}
	}
	return contacts, nil
}

func (s *Contacts) IDsFor(ctx context.Context, owner domain.UserID) ([]domain.UserID, error) {
	raw, err := s.col.Distinct(ctx, "user", bson.M{"owner": owner})
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
