package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chatcore/chatcore/internal/domain"
)

type Rooms struct {
	col *mongo.Collection
}

func (s *Rooms) Insert(ctx context.Context, r *domain.Room) (domain.RoomID, error) {
	id := domain.RoomID(primitive.NewObjectID().Hex())
	r.ID = id
	if _, err := s.col.InsertOne(ctx, r); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", domain.Conflict("room name already exists")
		}
		return "", err
	}
	return id, nil
}

func (s *Rooms) ByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	var r domain.Room
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Rooms) ByName(ctx context.Context, name domain.RoomName) (*domain.Room, error) {
	var r domain.Room
	err := s.col.FindOne(ctx, bson.M{"name": name}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Rooms) ByIDs(ctx context.Context, ids []domain.RoomID) ([]domain.Room, error) {
	if len(ids) == 0 {
		return []domain.Room{}, nil
	}
	cur, err := s.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	rooms := []domain.Room{}
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// Apply runs one role transition as a single conditional update: the
// condition is compiled into the filter, so condition and effect are atomic
// at the document level. MatchedCount tells whether the condition held.
func (s *Rooms) Apply(ctx context.Context, roomID domain.RoomID, actor, target domain.UserID,
	cond domain.RoleCond, change domain.RoleChange) (bool, error) {

	filter := bson.M{"_id": roomID}

	if len(cond.ActorAnyOf) > 0 {
		or := bson.A{}
		for _, set := range cond.ActorAnyOf {
			if set == domain.ActorCreator {
				or = append(or, bson.M{"creator": actor})
			} else {
				or = append(or, bson.M{string(set): actor})
			}
		}
		filter["$or"] = or
	}
	for _, set := range cond.TargetIn {
		filter[string(set)] = target
	}
	for _, set := range cond.TargetNotIn {
		filter[string(set)] = bson.M{"$ne": target}
	}
	if cond.TargetNotCreator {
		filter["creator"] = bson.M{"$ne": target}
	}

	update := bson.M{}
	if len(change.AddTo) > 0 {
		add := bson.M{}
		for _, set := range change.AddTo {
			add[string(set)] = target
		}
		update["$addToSet"] = add
	}
	if len(change.RemoveFrom) > 0 {
		pull := bson.M{}
		for _, set := range change.RemoveFrom {
			pull[string(set)] = target
		}
		update["$pull"] = pull
	}

	res, err := s.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *Rooms) PullAllRoles(ctx context.Context, roomID domain.RoomID, user domain.UserID) (*domain.Room, error) {
	var r domain.Room
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": roomID},
		bson.M{"$pull": bson.M{"members": user, "owners": user, "admins": user}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateInfo applies the patch iff the actor is the creator or an owner.
// A nil room with nil error means the permission filter matched nothing.
func (s *Rooms) UpdateInfo(ctx context.Context, roomID domain.RoomID, actor domain.UserID, patch domain.RoomPatch) (*domain.Room, error) {
	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Picture != nil {
		set["picture"] = *patch.Picture
	}
	if patch.MembersOnly != nil {
		set["membersOnly"] = *patch.MembersOnly
	}
	if patch.Password != nil {
		set["password"] = *patch.Password
	}
	if len(set) == 0 {
		return s.ByID(ctx, roomID)
	}

	var r domain.Room
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{
			"_id": roomID,
			"$or": bson.A{bson.M{"creator": actor}, bson.M{"owners": actor}},
		},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.Conflict("room name already exists")
		}
		return nil, err
	}
	return &r, nil
}

// Search matches names case-insensitively, hiding rooms the user is banned
// from.
func (s *Rooms) Search(ctx context.Context, query string, notBannedUser domain.UserID) ([]domain.Room, error) {
	filter := bson.M{
		"name":   bson.M{"$regex": query, "$options": "i"},
		"banned": bson.M{"$ne": notBannedUser},
	}
	cur, err := s.col.Find(ctx, filter, options.Find().SetLimit(pageSize))
	if err != nil {
		return nil, err
	}
	rooms := []domain.Room{}
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *Rooms) Page(ctx context.Context, page int) ([]domain.Room, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skipFor(page)).
		SetLimit(pageSize)
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	rooms := []domain.Room{}
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *Rooms) MemberRoomIDs(ctx context.Context, user domain.UserID) ([]domain.RoomID, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"creator": user},
		bson.M{"members": user},
		bson.M{"owners": user},
		bson.M{"admins": user},
	}}
	cur, err := s.col.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID domain.RoomID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]domain.RoomID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

// MemberIDs returns the authoritative member set. The creator is included
// even if it somehow left the members array.
func (s *Rooms) MemberIDs(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error) {
	room, err := s.ByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserID, 0, len(room.Members)+1)
	seen := make(map[domain.UserID]bool, len(room.Members)+1)
	for _, id := range append([]domain.UserID{room.CreatorID}, room.Members...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}
