// Package store implements the persistence contracts over MongoDB. One
// type per collection; documents carry string ids minted as ObjectID hex
// on insert so the domain layer never sees driver types.
package store

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const pageSize = 20

// skipFor translates a 1-based page number to an offset.
func skipFor(page int) int64 {
	if page < 1 {
		page = 1
	}
	return int64(page-1) * pageSize
}

// DB bundles the collection-backed stores over one client.
type DB struct {
	client *mongo.Client
	db     *mongo.Database

	Users         *Users
	Messages      *Messages
	Contacts      *Contacts
	Rooms         *Rooms
	Notifications *Notifications
	Friends       *Friends
	Blocks        *Blocks
}

// Open connects, pings and prepares the indexes the stores rely on. The
// unique room-name index is load-bearing: it backs the create pre-check
// under concurrent inserts.
func Open(ctx context.Context, uri, name string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	db := client.Database(name)
	d := &DB{client: client, db: db}
	d.Users = &Users{col: db.Collection("users")}
	d.Messages = &Messages{col: db.Collection("messages")}
	d.Contacts = &Contacts{col: db.Collection("contacts"), messages: d.Messages}
	d.Rooms = &Rooms{col: db.Collection("rooms")}
	d.Notifications = &Notifications{col: db.Collection("notifications")}
	d.Friends = &Friends{col: db.Collection("friends")}
	d.Blocks = &Blocks{col: db.Collection("blocks")}

	if err := d.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	log.Info().Str("module", "adapters.store").Str("db", name).Msg("mongo connected")
	return d, nil
}

func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

func (d *DB) ensureIndexes(ctx context.Context) error {
	_, err := d.db.Collection("rooms").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = d.db.Collection("messages").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "receiverId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return err
	}
	_, err = d.db.Collection("contacts").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = d.db.Collection("friends").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = d.db.Collection("blocks").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
