// Package mongo implements the store interface for MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/perkhub/walletcore/lib/store"
)

// Mongo implements a connection to a MongoDB database.
type Mongo struct {
	c *mgo.Client
}

// kvDoc is the document shape of one persisted key.
type kvDoc struct {
	Key   string `json:"key" bson:"key"`
	Value string `json:"value" bson:"value"`
}

// New returns a Mongo client connection to the specified MongoDB database uri.
func New(uri string) (*Mongo, error) {
	// get a client
	c, err := mgo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongo DB in %s: %w", uri, err)
	}
	// connect client
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	err = c.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo DB: %w", err)
	}

	return &Mongo{c: c}, nil
}

// CloseMongo will close a database connection. Must be called at termination time.
func (m *Mongo) CloseMongo() error {
	return m.c.Disconnect(context.Background())
}

func (m *Mongo) col() *mgo.Collection {
	return m.c.Database("wallet").Collection("kv")
}

// Get returns the value stored for key or store.ErrDataNotFound.
func (m *Mongo) Get(key string) (string, error) {
	var doc kvDoc
	sr := m.col().FindOne(context.Background(), bson.M{"key": key})
	if err := sr.Decode(&doc); err != nil {
		if errors.Is(err, mgo.ErrNoDocuments) {
			return "", store.ErrDataNotFound
		}
		return "", fmt.Errorf("could not read key from db: %w", err)
	}
	return doc.Value, nil
}

// Set upserts the value for key.
func (m *Mongo) Set(key, value string) error {
	_, err := m.col().UpdateOne(context.Background(),
		bson.M{"key": key}, // filter
		bson.D{ // update
			{Key: "$set", Value: bson.D{
				{Key: "key", Value: key},
				{Key: "value", Value: value},
			}},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("could not upsert key in db: %w", err)
	}

	return nil
}

// Remove deletes the key. Removing an absent key is not an error.
func (m *Mongo) Remove(key string) error {
	_, err := m.col().DeleteOne(context.Background(), bson.M{"key": key}, options.Delete())

	return err
}
