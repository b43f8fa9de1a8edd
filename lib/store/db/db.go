// Package db implements the opening and graceful closing of store connections.
package db

import (
	"github.com/perkhub/walletcore/lib/store"
	"github.com/perkhub/walletcore/lib/store/memory"
	"github.com/perkhub/walletcore/lib/store/mongo"
	"github.com/perkhub/walletcore/lib/store/postgres"
)

const (
	MONGODB  string = "mongodb"
	POSTGRES string = "postgresql"
	MEMORY   string = "memory"
)

// New returns a new store connection according to the options (store type).
func New(options, connection string) (store.KV, error) {
	switch options {
	case MONGODB:
		return mongo.New(connection)
	case POSTGRES:
		return postgres.New(connection)
	case MEMORY:
		return memory.New(), nil
	}

	return nil, nil
}

// Close gracefully closes the store connection.
func Close(options string, kv store.KV) error {
	switch options {
	case MONGODB:
		return kv.(*mongo.Mongo).CloseMongo()
	case POSTGRES:
		return kv.(*postgres.Postgres).ClosePostgres()
	case MEMORY:
		// nothing to release
	}

	return nil
}
