// Package postgres implements the store interface for PostgreSQL.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" //nolint:gci // load the postgres driver that is used by the system

	"github.com/perkhub/walletcore/lib/store"
)

type Postgres struct {
	db *sql.DB
}

// New returns a postgres client connection to the specified database in 'connection' and ensures the kv table exists.
func New(connection string) (*Postgres, error) {
	db, err := sql.Open("postgres", connection)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to DB in %s: %w", connection, err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS wallet_kv (key text PRIMARY KEY, value text NOT NULL)`)
	if err != nil {
		return nil, fmt.Errorf("cannot prepare kv table: %w", err)
	}

	return &Postgres{db: db}, nil
}

// ClosePostgres will close any database connection. Must be called at termination time.
func (p *Postgres) ClosePostgres() error {
	return p.db.Close()
}

// Get returns the value stored for key or store.ErrDataNotFound.
func (p *Postgres) Get(key string) (string, error) {
	var value string

	err := p.db.QueryRow(`SELECT value FROM wallet_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrDataNotFound
	}
	if err != nil {
		return "", fmt.Errorf("could not read key from db: %w", err)
	}

	return value, nil
}

// Set upserts the value for key.
func (p *Postgres) Set(key, value string) error {
	_, err := p.db.Exec(`INSERT INTO wallet_kv (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("could not upsert key in db: %w", err)
	}

	return nil
}

// Remove deletes the key. Removing an absent key is not an error.
func (p *Postgres) Remove(key string) error {
	_, err := p.db.Exec(`DELETE FROM wallet_kv WHERE key = $1`, key)

	return err
}
