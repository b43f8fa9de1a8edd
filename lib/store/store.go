// Package store defines the interface for persistence implementations to the walletd microservice.
package store

import (
	"errors"
)

// KV defines the required methods for persisting the wallet connection state across restarts.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// Keys used for the persisted connection tuple. Absence of KeyBackend always means "never connected".
const (
	KeyBackend   = "backend"
	KeyAddress   = "address"
	KeyNetwork   = "network"
	KeyNetworkID = "network_identifier"
)

// Errors returned
var (
	ErrDataNotFound = errors.New("Data was not found in store")
)
