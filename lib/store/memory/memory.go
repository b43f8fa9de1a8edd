// Package memory implements the store interface with an in-process map. Used for tests and single-node development setups where a restart losing the connection tuple is acceptable.
package memory

import (
	"sync"

	"github.com/perkhub/walletcore/lib/store"
)

// Memory is a mutex-guarded in-process key/value store.
type Memory struct {
	l sync.Mutex
	m map[string]string
}

// New returns an empty in-memory store.
func New() *Memory {
	return &Memory{m: make(map[string]string)}
}

// Get returns the value for key or store.ErrDataNotFound.
func (s *Memory) Get(key string) (string, error) {
	s.l.Lock()
	defer s.l.Unlock()
	v, ok := s.m[key]
	if !ok {
		return "", store.ErrDataNotFound
	}
	return v, nil
}

// Set stores value under key, overwriting any previous value.
func (s *Memory) Set(key, value string) error {
	s.l.Lock()
	s.m[key] = value
	s.l.Unlock()
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Memory) Remove(key string) error {
	s.l.Lock()
	delete(s.m, key)
	s.l.Unlock()
	return nil
}
