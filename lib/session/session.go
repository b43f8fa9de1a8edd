// Package session holds the canonical in-memory wallet connection state shared between the synchronizer, the balance resolver and the invocation pipeline.
package session

import (
	"sync"
)

// Balance is one asset line of an account. AssetKey is "native", "code:issuer" or a liquidity pool id. Raw keeps the ledger decimal string, Formatted the display form.
type Balance struct {
	AssetKey  string `json:"assetKey"`
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
}

// Snapshot is a read-only copy of the session handed out to consumers.
type Snapshot struct {
	Backend       string             `json:"backend,omitempty"`
	Address       string             `json:"address,omitempty"`
	Network       string             `json:"network,omitempty"`
	NetworkID     string             `json:"networkIdentifier,omitempty"`
	Balances      map[string]Balance `json:"balances"`
	AccountExists bool               `json:"accountExists"`
	Reconciling   bool               `json:"reconciling"`
}

// Session contains the connection state of the wallet. The synchronizer owns backend, address and network; the balance resolver owns balances and accountExists. All access goes through the mutex-guarded methods.
type Session struct {
	l             sync.RWMutex
	backend       string
	address       string
	network       string
	networkID     string
	balances      map[string]Balance
	accountExists bool
	reconciling   bool
}

// New returns an empty session. An empty session reports accountExists true, meaning "not known to be unfunded".
func New() *Session {
	return &Session{accountExists: true}
}

// CommitConnection sets backend, address and network in one step and resets accountExists to true so a balance re-fetch is forced.
func (s *Session) CommitConnection(backend, address, network, networkID string) {
	s.l.Lock()
	s.backend = backend
	s.address = address
	s.network = network
	s.networkID = networkID
	s.accountExists = true
	s.l.Unlock()
}

// Restore optimistically sets address only, so consumers can render something while the authoritative network is still being fetched.
func (s *Session) Restore(backend, address string) {
	s.l.Lock()
	if s.address == "" {
		s.backend = backend
		s.address = address
	}
	s.l.Unlock()
}

// Clear empties the whole session.
func (s *Session) Clear() {
	s.l.Lock()
	s.backend = ""
	s.address = ""
	s.network = ""
	s.networkID = ""
	s.balances = nil
	s.accountExists = true
	s.reconciling = false
	s.l.Unlock()
}

// SetBalances replaces the balance map wholesale. The replacement is skipped when the new map deep-equals the current one so consumers are not notified redundantly; the return value reports whether a replacement happened.
func (s *Session) SetBalances(b map[string]Balance) bool {
	s.l.Lock()
	defer s.l.Unlock()
	if balancesEqual(s.balances, b) {
		return false
	}
	s.balances = b
	return true
}

// SetAccountExists records the funded/unfunded classification from the resolver.
func (s *Session) SetAccountExists(exists bool) {
	s.l.Lock()
	s.accountExists = exists
	s.l.Unlock()
}

// SetReconciling flags an in-flight reconciliation pass.
func (s *Session) SetReconciling(v bool) {
	s.l.Lock()
	s.reconciling = v
	s.l.Unlock()
}

// Address returns the current signer address, empty if disconnected.
func (s *Session) Address() string {
	s.l.RLock()
	defer s.l.RUnlock()
	return s.address
}

// Network returns the current logical network name and its identifier.
func (s *Session) Network() (string, string) {
	s.l.RLock()
	defer s.l.RUnlock()
	return s.network, s.networkID
}

// Backend returns the connected backend id, empty if disconnected.
func (s *Session) Backend() string {
	s.l.RLock()
	defer s.l.RUnlock()
	return s.backend
}

// AccountExists reports whether the signer account is known to exist on the ledger.
func (s *Session) AccountExists() bool {
	s.l.RLock()
	defer s.l.RUnlock()
	return s.accountExists
}

// Snapshot returns a copy of the full session state, with the balance map cloned so callers cannot mutate shared state.
func (s *Session) Snapshot() Snapshot {
	s.l.RLock()
	defer s.l.RUnlock()
	var b map[string]Balance
	if s.balances != nil {
		b = make(map[string]Balance, len(s.balances))
		for k, v := range s.balances {
			b[k] = v
		}
	} else {
		b = map[string]Balance{}
	}
	return Snapshot{
		Backend:       s.backend,
		Address:       s.address,
		Network:       s.network,
		NetworkID:     s.networkID,
		Balances:      b,
		AccountExists: s.accountExists,
		Reconciling:   s.reconciling,
	}
}

func balancesEqual(a, b map[string]Balance) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || v != w {
			return false
		}
	}
	return true
}
