// Package syncer keeps the in-memory wallet session eventually consistent with the out-of-process wallet backend state. It polls on a fixed interval, lets session events pre-empt the next tick, and never turns a transient connectivity error into a disconnection.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/perkhub/walletcore/lib/backend"
	"github.com/perkhub/walletcore/lib/config"
	"github.com/perkhub/walletcore/lib/ledger"
	"github.com/perkhub/walletcore/lib/metrics"
	"github.com/perkhub/walletcore/lib/session"
	"github.com/perkhub/walletcore/lib/store"
	"github.com/perkhub/walletcore/syncer/resolver"
)

// Errors returned
var (
	ErrUnknownBackend = errors.New("wallet backend is not configured")
	ErrNoAddress      = errors.New("wallet backend never returned a usable address")
	ErrUnknownNetwork = errors.New("network is not configured")
	ErrNotConnected   = errors.New("no wallet backend is connected")
)

// Syncer owns the reconciliation loop for the wallet session.
type Syncer struct {
	kv         store.KV
	backends   map[string]backend.Backend
	ledgers    map[string]ledger.Service
	nets       []config.NetworkConfig
	defaultNet string
	sess       *session.Session
	res        *resolver.Resolver
	interval   time.Duration

	l             sync.Mutex
	inflight      map[string]int // reconciliations in flight per backend id
	committedAddr string
	committedNet  string
	committed     bool // a first successful resolution has been committed

	events chan struct{}
	done   chan struct{}
	once   sync.Once
}

// New returns a syncer over the configured backends and per-network ledger clients. Networks keep their config order, which is the inference priority order.
func New(kv store.KV, backends map[string]backend.Backend, ledgers map[string]ledger.Service,
	nets []config.NetworkConfig, defaultNet string, sess *session.Session, res *resolver.Resolver,
	interval time.Duration) *Syncer {
	return &Syncer{
		kv:         kv,
		backends:   backends,
		ledgers:    ledgers,
		nets:       nets,
		defaultNet: defaultNet,
		sess:       sess,
		res:        res,
		interval:   interval,
		inflight:   make(map[string]int),
		events:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// identifierFor returns the configured identifier for a network name, empty if unknown.
func (s *Syncer) identifierFor(network string) string {
	for _, n := range s.nets {
		if n.Name == network {
			return n.Identifier
		}
	}
	return ""
}

// RestoreFromStorage optimistically restores the persisted address (not the network) into an empty session, so consumers can render something while the first reconciliation fetches the authoritative state.
func (s *Syncer) RestoreFromStorage() {
	conn, err := store.LoadConnection(s.kv)
	if err != nil {
		log.Printf("Error restoring session from store: %v\n", err)
		return
	}
	if conn.Backend != "" && conn.Address != "" {
		s.sess.Restore(conn.Backend, conn.Address)
	}
}

// Run starts the reconciliation loop until Stop is called. Session events push an immediate re-run through Notify instead of invoking the routine reentrantly.
func (s *Syncer) Run() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
			case <-s.events:
			}
			go s.Reconcile(context.Background())
		}
	}()
}

// Stop ends the loop. In-flight passes are not aborted; their commits are discarded by the liveness check.
func (s *Syncer) Stop() {
	s.once.Do(func() { close(s.done) })
}

// Notify requests an immediate reconciliation. It never blocks; a pending request is enough.
func (s *Syncer) Notify() {
	select {
	case s.events <- struct{}{}:
	default:
	}
}

func (s *Syncer) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Reconcile runs one reconciliation pass. Errors never propagate across ticks; they are logged and the loop continues.
func (s *Syncer) Reconcile(ctx context.Context) {
	conn, err := store.LoadConnection(s.kv)
	if err != nil {
		log.Printf("Error reading persisted connection: %v\n", err)
		return
	}

	// no persisted backend means disconnected; this is the only full clear outside an explicit disconnect
	if conn.Backend == "" {
		if s.sess.Backend() != "" || s.sess.Address() != "" {
			s.clearCommitted()
			s.sess.Clear()
		}
		return
	}

	bk, ok := s.backends[conn.Backend]
	if !ok {
		log.Printf("Persisted backend %s is not configured\n", conn.Backend)
		return
	}
	detector, detectable := bk.(backend.NetworkDetector)

	// relay passes may complete out of order, so they are allowed to overlap; all other variants skip the tick when one is already in flight
	s.l.Lock()
	if s.inflight[conn.Backend] > 0 && bk.Kind() != backend.KindRelay {
		s.l.Unlock()
		metrics.Reconciles.WithLabelValues(conn.Backend, "skipped").Inc()
		return
	}
	s.inflight[conn.Backend]++
	s.l.Unlock()
	defer func() {
		s.l.Lock()
		s.inflight[conn.Backend]--
		s.l.Unlock()
	}()

	s.sess.SetReconciling(true)
	defer s.sess.SetReconciling(false)

	// resolve address and network concurrently, joined before any commit decision
	var wg sync.WaitGroup
	var addr, net, netID string
	var addrErr, netErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		addr, addrErr = bk.GetAddress(ctx)
	}()
	if detectable {
		wg.Add(1)
		go func() {
			defer wg.Done()
			net, netID, netErr = detector.GetNetwork(ctx)
		}()
	}
	wg.Wait()

	if addrErr != nil {
		if bk.Kind() == backend.KindRelay || backend.IsTransient(addrErr) {
			// relay failures are frequently transient: fall back to the persisted address and let the next tick retry
			if conn.Address == "" {
				metrics.Reconciles.WithLabelValues(conn.Backend, "error").Inc()
				log.Printf("[%s] address not resolved: %v\n", conn.Backend, addrErr)
				return
			}
			addr = conn.Address
		} else {
			// a non-transient failure on a detectable backend is a real disconnection
			log.Printf("[%s] backend failed, disconnecting: %v\n", conn.Backend, addrErr)
			if err := store.ClearConnection(s.kv); err != nil {
				log.Printf("Error clearing persisted connection: %v\n", err)
			}
			s.clearCommitted()
			s.sess.Clear()
			metrics.Reconciles.WithLabelValues(conn.Backend, "error").Inc()
			return
		}
	}

	if detectable {
		if netErr != nil {
			// fall back to the last persisted network if there is one
			if conn.Network == "" {
				metrics.Reconciles.WithLabelValues(conn.Backend, "error").Inc()
				log.Printf("[%s] network not resolved: %v\n", conn.Backend, netErr)
				return
			}
			net, netID = conn.Network, conn.NetworkID
		}
	} else {
		if conn.Network != "" {
			net, netID = conn.Network, conn.NetworkID
		} else {
			inferred, outcome := s.inferNetwork(ctx, addr)
			switch outcome {
			case inferUnknown:
				metrics.Reconciles.WithLabelValues(conn.Backend, "error").Inc()
				log.Printf("[%s] network could not be inferred for %s\n", conn.Backend, addr)
				return
			case inferUnfunded:
				log.Printf("[%s] %s unfunded everywhere, adopting default network %s\n", conn.Backend, addr, inferred)
			}
			net = inferred
		}
	}
	if netID == "" {
		netID = s.identifierFor(net)
	}

	// disconnect always wins a race against an in-flight pass: re-check the persisted backend id before committing
	cur, err := s.kv.Get(store.KeyBackend)
	if err != nil || cur != conn.Backend || s.stopped() {
		return
	}

	s.l.Lock()
	changed := !s.committed || addr != s.committedAddr || net != s.committedNet
	if changed {
		s.committedAddr = addr
		s.committedNet = net
		s.committed = true
	}
	s.l.Unlock()

	if !changed {
		metrics.Reconciles.WithLabelValues(conn.Backend, "unchanged").Inc()
		return
	}

	s.sess.CommitConnection(conn.Backend, addr, net, netID)
	if err := s.kv.Set(store.KeyAddress, addr); err != nil {
		log.Printf("Error persisting address: %v\n", err)
	}
	if err := store.SaveNetwork(s.kv, net, netID); err != nil {
		log.Printf("Error persisting network: %v\n", err)
	}

	// a real change invalidates the resolver's memo and forces a balance re-fetch
	s.res.Reset()
	s.res.Poke()
	metrics.Reconciles.WithLabelValues(conn.Backend, "committed").Inc()
	log.Printf("[%s] session committed: %s on %s\n", conn.Backend, addr, net)
}

func (s *Syncer) clearCommitted() {
	s.l.Lock()
	s.committed = false
	s.committedAddr = ""
	s.committedNet = ""
	s.l.Unlock()
	s.res.Reset()
}

// Connect persists the chosen backend and resolves the session immediately instead of waiting for the next tick. It returns ErrNoAddress and rolls the persisted choice back when the backend yields no usable address.
func (s *Syncer) Connect(ctx context.Context, backendID string) error {
	bk, ok := s.backends[backendID]
	if !ok {
		return ErrUnknownBackend
	}

	addr, err := bk.GetAddress(ctx)
	if err != nil || addr == "" {
		if err != nil {
			return errors.Join(ErrNoAddress, err)
		}
		return ErrNoAddress
	}

	if err := s.kv.Set(store.KeyBackend, backendID); err != nil {
		return err
	}
	if err := s.kv.Set(store.KeyAddress, addr); err != nil {
		return err
	}

	s.Reconcile(ctx)
	return nil
}

// Disconnect clears the persisted backend and the whole in-memory session synchronously.
func (s *Syncer) Disconnect() error {
	err := store.ClearConnection(s.kv)
	s.clearCommitted()
	s.sess.Clear()
	return err
}

// SwitchNetwork moves the session to the target network. Backends that support an explicit switch are asked to switch; backends without network detection get the target persisted as a preference; detection-only backends return backend.ErrUnsupported, the user must switch inside their wallet.
func (s *Syncer) SwitchNetwork(ctx context.Context, target string) error {
	id := s.identifierFor(target)
	if id == "" {
		return ErrUnknownNetwork
	}

	bid := s.sess.Backend()
	if bid == "" {
		if bid, _ = s.kv.Get(store.KeyBackend); bid == "" {
			return ErrNotConnected
		}
	}
	bk, ok := s.backends[bid]
	if !ok {
		return ErrUnknownBackend
	}

	if sw, ok := bk.(backend.NetworkSwitcher); ok {
		if err := sw.SwitchNetwork(ctx, target); err != nil {
			return err
		}
		s.Reconcile(ctx)
		return nil
	}

	if _, detectable := bk.(backend.NetworkDetector); detectable {
		return backend.ErrUnsupported
	}

	// a relay cannot be forced; persist the preference and reconcile against it
	if err := store.SaveNetwork(s.kv, target, id); err != nil {
		return err
	}
	s.Reconcile(ctx)
	return nil
}
