// Package resolver fetches and normalizes account balances for the active wallet session. It deduplicates concurrent fetches per (network, address) key, memoizes unfunded accounts until the synchronizer signals a real change, and discards results that resolve for a stale key.
package resolver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/perkhub/walletcore/lib/ledger"
	"github.com/perkhub/walletcore/lib/metrics"
	"github.com/perkhub/walletcore/lib/session"
	"github.com/perkhub/walletcore/lib/util"
)

// Resolver polls the ledger for the session's active (address, network) pair.
type Resolver struct {
	ledgers  map[string]ledger.Service
	sess     *session.Session
	interval time.Duration

	l            sync.Mutex
	inflight     map[string]bool
	lastKey      string // key of the last completed fetch
	lastUnfunded bool   // that fetch concluded "account does not exist"

	poke chan struct{}
	done chan struct{}
	once sync.Once
}

// New returns a resolver over the given per-network ledger clients.
func New(ledgers map[string]ledger.Service, sess *session.Session, interval time.Duration) *Resolver {
	return &Resolver{
		ledgers:  ledgers,
		sess:     sess,
		interval: interval,
		inflight: make(map[string]bool),
		poke:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start launches the poll loop. Balance polling cadence is independent of the synchronizer's reconciliation cadence.
func (r *Resolver) Start() {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				return
			case <-ticker.C:
			case <-r.poke:
			}
			go r.Fetch(context.Background())
		}
	}()
}

// Stop ends the poll loop. In-flight fetches are not aborted; their results are discarded by the stale-key check.
func (r *Resolver) Stop() {
	r.once.Do(func() { close(r.done) })
}

// Poke requests an immediate fetch without waiting for the next tick.
func (r *Resolver) Poke() {
	select {
	case r.poke <- struct{}{}:
	default:
	}
}

// Reset clears the unfunded memo. The synchronizer calls it when the committed (address, network) pair really changed, which is the only signal on which an unfunded account is re-checked.
func (r *Resolver) Reset() {
	r.l.Lock()
	r.lastKey = ""
	r.lastUnfunded = false
	r.l.Unlock()
}

// Fetch runs one resolution pass for the session's current pair. Duplicate concurrent fetches for the same key return immediately without a ledger query.
func (r *Resolver) Fetch(ctx context.Context) {
	addr := r.sess.Address()
	net, _ := r.sess.Network()
	if addr == "" || net == "" {
		return
	}
	key := util.FetchKey(net, addr)

	r.l.Lock()
	if r.inflight[key] {
		r.l.Unlock()
		metrics.BalanceFetches.WithLabelValues(net, "deduped").Inc()
		return
	}
	if r.lastKey == key && r.lastUnfunded {
		// an unfunded account does not spontaneously become funded without an external signal
		r.l.Unlock()
		return
	}
	r.inflight[key] = true
	r.l.Unlock()

	svc, ok := r.ledgers[net]
	if !ok {
		r.l.Lock()
		delete(r.inflight, key)
		r.l.Unlock()
		log.Printf("[%s] no ledger client for network\n", net)
		return
	}

	acc, err := svc.GetAccount(ctx, addr)

	r.l.Lock()
	defer r.l.Unlock()
	delete(r.inflight, key)

	// discard results for a key that is no longer the committed one
	curAddr := r.sess.Address()
	curNet, _ := r.sess.Network()
	if curAddr == "" || util.FetchKey(curNet, curAddr) != key {
		return
	}

	switch {
	case err == nil:
		b := make(map[string]session.Balance, len(acc.Balances))
		for _, line := range acc.Balances {
			b[line.AssetKey()] = session.Balance{
				AssetKey:  line.AssetKey(),
				Raw:       line.Amount,
				Formatted: util.FormatAmount(line.Amount),
			}
		}
		r.sess.SetBalances(b)
		r.sess.SetAccountExists(true)
		r.lastKey = key
		r.lastUnfunded = false
		metrics.BalanceFetches.WithLabelValues(net, "ok").Inc()
	case errors.Is(err, ledger.ErrAccountNotFound):
		// a normal, expected outcome for unfunded accounts
		r.sess.SetBalances(map[string]session.Balance{})
		r.sess.SetAccountExists(false)
		r.lastKey = key
		r.lastUnfunded = true
		metrics.BalanceFetches.WithLabelValues(net, "unfunded").Inc()
	default:
		// unknown errors keep the last-known balances and presume the account still exists
		r.sess.SetAccountExists(true)
		metrics.BalanceFetches.WithLabelValues(net, "error").Inc()
		log.Printf("[%s] balance fetch for %s failed: %v\n", net, addr, err)
	}
}
