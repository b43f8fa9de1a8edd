// Package pipeline executes a contract invocation end to end: build, simulate with fallback probing, prepare, sign, submit and confirm. Each invocation is independent; nothing is persisted between stages and the only output is a transaction hash or a typed failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/perkhub/walletcore/lib/backend"
	"github.com/perkhub/walletcore/lib/chain"
	"github.com/perkhub/walletcore/lib/ledger"
	"github.com/perkhub/walletcore/lib/metrics"
	"github.com/perkhub/walletcore/lib/session"
)

// Invocation is one contract call request. Functions is the priority-ordered candidate list for calls whose exact remote name is not statically known; most calls carry a single entry.
type Invocation struct {
	Contract  string      `json:"contract"`
	Functions []string    `json:"functions"`
	Args      []chain.Arg `json:"args"`
}

// Result is the terminal outcome of a confirmed invocation.
type Result struct {
	Hash     string `json:"hash"`
	Function string `json:"function"`
	Network  string `json:"network"`
	Signer   string `json:"signer"`
}

// Pipeline drives invocations against the session's current network and signer.
type Pipeline struct {
	ledgers       map[string]ledger.Service
	runtimes      map[string]chain.Runtime
	backends      map[string]backend.Backend
	sess          *session.Session
	defaultAmount string
	confirmWait   time.Duration
}

// New returns a pipeline over the given clients. defaultAmount is the fixed amount used when the alternate amount-bearing signature is probed.
func New(ledgers map[string]ledger.Service, runtimes map[string]chain.Runtime,
	backends map[string]backend.Backend, sess *session.Session, defaultAmount string) *Pipeline {
	return &Pipeline{
		ledgers:       ledgers,
		runtimes:      runtimes,
		backends:      backends,
		sess:          sess,
		defaultAmount: defaultAmount,
		confirmWait:   60 * time.Second,
	}
}

// Invoke runs the full state machine for one invocation and blocks until a terminal state. Precondition failures (no session, unfunded signer, missing network identifier) surface immediately and are never retried.
func (p *Pipeline) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	var res Result

	signer := p.sess.Address()
	bid := p.sess.Backend()
	if signer == "" || bid == "" {
		return res, ErrNotConnected
	}
	network, netID := p.sess.Network()
	if netID == "" {
		return res, ErrNoNetworkID
	}
	bk, ok := p.backends[bid]
	if !ok {
		return res, ErrNotConnected
	}
	rt, ok := p.runtimes[network]
	if !ok {
		return res, ErrNoRuntime
	}
	lq, ok := p.ledgers[network]
	if !ok {
		return res, ErrNoRuntime
	}
	if len(inv.Functions) == 0 {
		return res, fmt.Errorf("invocation names no function")
	}

	start := time.Now()
	status := "FAILED"
	defer func() {
		metrics.Invocations.WithLabelValues(network, status).Inc()
		metrics.InvocationDuration.Observe(time.Since(start).Seconds())
	}()

	// BUILDING: the signer's sequence comes from the ledger; an absent account is a precondition failure
	acc, err := lq.GetAccount(ctx, signer)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return res, ErrSignerUnfunded
		}
		return res, fmt.Errorf("load signer account: %w", err)
	}
	seq, err := strconv.ParseInt(acc.Sequence, 10, 64)
	if err != nil {
		return res, fmt.Errorf("signer sequence %q: %w", acc.Sequence, err)
	}
	sequence := strconv.FormatInt(seq+1, 10)

	// SIMULATING with candidate and arity fallback probing
	encoded, function, err := p.simulate(ctx, rt, inv, signer, sequence, netID)
	if err != nil {
		return res, err
	}

	// PREPARING: the runtime augments the transaction with its resource footprint
	prepared, err := rt.Prepare(ctx, encoded)
	if err != nil {
		return res, &RuntimeError{Stage: "prepare", Diag: err.Error()}
	}

	// SIGNING: the backend's reply shape is normalized before use
	raw, err := bk.Sign(ctx, prepared, netID, signer)
	if err != nil {
		return res, fmt.Errorf("sign: %w", err)
	}
	signed, err := NormalizeSignResult(raw)
	if err != nil {
		return res, err
	}

	// parse back what was signed; one bounded retry with the default identifier tolerates a backend that signed against a compatible default
	if _, err = chain.Decode(signed, netID); err != nil {
		if _, err2 := chain.Decode(signed, chain.DefaultIdentifier); err2 != nil {
			return res, fmt.Errorf("parse signed transaction: %w", err)
		}
		log.Printf("[%s] signed transaction parsed with the default network identifier\n", network)
	}

	// SUBMITTING
	sub, err := rt.Submit(ctx, signed)
	if err != nil {
		return res, &RuntimeError{Stage: "submit", Diag: err.Error()}
	}
	if sub.ErrorResult != "" || sub.Status == "ERROR" {
		return res, &RuntimeError{Stage: "submit", Hash: sub.Hash, Diag: sub.ErrorResult}
	}

	// CONFIRMED or FAILED
	st, err := rt.WaitForTransaction(ctx, sub.Hash, p.confirmWait)
	if err != nil {
		return res, &RuntimeError{Stage: "confirm", Hash: sub.Hash, Diag: err.Error()}
	}
	if st.Status != chain.StatusSuccess {
		return res, &RuntimeError{Stage: "confirm", Hash: sub.Hash, Diag: st.ResultXdr}
	}

	status = "SUCCESS"
	log.Printf("[%s] invocation of %s.%s confirmed: %s\n", network, inv.Contract, function, sub.Hash)

	return Result{Hash: sub.Hash, Function: function, Network: network, Signer: signer}, nil
}

// simulate probes the candidate functions in priority order. Each candidate first tries the caller's argument list as-is; an arity mismatch retries once with a default amount appended. The first successful simulation wins; a storage error is fatal immediately since retries cannot initialize a contract.
func (p *Pipeline) simulate(ctx context.Context, rt chain.Runtime, inv Invocation,
	signer, sequence, netID string) (string, string, error) {
	attempts := []ProbeAttempt{}

	for _, fn := range inv.Functions {
		withAmount := false
		for {
			args := inv.Args
			if withAmount {
				args = append(append([]chain.Arg{}, inv.Args...), chain.Arg{Type: chain.ArgI128, Value: p.defaultAmount})
			}

			tx, err := chain.Build(signer, sequence, inv.Contract, fn, args, netID)
			if err != nil {
				return "", "", err
			}
			encoded, err := tx.Encode()
			if err != nil {
				return "", "", err
			}

			sim, err := rt.Simulate(ctx, encoded)
			if err != nil {
				return "", "", &RuntimeError{Stage: "simulate", Diag: err.Error()}
			}
			if sim.Error == "" {
				return encoded, fn, nil
			}

			attempts = append(attempts, ProbeAttempt{Function: fn, WithAmount: withAmount, Diag: sim.Error})

			switch classifySim(sim.Error) {
			case simStorage:
				return "", "", &SimError{Function: fn, Diag: sim.Error}
			case simArity:
				if !withAmount {
					withAmount = true
					continue
				}
			}
			break
		}
	}

	if len(inv.Functions) == 1 {
		last := attempts[len(attempts)-1]
		return "", "", &SimError{Function: last.Function, Diag: last.Diag}
	}
	return "", "", &ProbeError{Contract: inv.Contract, Attempts: attempts}
}
