package syncer

import (
	"context"
	"errors"

	"github.com/perkhub/walletcore/lib/ledger"
)

// inference outcomes
const (
	inferDetected int = 0
	inferUnfunded int = 1
	inferUnknown  int = 2
)

// inferNetwork probes the ledger for the address on each candidate network in priority order. The first network where the account is found wins; an account unfunded everywhere adopts the default network; a query error on any candidate makes the result unknown rather than guessing.
func (s *Syncer) inferNetwork(ctx context.Context, address string) (string, int) {
	sawError := false
	for _, n := range s.nets {
		svc, ok := s.ledgers[n.Name]
		if !ok {
			continue
		}
		_, err := svc.GetAccount(ctx, address)
		if err == nil {
			return n.Name, inferDetected
		}
		if !errors.Is(err, ledger.ErrAccountNotFound) {
			sawError = true
		}
	}
	if sawError {
		return "", inferUnknown
	}
	return s.defaultNet, inferUnfunded
}
