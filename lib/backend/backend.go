// Package backend defines the interface for wallet backend connections. A backend is an out-of-process signer; its capability set varies per variant, so network detection and network switching are separate interfaces only some variants satisfy.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/perkhub/walletcore/lib/backend/extension"
	"github.com/perkhub/walletcore/lib/backend/local"
	"github.com/perkhub/walletcore/lib/backend/relay"
	"github.com/perkhub/walletcore/lib/backend/types"
	"github.com/perkhub/walletcore/lib/config"
)

// Backend kinds matching config.BackendConfig.Kind.
const (
	KindExtension = "extension"
	KindCompanion = "companion"
	KindRelay     = "relay"
	KindLocal     = "local"
)

// Errors returned, re-exported from the shared types package.
var (
	ErrUnsupported  = types.ErrUnsupported
	ErrNotConnected = types.ErrNotConnected
	ErrPending      = types.ErrPending
)

// Backend is the capability set every wallet backend supports.
type Backend interface {
	ID() string
	Kind() string
	GetAddress(ctx context.Context) (string, error)
	// Sign returns the backend's raw reply: either a JSON string holding the encoded transaction, or a wrapper object under one of several known field names. Callers normalize the shape.
	Sign(ctx context.Context, encodedTx, networkID, address string) (json.RawMessage, error)
	Close()
}

// NetworkDetector is satisfied by backends that can report which network they are on.
type NetworkDetector interface {
	GetNetwork(ctx context.Context) (network, networkID string, err error)
}

// NetworkSwitcher is satisfied by backends that accept an explicit network switch.
type NetworkSwitcher interface {
	SwitchNetwork(ctx context.Context, network string) error
}

// IsTransient reports whether err is a connectivity problem that should be retried on the next tick rather than treated as a disconnection.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConnected) || errors.Is(err, ErrPending) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") || strings.Contains(s, "pending") || strings.Contains(s, "not connected")
}

// Init loads all the backends read from the config into a map. Local backends derive their signer from the HD seed and are pinned to the default network.
func Init(bks []config.BackendConfig, nets []config.NetworkConfig, defaultNet, seed string) (map[string]Backend, error) {
	var defNet config.NetworkConfig
	for _, n := range nets {
		if n.Name == defaultNet {
			defNet = n
		}
	}

	m := make(map[string]Backend)

	for _, b := range bks {
		switch b.Kind {
		case KindExtension:
			m[b.ID] = extension.New(b.ID, b.URL)
		case KindCompanion:
			m[b.ID] = extension.NewCompanion(b.ID, b.URL)
		case KindRelay:
			m[b.ID] = relay.New(b.ID, b.URL)
		case KindLocal:
			l, err := local.New(b.ID, seed, b.Wallet, b.Change, b.Index, defNet.Name, defNet.Identifier)
			if err != nil {
				return nil, err
			}
			m[b.ID] = l
		default:
			log.Printf("Wallet backend kind not defined for %s. Ignoring...\n", b.Kind)
		}
	}

	return m, nil
}

// End closes gracefully all the backends opened.
func End(m map[string]Backend) {
	for _, b := range m {
		b.Close()
	}
}
