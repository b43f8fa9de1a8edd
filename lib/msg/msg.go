// Package msg defines the interface for different message brokers.
//
package msg

import (
	"sync"
)

// Kinds of session events raised by the UI-level connect and disconnect flows.
const (
	CONNECTED      = "connected"
	DISCONNECTED   = "disconnected"
	NETWORKCHANGED = "networkChanged"
)

// SessionEvent is a wallet session event consumed from the broker. Backend and Address are set for connected events, Network and NetworkID for networkChanged events.
type SessionEvent struct {
	Kind      string `json:"kind"`
	Backend   string `json:"backend,omitempty"`
	Address   string `json:"address,omitempty"`
	Network   string `json:"network,omitempty"`
	NetworkID string `json:"networkIdentifier,omitempty"`
}

// InvocationResult is published after a contract invocation reaches a terminal state, so the activity ledger can record it.
type InvocationResult struct {
	Net      string `json:"net"`
	Contract string `json:"contract"`
	Function string `json:"function"`
	Signer   string `json:"signer"`
	Hash     string `json:"hash"`
	Status   string `json:"status"`
	Diag     string `json:"diag,omitempty"`
}

type MsgBroker interface {
	Setup(interface{}) error
	Close() error

	// publish terminal invocation outcomes
	SendInvocation(net string, r InvocationResult) error
	// consume wallet session events raised by the UI flows
	GetSessionEvents(mut *sync.Mutex) (<-chan SessionEvent, <-chan error, error)
}
