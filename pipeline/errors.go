package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned
var (
	ErrNotConnected          = errors.New("no wallet backend is connected")
	ErrSignerUnfunded        = errors.New("signer account is not funded on the ledger")
	ErrNoNetworkID           = errors.New("session has no network identifier")
	ErrNoRuntime             = errors.New("no contract runtime for the session network")
	ErrUnsupportedSignResult = errors.New("unsupported wallet sign response shape")
)

// SimError is a fatal simulation failure for a single-candidate call, carrying the runtime's raw diagnostic.
type SimError struct {
	Function string
	Diag     string
}

func (e *SimError) Error() string {
	return fmt.Sprintf("simulation of %s failed: %s", e.Function, e.Diag)
}

// ProbeAttempt records one failed candidate try during fallback probing.
type ProbeAttempt struct {
	Function   string
	WithAmount bool
	Diag       string
}

// ProbeError is returned when every candidate function failed to simulate. The attempts are surfaced jointly.
type ProbeError struct {
	Contract string
	Attempts []ProbeAttempt
}

func (e *ProbeError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		name := a.Function
		if a.WithAmount {
			name += "+amount"
		}
		parts = append(parts, name+": "+a.Diag)
	}
	return fmt.Sprintf("no candidate function of %s simulated: %s", e.Contract, strings.Join(parts, "; "))
}

// RuntimeError is a fatal runtime-reported failure at a pipeline stage, carrying the raw diagnostic payload for user-facing debugging.
type RuntimeError struct {
	Stage string
	Hash  string
	Diag  string
}

func (e *RuntimeError) Error() string {
	if e.Hash != "" {
		return fmt.Sprintf("%s of transaction %s failed: %s", e.Stage, e.Hash, e.Diag)
	}
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Diag)
}
