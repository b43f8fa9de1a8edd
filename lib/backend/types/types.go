// Package types defines shared types and errors for the wallet backend variants.
package types

import (
	"errors"
)

// Errors returned by backend implementations
var (
	ErrUnsupported  = errors.New("operation not supported by this wallet backend")
	ErrNotConnected = errors.New("wallet backend is not connected")
	ErrPending      = errors.New("wallet backend request is pending")
)
