// Package relay implements the bridge to session-based remote wallet signers. A relay cannot report which network its remote signer is on, and its failures are frequently transient: a pending or dropped relay session must never be read as a disconnection.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/perkhub/walletcore/lib/backend/types"
)

// Relay talks to a remote signer through a relay bridge endpoint.
type Relay struct {
	id   string
	base string
	hc   *http.Client
}

// New returns a connection to the relay bridge at base.
func New(id, base string) *Relay {
	return &Relay{
		id:   id,
		base: base,
		hc:   &http.Client{Timeout: 20 * time.Second},
	}
}

// ID returns the configured backend id.
func (r *Relay) ID() string {
	return r.id
}

// Kind returns the backend kind.
func (r *Relay) Kind() string {
	return "relay"
}

// Close ends the connection.
func (r *Relay) Close() {
	r.hc.CloseIdleConnections()
}

// classify maps relay-specific reply codes to the shared transient errors.
func classify(status int) error {
	switch status {
	case http.StatusAccepted:
		return types.ErrPending
	case http.StatusConflict, http.StatusServiceUnavailable:
		return types.ErrNotConnected
	}
	return nil
}

// GetAddress returns the remote signer's account address. Pending relay sessions surface as types.ErrPending so callers retry instead of disconnecting.
func (r *Relay) GetAddress(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/address", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := r.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if err = classify(resp.StatusCode); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("relay %s replied %s", r.id, resp.Status)
	}

	var res struct {
		Address string `json:"address"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode address: %w", err)
	}
	if res.Address == "" {
		return "", types.ErrNotConnected
	}

	return res.Address, nil
}

// Sign forwards the encoded transaction to the remote signer and returns its raw reply for the caller to normalize.
func (r *Relay) Sign(ctx context.Context, encodedTx, networkID, address string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{
		"transaction":       encodedTx,
		"networkIdentifier": networkID,
		"address":           address,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/sign", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if err = classify(resp.StatusCode); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sign reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay %s replied %s: %s", r.id, resp.Status, raw)
	}

	return raw, nil
}
