// Package extension implements the bridge to extension-resident wallet signers. These backends can always report which network they are on; the companion flavour additionally accepts an explicit network switch.
package extension

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Extension talks to an extension-resident signer over its local bridge endpoint.
type Extension struct {
	id   string
	base string
	hc   *http.Client
}

// New returns a connection to the extension bridge at base.
func New(id, base string) *Extension {
	return &Extension{
		id:   id,
		base: base,
		hc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// ID returns the configured backend id.
func (e *Extension) ID() string {
	return e.id
}

// Kind returns the backend kind.
func (e *Extension) Kind() string {
	return "extension"
}

// Close ends the connection.
func (e *Extension) Close() {
	e.hc.CloseIdleConnections()
}

func (e *Extension) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.base+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := e.hc.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend %s replied %s", e.id, resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// GetAddress returns the signer's current account address.
func (e *Extension) GetAddress(ctx context.Context) (string, error) {
	var res struct {
		Address string `json:"address"`
	}
	if err := e.get(ctx, "/address", &res); err != nil {
		return "", err
	}
	if res.Address == "" {
		return "", fmt.Errorf("backend %s returned no address", e.id)
	}

	return res.Address, nil
}

// GetNetwork returns the network the signer is currently on and its identifier.
func (e *Extension) GetNetwork(ctx context.Context) (string, string, error) {
	var res struct {
		Network   string `json:"network"`
		NetworkID string `json:"networkIdentifier"`
	}
	if err := e.get(ctx, "/network", &res); err != nil {
		return "", "", err
	}

	return res.Network, res.NetworkID, nil
}

// Sign hands the encoded transaction to the signer and returns its raw reply for the caller to normalize.
func (e *Extension) Sign(ctx context.Context, encodedTx, networkID, address string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{
		"transaction":       encodedTx,
		"networkIdentifier": networkID,
		"address":           address,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.base+"/sign", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sign reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend %s replied %s: %s", e.id, resp.Status, raw)
	}

	return raw, nil
}

// Companion is an extension signer whose bridge also accepts an explicit network switch.
type Companion struct {
	Extension
}

// NewCompanion returns a connection to a companion bridge at base.
func NewCompanion(id, base string) *Companion {
	return &Companion{Extension{
		id:   id,
		base: base,
		hc:   &http.Client{Timeout: 10 * time.Second},
	}}
}

// Kind returns the backend kind.
func (c *Companion) Kind() string {
	return "companion"
}

// SwitchNetwork asks the signer to move to the given network.
func (c *Companion) SwitchNetwork(ctx context.Context, network string) error {
	body, err := json.Marshal(map[string]string{"network": network})
	if err != nil {
		return fmt.Errorf("marshal switch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.base+"/network", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend %s replied %s", c.id, resp.Status)
	}

	return nil
}
