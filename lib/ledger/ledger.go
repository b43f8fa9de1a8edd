// Package ledger implements the query client for account state on the distributed ledger. Each network gets its own client against that network's accounts endpoint.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/perkhub/walletcore/lib/config"
)

// Errors returned
var (
	ErrAccountNotFound = errors.New("Account was not found on the ledger")
)

// Balance is one asset line as reported by the ledger.
type Balance struct {
	AssetType       string `json:"asset_type"`
	AssetCode       string `json:"asset_code,omitempty"`
	AssetIssuer     string `json:"asset_issuer,omitempty"`
	LiquidityPoolID string `json:"liquidity_pool_id,omitempty"`
	Amount          string `json:"balance"`
}

// AssetKey returns the classifier used as map key: "native", "code:issuer" or a pool id.
func (b Balance) AssetKey() string {
	switch b.AssetType {
	case "native":
		return "native"
	case "liquidity_pool_shares":
		return b.LiquidityPoolID
	default:
		return b.AssetCode + ":" + b.AssetIssuer
	}
}

// Account is the subset of the ledger account record the service needs.
type Account struct {
	ID       string    `json:"id"`
	Sequence string    `json:"sequence"`
	Balances []Balance `json:"balances"`
}

// Service defines the required methods of a per-network ledger query client.
type Service interface {
	GetAccount(ctx context.Context, address string) (Account, error)
	Close()
}

// Client queries a ledger accounts endpoint over HTTP.
type Client struct {
	base string
	hc   *http.Client
}

// New returns a ledger client for the given base endpoint.
func New(base string) *Client {
	return &Client{
		base: base,
		hc:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.hc.CloseIdleConnections()
}

// GetAccount fetches the account record for address. A 404 maps to ErrAccountNotFound, which is a normal outcome for unfunded accounts, not a failure.
func (c *Client) GetAccount(ctx context.Context, address string) (Account, error) {
	var acc Account

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/accounts/"+address, nil)
	if err != nil {
		return acc, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return acc, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return acc, ErrAccountNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return acc, fmt.Errorf("ledger replied %s", resp.Status)
	}

	if err = json.NewDecoder(resp.Body).Decode(&acc); err != nil {
		return acc, fmt.Errorf("decode account: %w", err)
	}

	return acc, nil
}

// Init loads a ledger client per configured network into a map.
func Init(nets []config.NetworkConfig) map[string]Service {
	m := make(map[string]Service)
	for _, n := range nets {
		m[n.Name] = New(n.Ledger)
	}
	return m
}

// End closes gracefully all the ledger clients opened.
func End(m map[string]Service) {
	for _, s := range m {
		s.Close()
	}
}
