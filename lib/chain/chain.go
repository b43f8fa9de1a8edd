// Package chain implements the contract runtime protocol: simulate, prepare, submit and poll, plus the transaction envelope codec.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/perkhub/walletcore/lib/config"
)

// Transaction outcome states as reported by the runtime.
const (
	StatusNotFound = "NOT_FOUND"
	StatusPending  = "PENDING"
	StatusSuccess  = "SUCCESS"
	StatusFailed   = "FAILED"
)

// SimulateResult carries the runtime's dry-run outcome. Error is empty on success; on failure it holds the raw diagnostic the caller classifies.
type SimulateResult struct {
	Error          string `json:"error,omitempty"`
	MinResourceFee string `json:"minResourceFee,omitempty"`
	Footprint      string `json:"footprint,omitempty"`
	LatestLedger   uint64 `json:"latestLedger,omitempty"`
}

// SubmitResult is the runtime's immediate reply to a submission.
type SubmitResult struct {
	Hash        string `json:"hash"`
	Status      string `json:"status"`
	ErrorResult string `json:"errorResult,omitempty"`
}

// TxStatus is the polled outcome of a submitted transaction.
type TxStatus struct {
	Status    string `json:"status"`
	ResultXdr string `json:"resultXdr,omitempty"`
	Ledger    uint64 `json:"ledger,omitempty"`
}

// Runtime defines the required methods of a per-network contract runtime client.
type Runtime interface {
	Simulate(ctx context.Context, encodedTx string) (SimulateResult, error)
	Prepare(ctx context.Context, encodedTx string) (string, error)
	Submit(ctx context.Context, encodedTx string) (SubmitResult, error)
	GetTransaction(ctx context.Context, hash string) (TxStatus, error)
	WaitForTransaction(ctx context.Context, hash string, timeout time.Duration) (TxStatus, error)
	Close()
}

// RPCRequest is a JSON-RPC 2.0 request.
type RPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Client talks JSON-RPC to one network's contract runtime endpoint.
type Client struct {
	rpcURL string
	hc     *http.Client
}

// New returns a runtime client for the given endpoint.
func New(rpcURL string) *Client {
	return &Client{
		rpcURL: rpcURL,
		hc:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.hc.CloseIdleConnections()
}

// Call makes a JSON-RPC call to the runtime.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// Simulate dry-runs the transaction. A failed simulation is reported in the result's Error field, not as a Go error, so the caller can classify it.
func (c *Client) Simulate(ctx context.Context, encodedTx string) (SimulateResult, error) {
	var res SimulateResult

	raw, err := c.Call(ctx, "simulateTransaction", map[string]string{"transaction": encodedTx})
	if err != nil {
		return res, err
	}
	if err = json.Unmarshal(raw, &res); err != nil {
		return res, fmt.Errorf("unmarshal simulation: %w", err)
	}

	return res, nil
}

// Prepare asks the runtime to augment the transaction with its simulation-derived resource footprint, returning the new encoded form.
func (c *Client) Prepare(ctx context.Context, encodedTx string) (string, error) {
	raw, err := c.Call(ctx, "prepareTransaction", map[string]string{"transaction": encodedTx})
	if err != nil {
		return "", err
	}

	var res struct {
		Transaction string `json:"transaction"`
	}
	if err = json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("unmarshal prepared transaction: %w", err)
	}
	if res.Transaction == "" {
		return "", fmt.Errorf("runtime returned an empty prepared transaction")
	}

	return res.Transaction, nil
}

// Submit sends a signed transaction to the network.
func (c *Client) Submit(ctx context.Context, encodedTx string) (SubmitResult, error) {
	var res SubmitResult

	raw, err := c.Call(ctx, "sendTransaction", map[string]string{"transaction": encodedTx})
	if err != nil {
		return res, err
	}
	if err = json.Unmarshal(raw, &res); err != nil {
		return res, fmt.Errorf("unmarshal submission: %w", err)
	}

	return res, nil
}

// GetTransaction polls the outcome of a submitted transaction once.
func (c *Client) GetTransaction(ctx context.Context, hash string) (TxStatus, error) {
	var res TxStatus

	raw, err := c.Call(ctx, "getTransaction", map[string]string{"hash": hash})
	if err != nil {
		return res, err
	}
	if err = json.Unmarshal(raw, &res); err != nil {
		return res, fmt.Errorf("unmarshal transaction status: %w", err)
	}

	return res, nil
}

// WaitForTransaction polls the runtime until the transaction leaves the pending states or the timeout elapses.
func (c *Client) WaitForTransaction(ctx context.Context, hash string, timeout time.Duration) (TxStatus, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		st, err := c.GetTransaction(ctx, hash)
		if err == nil && st.Status != StatusNotFound && st.Status != StatusPending {
			return st, nil
		}
		if err != nil {
			// transient poll errors are retried until the deadline
			st = TxStatus{}
		}
		if time.Now().After(deadline) {
			return st, fmt.Errorf("transaction %s not confirmed after %v", hash, timeout)
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Init loads a runtime client per configured network into a map.
func Init(nets []config.NetworkConfig) map[string]Runtime {
	m := make(map[string]Runtime)
	for _, n := range nets {
		m[n.Name] = New(n.Runtime)
	}
	return m
}

// End closes gracefully all the runtime clients opened.
func End(m map[string]Runtime) {
	for _, r := range m {
		r.Close()
	}
}
