package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newRuntimeServer mocks the runtime JSON-RPC endpoint. getTransaction reports PENDING until the given number of polls have happened.
func newRuntimeServer(pendingPolls int) *httptest.Server {
	polls := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RPCRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "simulateTransaction":
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"minResourceFee":"100","footprint":"fp","latestLedger":7}}`))
		case "prepareTransaction":
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"transaction":"prepared-tx"}}`))
		case "sendTransaction":
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"hash":"deadbeef","status":"PENDING"}}`))
		case "getTransaction":
			polls++
			if polls <= pendingPolls {
				w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"status":"PENDING"}}`))
			} else {
				w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"status":"SUCCESS","ledger":8}}`))
			}
		default:
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
		}
	}))
}

func TestRuntimeProtocol(t *testing.T) {
	srv := newRuntimeServer(0)
	defer srv.Close()

	c := New(srv.URL)
	defer c.Close()
	ctx := context.Background()

	sim, err := c.Simulate(ctx, "tx")
	if err != nil || sim.Error != "" || sim.MinResourceFee != "100" {
		t.Errorf("simulate does not match: %+v err:%v", sim, err)
	}

	prep, err := c.Prepare(ctx, "tx")
	if err != nil || prep != "prepared-tx" {
		t.Errorf("prepare does not match: %q err:%v", prep, err)
	}

	sub, err := c.Submit(ctx, "signed-tx")
	if err != nil || sub.Hash != "deadbeef" {
		t.Errorf("submit does not match: %+v err:%v", sub, err)
	}

	st, err := c.GetTransaction(ctx, "deadbeef")
	if err != nil || st.Status != StatusSuccess {
		t.Errorf("status does not match: %+v err:%v", st, err)
	}
}

func TestRuntimeRPCError(t *testing.T) {
	srv := newRuntimeServer(0)
	defer srv.Close()

	c := New(srv.URL)
	defer c.Close()

	_, err := c.Call(context.Background(), "noSuchMethod", nil)
	rpcErr, ok := err.(*RPCError)
	if !ok || rpcErr.Code != -32601 {
		t.Errorf("expected RPC error -32601, got %v", err)
	}
}

func TestWaitForTransaction(t *testing.T) {
	srv := newRuntimeServer(1)
	defer srv.Close()

	c := New(srv.URL)
	defer c.Close()

	st, err := c.WaitForTransaction(context.Background(), "deadbeef", 5*time.Second)
	if err != nil {
		t.Errorf("err:%e", err)
	}
	if st.Status != StatusSuccess || st.Ledger != 8 {
		t.Errorf("status does not match: %+v", st)
	}
}
