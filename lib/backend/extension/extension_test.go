package extension

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newBridge mocks the extension bridge endpoint
func newBridge(network string, switched *string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/address":
			w.Write([]byte(`{"address":"GABC"}`))
		case r.URL.Path == "/network" && r.Method == http.MethodGet:
			w.Write([]byte(`{"network":"` + network + `","networkIdentifier":"Test SDF Network ; September 2015"}`))
		case r.URL.Path == "/network" && r.Method == http.MethodPut:
			var req struct {
				Network string `json:"network"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			*switched = req.Network
			w.Write([]byte(`{}`))
		case r.URL.Path == "/sign":
			w.Write([]byte(`{"signedTxXdr":"signed-form"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestExtension(t *testing.T) {
	var switched string
	srv := newBridge("test", &switched)
	defer srv.Close()

	e := New("freighter", srv.URL)
	defer e.Close()
	ctx := context.Background()

	addr, err := e.GetAddress(ctx)
	if err != nil || addr != "GABC" {
		t.Errorf("address does not match: %q err:%v", addr, err)
	}

	net, id, err := e.GetNetwork(ctx)
	if err != nil || net != "test" || id == "" {
		t.Errorf("network does not match: %q %q err:%v", net, id, err)
	}

	raw, err := e.Sign(ctx, "enc-tx", id, addr)
	if err != nil {
		t.Errorf("err:%e", err)
	}
	var res struct {
		SignedTxXdr string `json:"signedTxXdr"`
	}
	if json.Unmarshal(raw, &res); res.SignedTxXdr != "signed-form" {
		t.Errorf("sign reply does not match: %s", raw)
	}
}

func TestCompanionSwitch(t *testing.T) {
	var switched string
	srv := newBridge("test", &switched)
	defer srv.Close()

	c := NewCompanion("albedo", srv.URL)
	defer c.Close()

	if c.Kind() != "companion" {
		t.Errorf("kind does not match: %s", c.Kind())
	}
	if err := c.SwitchNetwork(context.Background(), "main"); err != nil {
		t.Errorf("err:%e", err)
	}
	if switched != "main" {
		t.Errorf("bridge did not receive the switch: %q", switched)
	}
}
