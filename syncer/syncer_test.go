package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/perkhub/walletcore/lib/backend"
	"github.com/perkhub/walletcore/lib/backend/types"
	"github.com/perkhub/walletcore/lib/config"
	"github.com/perkhub/walletcore/lib/ledger"
	"github.com/perkhub/walletcore/lib/session"
	"github.com/perkhub/walletcore/lib/store"
	"github.com/perkhub/walletcore/lib/store/memory"
	"github.com/perkhub/walletcore/syncer/resolver"
)

var testNets = []config.NetworkConfig{
	{Name: "test", Identifier: "Test SDF Network ; September 2015"},
	{Name: "main", Identifier: "Public Global Stellar Network ; September 2015"},
}

// fakeBackend is a variant-C style backend: no network detection
type fakeBackend struct {
	id      string
	kind    string
	addr    string
	addrErr error
	gate    chan struct{} // when set, GetAddress blocks until the gate closes
}

func (f *fakeBackend) ID() string   { return f.id }
func (f *fakeBackend) Kind() string { return f.kind }
func (f *fakeBackend) GetAddress(ctx context.Context) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	return f.addr, f.addrErr
}
func (f *fakeBackend) Sign(ctx context.Context, encodedTx, networkID, address string) (json.RawMessage, error) {
	return json.RawMessage(`"signed"`), nil
}
func (f *fakeBackend) Close() {}

// fakeDetector adds network detection (variant A)
type fakeDetector struct {
	fakeBackend
	net    string
	netID  string
	netErr error
}

func (f *fakeDetector) GetNetwork(ctx context.Context) (string, string, error) {
	return f.net, f.netID, f.netErr
}

// fakeSwitcher adds an explicit switch (variant B)
type fakeSwitcher struct {
	fakeDetector
	switched string
}

func (f *fakeSwitcher) SwitchNetwork(ctx context.Context, network string) error {
	f.switched = network
	f.net = network
	f.netID = ""
	return nil
}

// fakeLedger answers account queries per network
type fakeLedger struct {
	found bool
	err   error
	calls int
}

func (f *fakeLedger) GetAccount(ctx context.Context, address string) (ledger.Account, error) {
	f.calls++
	if f.err != nil {
		return ledger.Account{}, f.err
	}
	if !f.found {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return ledger.Account{ID: address, Sequence: "1"}, nil
}
func (f *fakeLedger) Close() {}

func newTestSyncer(bks map[string]backend.Backend, ledgers map[string]ledger.Service) (*Syncer, *session.Session, store.KV) {
	kv := memory.New()
	sess := session.New()
	res := resolver.New(ledgers, sess, time.Hour)
	s := New(kv, bks, ledgers, testNets, "test", sess, res, time.Hour)
	return s, sess, kv
}

// TestIdempotentPolling: with unchanged backend state the session commits once and is identical thereafter
func TestIdempotentPolling(t *testing.T) {
	bk := &fakeDetector{fakeBackend: fakeBackend{id: "freighter", kind: "extension", addr: "GABC"}, net: "test", netID: testNets[0].Identifier}
	s, sess, kv := newTestSyncer(map[string]backend.Backend{"freighter": bk}, nil)

	kv.Set(store.KeyBackend, "freighter")

	s.Reconcile(context.Background())
	first := sess.Snapshot()
	if first.Address != "GABC" || first.Network != "test" || first.Backend != "freighter" {
		t.Fatalf("first reconcile did not commit: %+v", first)
	}

	for i := 0; i < 5; i++ {
		s.Reconcile(context.Background())
	}
	again := sess.Snapshot()
	if again.Address != first.Address || again.Network != first.Network || again.NetworkID != first.NetworkID {
		t.Errorf("session changed under identical backend state: %+v vs %+v", first, again)
	}

	// the committed tuple was persisted
	if v, _ := kv.Get(store.KeyAddress); v != "GABC" {
		t.Errorf("address not persisted: %q", v)
	}
	if v, _ := kv.Get(store.KeyNetwork); v != "test" {
		t.Errorf("network not persisted: %q", v)
	}
}

// TestDisconnectPrecedence: a disconnect during an in-flight reconcile leaves the session empty
func TestDisconnectPrecedence(t *testing.T) {
	gate := make(chan struct{})
	bk := &fakeDetector{fakeBackend: fakeBackend{id: "freighter", kind: "extension", addr: "GABC", gate: gate}, net: "test"}
	s, sess, kv := newTestSyncer(map[string]backend.Backend{"freighter": bk}, nil)

	kv.Set(store.KeyBackend, "freighter")

	done := make(chan struct{})
	go func() {
		s.Reconcile(context.Background())
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	if err := s.Disconnect(); err != nil {
		t.Errorf("err:%e", err)
	}
	close(gate)
	<-done

	snap := sess.Snapshot()
	if snap.Backend != "" || snap.Address != "" || snap.Network != "" {
		t.Errorf("in-flight reconcile committed after disconnect: %+v", snap)
	}
}

// TestClearedStorageClearsSession: an absent persisted backend id is the disconnect signal
func TestClearedStorageClearsSession(t *testing.T) {
	bk := &fakeDetector{fakeBackend: fakeBackend{id: "freighter", kind: "extension", addr: "GABC"}, net: "test"}
	s, sess, kv := newTestSyncer(map[string]backend.Backend{"freighter": bk}, nil)

	kv.Set(store.KeyBackend, "freighter")
	s.Reconcile(context.Background())
	if sess.Address() == "" {
		t.Fatal("setup reconcile did not commit")
	}

	kv.Remove(store.KeyBackend)
	s.Reconcile(context.Background())
	if sess.Address() != "" || sess.Backend() != "" {
		t.Errorf("session not cleared: %+v", sess.Snapshot())
	}
}

// TestRelayTransientFallback: relay address failures fall back to the persisted address instead of disconnecting
func TestRelayTransientFallback(t *testing.T) {
	bk := &fakeBackend{id: "walletconnect", kind: "relay", addrErr: types.ErrPending}
	ledgers := map[string]ledger.Service{
		"test": &fakeLedger{found: true},
		"main": &fakeLedger{},
	}
	s, sess, kv := newTestSyncer(map[string]backend.Backend{"walletconnect": bk}, ledgers)

	kv.Set(store.KeyBackend, "walletconnect")
	kv.Set(store.KeyAddress, "GRELAY")

	s.Reconcile(context.Background())
	snap := sess.Snapshot()
	if snap.Address != "GRELAY" {
		t.Errorf("expected persisted address fallback, got %+v", snap)
	}
	if snap.Network != "test" {
		t.Errorf("expected inferred network test, got %q", snap.Network)
	}
}

// TestNonTransientDisconnects: a hard failure on a detectable backend clears session and storage
func TestNonTransientDisconnects(t *testing.T) {
	bk := &fakeDetector{fakeBackend: fakeBackend{id: "freighter", kind: "extension", addrErr: errors.New("signer rejected the request")}, net: "test"}
	s, sess, kv := newTestSyncer(map[string]backend.Backend{"freighter": bk}, nil)

	kv.Set(store.KeyBackend, "freighter")
	kv.Set(store.KeyAddress, "GABC")

	s.Reconcile(context.Background())
	if sess.Backend() != "" || sess.Address() != "" {
		t.Errorf("session not cleared on hard failure: %+v", sess.Snapshot())
	}
	if _, err := kv.Get(store.KeyBackend); err != store.ErrDataNotFound {
		t.Errorf("persisted backend not cleared, got %v", err)
	}
}

// TestNetworkInference: without detection the network is probed per candidate, unfunded everywhere adopts the default
func TestNetworkInference(t *testing.T) {
	bk := &fakeBackend{id: "walletconnect", kind: "relay", addr: "GRELAY"}
	mainLedger := &fakeLedger{found: true}
	ledgers := map[string]ledger.Service{
		"test": &fakeLedger{},
		"main": mainLedger,
	}
	s, sess, kv := newTestSyncer(map[string]backend.Backend{"walletconnect": bk}, ledgers)

	kv.Set(store.KeyBackend, "walletconnect")
	s.Reconcile(context.Background())
	if n, _ := sess.Network(); n != "main" {
		t.Errorf("expected inferred network main, got %q", n)
	}

	// unfunded everywhere adopts the default network
	s2, sess2, kv2 := newTestSyncer(map[string]backend.Backend{"walletconnect": bk},
		map[string]ledger.Service{"test": &fakeLedger{}, "main": &fakeLedger{}})
	kv2.Set(store.KeyBackend, "walletconnect")
	s2.Reconcile(context.Background())
	if n, _ := sess2.Network(); n != "test" {
		t.Errorf("expected default network test, got %q", n)
	}

	// a query error on a candidate makes the result unknown: no commit
	s3, sess3, kv3 := newTestSyncer(map[string]backend.Backend{"walletconnect": bk},
		map[string]ledger.Service{"test": &fakeLedger{err: errors.New("ledger replied 500")}, "main": &fakeLedger{}})
	kv3.Set(store.KeyBackend, "walletconnect")
	s3.Reconcile(context.Background())
	if n, _ := sess3.Network(); n != "" {
		t.Errorf("expected no commit on unknown inference, got %q", n)
	}
}

// TestDetectorNetworkFallback: a failed network detection falls back to the persisted network
func TestDetectorNetworkFallback(t *testing.T) {
	bk := &fakeDetector{fakeBackend: fakeBackend{id: "freighter", kind: "extension", addr: "GABC"}, netErr: errors.New("request timeout")}
	s, sess, kv := newTestSyncer(map[string]backend.Backend{"freighter": bk}, nil)

	kv.Set(store.KeyBackend, "freighter")
	store.SaveNetwork(kv, "main", testNets[1].Identifier)

	s.Reconcile(context.Background())
	if n, id := sess.Network(); n != "main" || id != testNets[1].Identifier {
		t.Errorf("expected persisted network fallback, got %q %q", n, id)
	}
}

// TestConnect persists the choice and resolves immediately; a backend without an address rolls back
func TestConnect(t *testing.T) {
	good := &fakeDetector{fakeBackend: fakeBackend{id: "freighter", kind: "extension", addr: "GABC"}, net: "test", netID: testNets[0].Identifier}
	bad := &fakeDetector{fakeBackend: fakeBackend{id: "broken", kind: "extension", addrErr: errors.New("no account")}, net: "test"}
	s, sess, kv := newTestSyncer(map[string]backend.Backend{"freighter": good, "broken": bad}, nil)

	if err := s.Connect(context.Background(), "nosuch"); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}

	if err := s.Connect(context.Background(), "broken"); !errors.Is(err, ErrNoAddress) {
		t.Errorf("expected ErrNoAddress, got %v", err)
	}
	if _, err := kv.Get(store.KeyBackend); err != store.ErrDataNotFound {
		t.Error("failed connect must not leave a persisted backend")
	}

	if err := s.Connect(context.Background(), "freighter"); err != nil {
		t.Errorf("err:%e", err)
	}
	if sess.Backend() != "freighter" || sess.Address() != "GABC" {
		t.Errorf("connect did not resolve the session: %+v", sess.Snapshot())
	}
}

// TestSwitchNetwork per variant: switcher switches, detector-only refuses, relay persists a preference
func TestSwitchNetwork(t *testing.T) {
	ctx := context.Background()

	// variant B: explicit switch
	sw := &fakeSwitcher{fakeDetector: fakeDetector{fakeBackend: fakeBackend{id: "albedo", kind: "companion", addr: "GABC"}, net: "test", netID: testNets[0].Identifier}}
	s, sess, kv := newTestSyncer(map[string]backend.Backend{"albedo": sw}, nil)
	kv.Set(store.KeyBackend, "albedo")
	s.Reconcile(ctx)

	if err := s.SwitchNetwork(ctx, "main"); err != nil {
		t.Errorf("err:%e", err)
	}
	if sw.switched != "main" {
		t.Error("switcher was not asked to switch")
	}
	if n, id := sess.Network(); n != "main" || id != testNets[1].Identifier {
		t.Errorf("session did not follow the switch: %q %q", n, id)
	}

	// unknown target
	if err := s.SwitchNetwork(ctx, "futurenet"); !errors.Is(err, ErrUnknownNetwork) {
		t.Errorf("expected ErrUnknownNetwork, got %v", err)
	}

	// variant A: detection without switch support
	det := &fakeDetector{fakeBackend: fakeBackend{id: "freighter", kind: "extension", addr: "GABC"}, net: "test", netID: testNets[0].Identifier}
	s2, _, kv2 := newTestSyncer(map[string]backend.Backend{"freighter": det}, nil)
	kv2.Set(store.KeyBackend, "freighter")
	s2.Reconcile(ctx)
	if err := s2.SwitchNetwork(ctx, "main"); !errors.Is(err, backend.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}

	// variant C: preference write
	rl := &fakeBackend{id: "walletconnect", kind: "relay", addr: "GRELAY"}
	s3, sess3, kv3 := newTestSyncer(map[string]backend.Backend{"walletconnect": rl},
		map[string]ledger.Service{"test": &fakeLedger{found: true}, "main": &fakeLedger{found: true}})
	kv3.Set(store.KeyBackend, "walletconnect")
	s3.Reconcile(ctx)
	if err := s3.SwitchNetwork(ctx, "main"); err != nil {
		t.Errorf("err:%e", err)
	}
	if n, _ := sess3.Network(); n != "main" {
		t.Errorf("relay preference not adopted: %q", n)
	}
	if v, _ := kv3.Get(store.KeyNetwork); v != "main" {
		t.Errorf("relay preference not persisted: %q", v)
	}
}

// TestRestoreFromStorage sets address only, leaving the network for the first reconcile
func TestRestoreFromStorage(t *testing.T) {
	bk := &fakeDetector{fakeBackend: fakeBackend{id: "freighter", kind: "extension", addr: "GABC"}, net: "test"}
	s, sess, kv := newTestSyncer(map[string]backend.Backend{"freighter": bk}, nil)

	kv.Set(store.KeyBackend, "freighter")
	kv.Set(store.KeyAddress, "GABC")

	s.RestoreFromStorage()
	if sess.Address() != "GABC" {
		t.Errorf("address not restored: %+v", sess.Snapshot())
	}
	if n, _ := sess.Network(); n != "" {
		t.Errorf("restore must not set the network, got %q", n)
	}
}
