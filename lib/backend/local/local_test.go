package local

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/perkhub/walletcore/lib/chain"
)

var seed = "642ce4e20f09c9f4d285c2b336063eaafbe4cb06dece8134f3a64bdd8f8c0c24df73e1a2e7056359b6db61e179ff45e5ada51d14f07b30becb6d92b961d35df4"
var testID = "Test SDF Network ; September 2015"

func TestLocalSigner(t *testing.T) {
	l, err := New("dev", seed, 0, 0, 0, "test", testID)
	if err != nil {
		t.Fatalf("err:%e", err)
	}

	addr, err := l.GetAddress(context.Background())
	if err != nil || addr == "" {
		t.Fatalf("address does not match: %q err:%v", addr, err)
	}

	net, id, err := l.GetNetwork(context.Background())
	if err != nil || net != "test" || id != testID {
		t.Errorf("network does not match: %q %q err:%v", net, id, err)
	}

	tx, _ := chain.Build(addr, "1", "CCONTRACT", "claim", nil, testID)
	enc, _ := tx.Encode()

	raw, err := l.Sign(context.Background(), enc, testID, addr)
	if err != nil {
		t.Fatalf("err:%e", err)
	}

	// the local signer replies with a raw JSON string holding the re-encoded envelope
	var signed string
	if err = json.Unmarshal(raw, &signed); err != nil {
		t.Fatalf("expected a JSON string reply: %s", raw)
	}
	tx2, err := chain.Decode(signed, testID)
	if err != nil {
		t.Fatalf("err:%e", err)
	}
	if len(tx2.Signatures) != 1 || tx2.Signatures[0].Sig == "" {
		t.Errorf("expected one signature, got %+v", tx2.Signatures)
	}
}

// TestLocalDeterministic derives the same address for the same path
func TestLocalDeterministic(t *testing.T) {
	a, err := New("dev", seed, 0, 0, 0, "test", testID)
	if err != nil {
		t.Fatalf("err:%e", err)
	}
	b, _ := New("dev", seed, 0, 0, 0, "test", testID)
	if a.address != b.address {
		t.Errorf("derivation is not deterministic: %s vs %s", a.address, b.address)
	}
	c, _ := New("dev", seed, 0, 0, 1, "test", testID)
	if a.address == c.address {
		t.Error("different index should derive a different address")
	}
}
