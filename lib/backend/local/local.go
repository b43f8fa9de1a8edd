// Package local implements an in-process development signer backed by an HD wallet. It signs with an HMAC over the envelope using the derived key, which is accepted by the development runtime only. The backend is pinned to the configured default network.
package local

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/tarancss/hd"

	"github.com/perkhub/walletcore/lib/chain"
)

// Local derives its signer from the service HD seed.
type Local struct {
	id        string
	address   string
	key       []byte
	network   string
	networkID string
}

// New derives the signer address and key for the given HD path and pins the backend to the given network.
func New(id, seed string, wallet uint32, change uint8, index uint32, network, networkID string) (*Local, error) {
	raw, err := hex.DecodeString(seed)
	if err != nil {
		return nil, fmt.Errorf("decode HD seed: %w", err)
	}

	hdw, err := hd.Init(raw)
	if err != nil {
		return nil, fmt.Errorf("init HD wallet: %w", err)
	}

	addr, key, _, err := hdw.Address(wallet, change, index)
	if err != nil {
		return nil, fmt.Errorf("derive HD address %d/%d/%d: %w", wallet, change, index, err)
	}

	return &Local{
		id:        id,
		address:   "0x" + hex.EncodeToString(addr),
		key:       key,
		network:   network,
		networkID: networkID,
	}, nil
}

// ID returns the configured backend id.
func (l *Local) ID() string {
	return l.id
}

// Kind returns the backend kind.
func (l *Local) Kind() string {
	return "local"
}

// Close ends the connection. The local signer holds no resources.
func (l *Local) Close() {}

// GetAddress returns the derived signer address.
func (l *Local) GetAddress(ctx context.Context) (string, error) {
	return l.address, nil
}

// GetNetwork returns the pinned network, so the synchronizer never has to infer it.
func (l *Local) GetNetwork(ctx context.Context) (string, string, error) {
	return l.network, l.networkID, nil
}

// Sign appends an HMAC signature over the envelope and returns the re-encoded transaction as a raw JSON string.
func (l *Local) Sign(ctx context.Context, encodedTx, networkID, address string) (json.RawMessage, error) {
	tx, err := chain.Decode(encodedTx, networkID)
	if err != nil {
		return nil, fmt.Errorf("decode transaction to sign: %w", err)
	}

	mac := hmac.New(sha256.New, l.key)
	mac.Write([]byte(encodedTx))
	mac.Write([]byte(networkID))

	hint := l.address
	if len(hint) > 10 {
		hint = hint[:10]
	}
	tx.Signatures = append(tx.Signatures, chain.Signature{
		Hint: hint,
		Sig:  hex.EncodeToString(mac.Sum(nil)),
	})

	enc, err := tx.Encode()
	if err != nil {
		return nil, err
	}

	return json.Marshal(enc)
}
