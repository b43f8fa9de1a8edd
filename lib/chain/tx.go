package chain

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// DefaultIdentifier is the well-known test network passphrase. It is the final fallback when decoding a signed transaction whose backend signed against a different but compatible default.
const DefaultIdentifier = "Test SDF Network ; September 2015"

// Argument types accepted in contract calls.
const (
	ArgAddress = "address"
	ArgString  = "string"
	ArgI128    = "i128"
)

// Errors returned
var (
	ErrNetworkMismatch = errors.New("transaction was built for a different network")
	ErrBadArg          = errors.New("invalid contract call argument")
)

// i128 bounds
var (
	i128Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	i128Min = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// Arg is one typed contract call argument.
type Arg struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Signature is one signer's signature over the transaction envelope.
type Signature struct {
	Hint string `json:"hint,omitempty"`
	Sig  string `json:"sig"`
}

// Transaction is the envelope for a contract invocation. NetworkDigest scopes it to one ledger instance; a transaction decoded against another network's identifier fails with ErrNetworkMismatch.
type Transaction struct {
	Source        string      `json:"source"`
	Sequence      string      `json:"sequence"`
	Contract      string      `json:"contract"`
	Function      string      `json:"function"`
	Args          []Arg       `json:"args"`
	Footprint     string      `json:"footprint,omitempty"`
	Fee           string      `json:"fee,omitempty"`
	NetworkDigest string      `json:"networkDigest"`
	Signatures    []Signature `json:"signatures,omitempty"`
}

// NetworkDigest returns the hex SHA-256 of a network identifier string.
func NetworkDigest(networkID string) string {
	h := sha256.Sum256([]byte(networkID))
	return hex.EncodeToString(h[:])
}

// Build assembles a transaction envelope for a contract call, validating each argument type. i128 values must parse as base-10 integers within the signed 128-bit range.
func Build(source, sequence, contract, function string, args []Arg, networkID string) (*Transaction, error) {
	for i, a := range args {
		switch a.Type {
		case ArgAddress:
			if a.Value == "" {
				return nil, fmt.Errorf("arg %d: empty address: %w", i, ErrBadArg)
			}
		case ArgString:
			// any string goes
		case ArgI128:
			v, ok := new(big.Int).SetString(a.Value, 10)
			if !ok {
				return nil, fmt.Errorf("arg %d: %q is not an integer: %w", i, a.Value, ErrBadArg)
			}
			if v.Cmp(i128Min) < 0 || v.Cmp(i128Max) > 0 {
				return nil, fmt.Errorf("arg %d: %q out of i128 range: %w", i, a.Value, ErrBadArg)
			}
		default:
			return nil, fmt.Errorf("arg %d: unknown type %q: %w", i, a.Type, ErrBadArg)
		}
	}
	return &Transaction{
		Source:        source,
		Sequence:      sequence,
		Contract:      contract,
		Function:      function,
		Args:          args,
		NetworkDigest: NetworkDigest(networkID),
	}, nil
}

// Encode serializes the envelope to its base64 wire form.
func (t *Transaction) Encode() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Decode parses an encoded envelope and verifies it was built for networkID. Callers may retry once with DefaultIdentifier on ErrNetworkMismatch.
func Decode(encoded, networkID string) (*Transaction, error) {
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	var t Transaction
	if err = json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if t.NetworkDigest != NetworkDigest(networkID) {
		return nil, ErrNetworkMismatch
	}
	return &t, nil
}
