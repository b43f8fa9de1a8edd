package pipeline

import (
	"encoding/json"
	"fmt"
)

// NormalizeSignResult reduces the backend's sign reply to a single encoded transaction. Backends answer either with a raw JSON string, or with a wrapper object under one of several known field names. An unrecognized shape is fatal.
func NormalizeSignResult(raw json.RawMessage) (string, error) {
	// a raw encoded transaction as a JSON string
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}

	// a wrapper object under one of the known field names
	var w struct {
		SignedTxXdr string `json:"signedTxXdr"`
		Xdr         string `json:"xdr"`
		SignedXdr   string `json:"signedXdr"`
	}
	if err := json.Unmarshal(raw, &w); err == nil {
		switch {
		case w.SignedTxXdr != "":
			return w.SignedTxXdr, nil
		case w.Xdr != "":
			return w.Xdr, nil
		case w.SignedXdr != "":
			return w.SignedXdr, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedSignResult, raw)
}
