package store

// Connection groups the persisted wallet connection tuple. Any field may be empty when it was never persisted.
type Connection struct {
	Backend   string `json:"backend"`
	Address   string `json:"address"`
	Network   string `json:"network"`
	NetworkID string `json:"networkIdentifier"`
}

// LoadConnection reads the full connection tuple from the KV, mapping missing keys to empty strings.
func LoadConnection(kv KV) (Connection, error) {
	var c Connection
	var err error
	for _, f := range []struct {
		key string
		p   *string
	}{
		{KeyBackend, &c.Backend},
		{KeyAddress, &c.Address},
		{KeyNetwork, &c.Network},
		{KeyNetworkID, &c.NetworkID},
	} {
		if *f.p, err = kv.Get(f.key); err != nil {
			if err == ErrDataNotFound {
				*f.p = ""
				continue
			}
			return c, err
		}
	}
	return c, nil
}

// SaveNetwork persists the network name and identifier.
func SaveNetwork(kv KV, network, networkID string) error {
	if err := kv.Set(KeyNetwork, network); err != nil {
		return err
	}
	return kv.Set(KeyNetworkID, networkID)
}

// ClearConnection removes the whole persisted tuple.
func ClearConnection(kv KV) error {
	var first error
	for _, k := range []string{KeyBackend, KeyAddress, KeyNetwork, KeyNetworkID} {
		if err := kv.Remove(k); err != nil && err != ErrDataNotFound && first == nil {
			first = err
		}
	}
	return first
}
