package toxcore

import (
	"encoding/json"
	"io/ioutil"

	"github.com/dlazar-im/toxcore/errors"
	"github.com/dlazar-im/toxcore/identity"
)

// BootstrapNode is one DHT/TCP-relay seed entry in a bootstrap list: an
// address plus the public key it is expected to present, so a fresh
// client with an empty roster has somewhere to start rendezvous.
type BootstrapNode struct {
	Address   string `json:"address"`
	Port      int    `json:"port"`
	PublicKey string `json:"public_key"` // hex, identity.KeySize bytes

	// TCPRelay marks a node usable only as a TCP relay fallback, never as
	// a DHT rendezvous point.
	TCPRelay bool `json:"tcp_relay,omitempty"`
}

// BootstrapList is the on-disk bootstrap-node configuration, JSON-encoded
// the way the teacher persists client state: a plain struct round-tripped
// through encoding/json, no schema registry or generated codec.
type BootstrapList struct {
	Nodes []BootstrapNode `json:"nodes"`
}

// DecodeKey parses the node's hex-encoded public key and validates it as a
// usable X25519 point.
func (n BootstrapNode) DecodeKey() ([32]byte, error) {
	var key [32]byte
	raw, err := identity.DecodeHexKey(n.PublicKey)
	if err != nil {
		return key, errors.Wrap(err, "bootstrap: bad node public key")
	}
	key = raw
	if err := identity.ValidateKey(key); err != nil {
		return key, err
	}
	return key, nil
}

// LoadBootstrapList reads and parses a bootstrap-node list from path.
func LoadBootstrapList(path string) (*BootstrapList, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	list := new(BootstrapList)
	if err := json.Unmarshal(data, list); err != nil {
		return nil, errors.Wrap(err, "bootstrap: parsing %q", path)
	}
	return list, nil
}

// Save writes the list back to path as indented JSON.
func (l *BootstrapList) Save(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0o600)
}
