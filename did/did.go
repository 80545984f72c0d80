// Package did parses decentralized identifiers of the did:pkh:eth method
// into 20-byte account addresses.
package did

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const prefix = "did:pkh:eth:"

// Did is a parsed identity reference. Key holds the 20-byte account address
// encoded in the identifier.
type Did struct {
	Key common.Address
}

// Parse parses a did:pkh:eth identifier. The address part must be exactly
// 40 hex characters, with or without a 0x prefix.
func Parse(s string) (Did, error) {
	if !strings.HasPrefix(s, prefix) {
		return Did{}, fmt.Errorf("invalid did %q: expected %q method prefix", s, prefix)
	}

	hexPart := strings.TrimPrefix(strings.TrimPrefix(s, prefix), "0x")
	raw, err := hex.DecodeString(hexPart)
	if err != nil {
		return Did{}, fmt.Errorf("invalid did %q: %w", s, err)
	}
	if len(raw) != common.AddressLength {
		return Did{}, fmt.Errorf("invalid did %q: key is %d bytes, want %d", s, len(raw), common.AddressLength)
	}

	return Did{Key: common.BytesToAddress(raw)}, nil
}

// String renders the identifier in canonical did:pkh:eth form.
func (d Did) String() string {
	return prefix + hex.EncodeToString(d.Key.Bytes())
}

// MarshalJSON encodes the Did as its canonical string form.
func (d Did) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes and validates a Did from its string form.
func (d *Did) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
