// Package term defines the canonical trust-graph edge derived from one
// verified attestation, and its storage codec.
package term

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// EncodedLen is the size of a term in its storage encoding:
// from(20) || to(20) || weight BE(4) || domain BE(4) || positive(1).
const EncodedLen = 2*common.AddressLength + 4 + 4 + 1

// Term is a directed, weighted, domain-tagged edge of the trust graph.
// Domain distinguishes attestation kinds so downstream consumers can apply
// per-domain policy. A term is immutable once derived.
type Term struct {
	From     common.Address
	To       common.Address
	Weight   uint32
	Domain   uint32
	Positive bool
}

// Marshal encodes the term into its canonical storage form.
func (t Term) Marshal() []byte {
	buf := make([]byte, 0, EncodedLen)
	buf = append(buf, t.From.Bytes()...)
	buf = append(buf, t.To.Bytes()...)
	buf = binary.BigEndian.AppendUint32(buf, t.Weight)
	buf = binary.BigEndian.AppendUint32(buf, t.Domain)
	if t.Positive {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// Unmarshal decodes a term from its canonical storage form.
func Unmarshal(data []byte) (Term, error) {
	if len(data) != EncodedLen {
		return Term{}, fmt.Errorf("malformed term record: %d bytes, want %d", len(data), EncodedLen)
	}

	var t Term
	t.From = common.BytesToAddress(data[:common.AddressLength])
	t.To = common.BytesToAddress(data[common.AddressLength : 2*common.AddressLength])
	t.Weight = binary.BigEndian.Uint32(data[40:44])
	t.Domain = binary.BigEndian.Uint32(data[44:48])
	t.Positive = data[48] != 0
	return t, nil
}
