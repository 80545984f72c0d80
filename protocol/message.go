// Package protocol defines the wire messages exchanged between the pipeline
// services and the JSON codecs for request/response and streaming calls.
package protocol

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omahs/rs-eigentrust/term"
)

// TermObject is the wire form of a trust-graph edge, with hex-encoded
// addresses.
type TermObject struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Weight   uint32 `json:"weight"`
	Domain   uint32 `json:"domain"`
	Positive bool   `json:"positive"`
}

// FromTerm converts a stored term into its wire form.
func FromTerm(t term.Term) TermObject {
	return TermObject{
		From:     t.From.Hex(),
		To:       t.To.Hex(),
		Weight:   t.Weight,
		Domain:   t.Domain,
		Positive: t.Positive,
	}
}

// Term converts the wire form back into a term, validating the addresses.
func (o TermObject) Term() (term.Term, error) {
	if !common.IsHexAddress(o.From) {
		return term.Term{}, fmt.Errorf("invalid from address %q", o.From)
	}
	if !common.IsHexAddress(o.To) {
		return term.Term{}, fmt.Errorf("invalid to address %q", o.To)
	}
	return term.Term{
		From:     common.HexToAddress(o.From),
		To:       common.HexToAddress(o.To),
		Weight:   o.Weight,
		Domain:   o.Domain,
		Positive: o.Positive,
	}, nil
}

// TermBatch selects the term id range [Start, Start+Size) for streaming.
type TermBatch struct {
	Start uint32 `json:"start"`
	Size  uint32 `json:"size"`
}

// MatrixBatch scopes a sparse matrix dump. Offset entries are skipped in key
// order; Limit bounds the emitted entries, zero meaning no bound.
type MatrixBatch struct {
	Offset uint32 `json:"offset"`
	Limit  uint32 `json:"limit"`
}

// MatrixEntry is one sparse matrix triplet handed to the core computer.
type MatrixEntry struct {
	X     uint32 `json:"x"`
	Y     uint32 `json:"y"`
	Value uint32 `json:"value"`
}

// Ack is the empty acknowledgement returned by sync endpoints.
type Ack struct {
	Status string `json:"status"`
}

// DecodeMessage deserializes a message from a JSON reader.
func DecodeMessage[T any](reader io.Reader) (*T, error) {
	var msg T
	err := json.NewDecoder(reader).Decode(&msg)
	return &msg, err
}

// SerializeMessage serializes a message to JSON bytes.
func SerializeMessage[T any](msg *T) ([]byte, error) {
	return json.Marshal(msg)
}
