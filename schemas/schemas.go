// Package schemas implements the closed set of attestation variants ingested
// from the event indexer. Each variant knows how to compute its canonical
// signing digest, validate its recoverable ECDSA signature, and derive the
// trust-graph term it attests to.
package schemas

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"

	"github.com/omahs/rs-eigentrust/term"
)

// Sentinel errors surfaced by attestation parsing and validation.
var (
	ErrUnsupportedSchema = errors.New("unsupported schema id")
	ErrParse             = errors.New("malformed attestation payload")
	ErrVerification      = errors.New("attestation signature verification failed")
)

// SchemaType identifies an attestation kind on the wire.
type SchemaType uint32

const (
	SchemaFollow SchemaType = iota + 1
	SchemaAuditApprove
	SchemaAuditDisapprove
	SchemaEndorseCredential
)

// Attestation is the capability set shared by all schema variants.
type Attestation interface {
	// Validate recovers the signer's public key from the recoverable
	// signature over the variant's canonical digest and independently
	// re-verifies the signature against the recovered key.
	Validate() (*ecdsa.PublicKey, error)

	// Term derives the trust-graph edge attested to. It validates first;
	// an invalid signature yields an error, never a term.
	Term() (term.Term, error)
}

// Parse decodes a raw attestation payload into its schema variant.
// Unknown schema ids are rejected explicitly.
func Parse(schemaID uint32, value []byte) (Attestation, error) {
	var att Attestation
	switch SchemaType(schemaID) {
	case SchemaFollow:
		att = &FollowSchema{}
	case SchemaAuditApprove:
		att = &AuditApproveSchema{}
	case SchemaAuditDisapprove:
		att = &AuditDisapproveSchema{}
	case SchemaEndorseCredential:
		att = &EndorseCredentialSchema{}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, schemaID)
	}

	if err := json.Unmarshal(value, att); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return att, nil
}

// keccak hashes the canonically ordered field encodings of a variant.
func keccak(fields ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, f := range fields {
		h.Write(f)
	}
	return h.Sum(nil)
}

// recoverSigner recovers the public key from a recoverable signature over
// digest and re-verifies the signature against the recovered key. Both steps
// must succeed.
func recoverSigner(digest []byte, sig Signature) (*ecdsa.PublicKey, error) {
	compact, err := sig.compact()
	if err != nil {
		return nil, err
	}

	pub, err := ethcrypto.SigToPub(digest, compact)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}

	if !ethcrypto.VerifySignature(ethcrypto.FromECDSAPub(pub), digest, compact[:64]) {
		return nil, fmt.Errorf("%w: signature does not match recovered key", ErrVerification)
	}
	return pub, nil
}
