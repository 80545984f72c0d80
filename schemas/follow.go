package schemas

import (
	"crypto/ecdsa"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/omahs/rs-eigentrust/did"
	"github.com/omahs/rs-eigentrust/term"
)

// Scope qualifies the capacity in which the subject is followed.
type Scope string

const (
	ScopeReviewer  Scope = "Reviewer"
	ScopeDeveloper Scope = "Developer"
	ScopeAuditor   Scope = "Auditor"
)

// byteValue returns the single-byte encoding used in the signing digest.
func (s Scope) byteValue() (byte, error) {
	switch s {
	case ScopeReviewer:
		return 0, nil
	case ScopeDeveloper:
		return 1, nil
	case ScopeAuditor:
		return 2, nil
	default:
		return 0, fmt.Errorf("%w: unknown scope %q", ErrParse, s)
	}
}

// FollowSchema attests that the signer considers the subject identity
// trustworthy (or not) in the given scope.
type FollowSchema struct {
	ID            did.Did   `json:"id"`
	IsTrustworthy bool      `json:"is_trustworthy"`
	Scope         Scope     `json:"scope"`
	Sig           Signature `json:"sig"`
}

const (
	followDomain uint32 = 1
	followWeight uint32 = 50
)

// SigningDigest computes the Keccak-256 digest the signature covers:
// subject key, trustworthiness flag, then scope, each in canonical order.
func (f *FollowSchema) SigningDigest() ([]byte, error) {
	scope, err := f.Scope.byteValue()
	if err != nil {
		return nil, err
	}
	return keccak(f.ID.Key.Bytes(), []byte{boolByte(f.IsTrustworthy)}, []byte{scope}), nil
}

// Validate recovers and re-verifies the signer's public key.
func (f *FollowSchema) Validate() (*ecdsa.PublicKey, error) {
	digest, err := f.SigningDigest()
	if err != nil {
		return nil, err
	}
	return recoverSigner(digest, f.Sig)
}

// Term derives the follow edge: signer address → subject key.
func (f *FollowSchema) Term() (term.Term, error) {
	pub, err := f.Validate()
	if err != nil {
		return term.Term{}, err
	}

	return term.Term{
		From:     ethcrypto.PubkeyToAddress(*pub),
		To:       f.ID.Key,
		Weight:   followWeight,
		Domain:   followDomain,
		Positive: f.IsTrustworthy,
	}, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
