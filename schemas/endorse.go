package schemas

import (
	"crypto/ecdsa"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/omahs/rs-eigentrust/did"
	"github.com/omahs/rs-eigentrust/term"
)

// StatusValue is the polarity of a credential endorsement.
type StatusValue string

const (
	StatusEndorsed StatusValue = "Endorsed"
	StatusDisputed StatusValue = "Disputed"
)

func (s StatusValue) byteValue() (byte, error) {
	switch s {
	case StatusEndorsed:
		return 0, nil
	case StatusDisputed:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: unknown status %q", ErrParse, s)
	}
}

const (
	endorseDomain uint32 = 3
	endorseWeight uint32 = 25
)

// EndorseCredentialSchema attests to the standing of a credential held by
// the subject identity: endorsed or disputed.
type EndorseCredentialSchema struct {
	ID     did.Did     `json:"id"`
	Status StatusValue `json:"status"`
	Sig    Signature   `json:"sig"`
}

// SigningDigest covers the subject key followed by the status byte.
func (e *EndorseCredentialSchema) SigningDigest() ([]byte, error) {
	status, err := e.Status.byteValue()
	if err != nil {
		return nil, err
	}
	return keccak(e.ID.Key.Bytes(), []byte{status}), nil
}

// Validate recovers and re-verifies the signer's public key.
func (e *EndorseCredentialSchema) Validate() (*ecdsa.PublicKey, error) {
	digest, err := e.SigningDigest()
	if err != nil {
		return nil, err
	}
	return recoverSigner(digest, e.Sig)
}

// Term derives the endorsement edge: endorser address → subject key.
func (e *EndorseCredentialSchema) Term() (term.Term, error) {
	pub, err := e.Validate()
	if err != nil {
		return term.Term{}, err
	}

	return term.Term{
		From:     ethcrypto.PubkeyToAddress(*pub),
		To:       e.ID.Key,
		Weight:   endorseWeight,
		Domain:   endorseDomain,
		Positive: e.Status == StatusEndorsed,
	}, nil
}
