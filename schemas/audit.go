package schemas

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/omahs/rs-eigentrust/did"
	"github.com/omahs/rs-eigentrust/term"
)

const (
	auditDomain   uint32 = 2
	auditWeight   uint32 = 100
	checksumBytes        = 32
)

// AuditApproveSchema attests that the signer audited the artifact identified
// by Checksum and approves it on behalf of the subject identity.
type AuditApproveSchema struct {
	ID       did.Did       `json:"id"`
	Checksum hexutil.Bytes `json:"checksum"`
	Sig      Signature     `json:"sig"`
}

// SigningDigest covers the subject key followed by the artifact checksum.
func (a *AuditApproveSchema) SigningDigest() ([]byte, error) {
	if len(a.Checksum) != checksumBytes {
		return nil, fmt.Errorf("%w: checksum is %d bytes, want %d", ErrParse, len(a.Checksum), checksumBytes)
	}
	return keccak(a.ID.Key.Bytes(), a.Checksum), nil
}

// Validate recovers and re-verifies the signer's public key.
func (a *AuditApproveSchema) Validate() (*ecdsa.PublicKey, error) {
	digest, err := a.SigningDigest()
	if err != nil {
		return nil, err
	}
	return recoverSigner(digest, a.Sig)
}

// Term derives a positive audit edge: auditor address → audited subject key.
func (a *AuditApproveSchema) Term() (term.Term, error) {
	pub, err := a.Validate()
	if err != nil {
		return term.Term{}, err
	}

	return term.Term{
		From:     ethcrypto.PubkeyToAddress(*pub),
		To:       a.ID.Key,
		Weight:   auditWeight,
		Domain:   auditDomain,
		Positive: true,
	}, nil
}

// AuditDisapproveSchema is structurally identical to AuditApproveSchema but
// records a rejection; the derived edge carries negative polarity.
type AuditDisapproveSchema struct {
	ID       did.Did       `json:"id"`
	Checksum hexutil.Bytes `json:"checksum"`
	Sig      Signature     `json:"sig"`
}

// SigningDigest covers the subject key followed by the artifact checksum.
func (a *AuditDisapproveSchema) SigningDigest() ([]byte, error) {
	if len(a.Checksum) != checksumBytes {
		return nil, fmt.Errorf("%w: checksum is %d bytes, want %d", ErrParse, len(a.Checksum), checksumBytes)
	}
	return keccak(a.ID.Key.Bytes(), a.Checksum), nil
}

// Validate recovers and re-verifies the signer's public key.
func (a *AuditDisapproveSchema) Validate() (*ecdsa.PublicKey, error) {
	digest, err := a.SigningDigest()
	if err != nil {
		return nil, err
	}
	return recoverSigner(digest, a.Sig)
}

// Term derives a negative audit edge: auditor address → audited subject key.
func (a *AuditDisapproveSchema) Term() (term.Term, error) {
	pub, err := a.Validate()
	if err != nil {
		return term.Term{}, err
	}

	return term.Term{
		From:     ethcrypto.PubkeyToAddress(*pub),
		To:       a.ID.Key,
		Weight:   auditWeight,
		Domain:   auditDomain,
		Positive: false,
	}, nil
}
