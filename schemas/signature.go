package schemas

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signature is a recoverable ECDSA signature over a variant's canonical
// digest, carried in attestation payloads as hex-encoded r and s components
// plus the recovery id.
type Signature struct {
	RecoveryID int32         `json:"recovery_id"`
	R          hexutil.Bytes `json:"r"`
	S          hexutil.Bytes `json:"s"`
}

// NewSignature splits a 65-byte [R || S || V] signature, as produced by
// go-ethereum's crypto.Sign, into its wire form.
func NewSignature(compact []byte) (Signature, error) {
	if len(compact) != ethcrypto.SignatureLength {
		return Signature{}, fmt.Errorf("signature is %d bytes, want %d", len(compact), ethcrypto.SignatureLength)
	}
	sig := Signature{
		RecoveryID: int32(compact[64]),
		R:          append(hexutil.Bytes(nil), compact[:32]...),
		S:          append(hexutil.Bytes(nil), compact[32:64]...),
	}
	return sig, nil
}

// compact reassembles the 65-byte [R || S || V] form expected by the
// recovery routines, validating component sizes and the recovery id range.
func (s Signature) compact() ([]byte, error) {
	if len(s.R) != 32 || len(s.S) != 32 {
		return nil, fmt.Errorf("%w: r/s must be 32 bytes, got %d/%d", ErrVerification, len(s.R), len(s.S))
	}
	if s.RecoveryID < 0 || s.RecoveryID > 3 {
		return nil, fmt.Errorf("%w: recovery id %d out of range", ErrVerification, s.RecoveryID)
	}

	out := make([]byte, 0, ethcrypto.SignatureLength)
	out = append(out, s.R...)
	out = append(out, s.S...)
	out = append(out, byte(s.RecoveryID))
	return out, nil
}
