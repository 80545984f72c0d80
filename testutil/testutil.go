// Package testutil provides signed attestation generators, in-memory
// stores, and a stub indexer for the pipeline test suites.
package testutil

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/omahs/rs-eigentrust/did"
	"github.com/omahs/rs-eigentrust/protocol"
	"github.com/omahs/rs-eigentrust/schemas"
	"github.com/omahs/rs-eigentrust/store"
)

// TestDid is the subject identity used across the suites.
const TestDid = "did:pkh:eth:90f8bf6a479f320ead074411a4b0e7944ea8c9c2"

// GenerateKey creates a fresh secp256k1 key pair.
func GenerateKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return key
}

// AddressOf returns the account address of key's public half.
func AddressOf(key *ecdsa.PrivateKey) common.Address {
	return ethcrypto.PubkeyToAddress(key.PublicKey)
}

// SignDigest produces the wire signature of digest under key.
func SignDigest(t *testing.T, digest []byte, key *ecdsa.PrivateKey) schemas.Signature {
	t.Helper()
	compact, err := ethcrypto.Sign(digest, key)
	require.NoError(t, err)
	sig, err := schemas.NewSignature(compact)
	require.NoError(t, err)
	return sig
}

// MustDid parses a did string, failing the test on error.
func MustDid(t *testing.T, s string) did.Did {
	t.Helper()
	d, err := did.Parse(s)
	require.NoError(t, err)
	return d
}

// FollowOption adjusts a generated follow attestation before signing.
type FollowOption func(*schemas.FollowSchema)

// WithScope sets the follow scope.
func WithScope(scope schemas.Scope) FollowOption {
	return func(f *schemas.FollowSchema) { f.Scope = scope }
}

// WithTrustworthy sets the trustworthiness flag.
func WithTrustworthy(v bool) FollowOption {
	return func(f *schemas.FollowSchema) { f.IsTrustworthy = v }
}

// NewSignedFollow builds a follow attestation about subject, signed by key.
func NewSignedFollow(t *testing.T, key *ecdsa.PrivateKey, subject string, opts ...FollowOption) *schemas.FollowSchema {
	t.Helper()
	f := &schemas.FollowSchema{
		ID:            MustDid(t, subject),
		IsTrustworthy: true,
		Scope:         schemas.ScopeAuditor,
	}
	for _, opt := range opts {
		opt(f)
	}

	digest, err := f.SigningDigest()
	require.NoError(t, err)
	f.Sig = SignDigest(t, digest, key)
	return f
}

// NewSignedAuditApprove builds an approval of checksum for subject, signed
// by key.
func NewSignedAuditApprove(t *testing.T, key *ecdsa.PrivateKey, subject string, checksum [32]byte) *schemas.AuditApproveSchema {
	t.Helper()
	a := &schemas.AuditApproveSchema{
		ID:       MustDid(t, subject),
		Checksum: hexutil.Bytes(checksum[:]),
	}
	digest, err := a.SigningDigest()
	require.NoError(t, err)
	a.Sig = SignDigest(t, digest, key)
	return a
}

// NewSignedAuditDisapprove builds a rejection of checksum for subject,
// signed by key.
func NewSignedAuditDisapprove(t *testing.T, key *ecdsa.PrivateKey, subject string, checksum [32]byte) *schemas.AuditDisapproveSchema {
	t.Helper()
	a := &schemas.AuditDisapproveSchema{
		ID:       MustDid(t, subject),
		Checksum: hexutil.Bytes(checksum[:]),
	}
	digest, err := a.SigningDigest()
	require.NoError(t, err)
	a.Sig = SignDigest(t, digest, key)
	return a
}

// NewSignedEndorsement builds a credential endorsement for subject with the
// given status, signed by key.
func NewSignedEndorsement(t *testing.T, key *ecdsa.PrivateKey, subject string, status schemas.StatusValue) *schemas.EndorseCredentialSchema {
	t.Helper()
	e := &schemas.EndorseCredentialSchema{
		ID:     MustDid(t, subject),
		Status: status,
	}
	digest, err := e.SigningDigest()
	require.NoError(t, err)
	e.Sig = SignDigest(t, digest, key)
	return e
}

// SchemaValue serializes an attestation into the indexer's schema_value
// string form.
func SchemaValue[T any](t *testing.T, att *T) string {
	t.Helper()
	data, err := protocol.SerializeMessage(att)
	require.NoError(t, err)
	return string(data)
}

// NewMemStore opens an in-memory store that closes with the test.
func NewMemStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
