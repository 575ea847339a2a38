// Package oracle implements the attestation oracle: a stateless signing
// service that certifies freshness and shape of claim requests. It does not
// verify that a session hash corresponds to a genuine detection event;
// that binding happens client-side before the oracle ever sees the hash.
package oracle

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/qZheng/CavityProof/payload"
	"github.com/qZheng/CavityProof/pkg/reasoncodes"
)

// MaxAttestationWindow bounds how far in the future an attestation may
// expire. It limits the blast radius of a leaked attestation.
const MaxAttestationWindow = 180 * time.Second

// Attestation is the oracle's signed statement over one encoded payload.
// It is ephemeral: produced here, consumed once by the ledger, never stored.
type Attestation struct {
	OraclePubkey solana.PublicKey
	Payload      payload.ClaimPayload
	Signature    solana.Signature
}

type Service struct {
	key *SigningKey
	now func() time.Time
}

func NewService(key *SigningKey, opts ...func(*Service)) *Service {
	s := &Service{
		key: key,
		now: time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// WithClock overrides the freshness clock (tests only).
func WithClock(now func() time.Time) func(*Service) {
	return func(s *Service) { s.now = now }
}

// PublicKey returns the oracle's signing identity. The private key itself
// never leaves the service.
func (s *Service) PublicKey() solana.PublicKey {
	return s.key.PublicKey
}

// Sign validates the request shape and freshness window, then produces a
// detached signature over the encoded payload. The oracle keeps no
// per-request state; replay protection is entirely the ledger's job.
func (s *Service) Sign(user solana.PublicKey, day int64, sessionHash [payload.SessionHashLen]byte, nonce [payload.NonceLen]byte, expiresAt int64) (Attestation, error) {
	if user.IsZero() {
		return Attestation{}, reasoncodes.New(
			reasoncodes.ErrInvalidRequestShape,
			"user identity is missing",
		)
	}

	now := s.now().Unix()
	if expiresAt < now {
		return Attestation{}, reasoncodes.New(
			reasoncodes.ErrAttestationWindowViolation,
			"expiresAt is already in the past",
		)
	}
	maxExpiry := now + int64(MaxAttestationWindow.Seconds())
	if expiresAt > maxExpiry {
		return Attestation{}, reasoncodes.New(
			reasoncodes.ErrAttestationWindowViolation,
			fmt.Sprintf("expiresAt exceeds the %ds attestation window", int64(MaxAttestationWindow.Seconds())),
		)
	}

	p := payload.ClaimPayload{
		User:        user,
		Day:         day,
		SessionHash: sessionHash,
		Nonce:       nonce,
		ExpiresAt:   expiresAt,
	}

	sig, err := s.key.PrivateKey.Sign(p.Bytes())
	if err != nil {
		// never surface key material or signer internals
		return Attestation{}, reasoncodes.New(
			reasoncodes.ErrInvalidRequestShape,
			"signing failed",
		)
	}

	return Attestation{
		OraclePubkey: s.key.PublicKey,
		Payload:      p,
		Signature:    sig,
	}, nil
}

// VerifySignature is a pure signature check, independent of any ledger
// state. It succeeds only for the exact signed byte sequence and the
// matching public key.
func VerifySignature(pubkey solana.PublicKey, payloadBytes []byte, sig solana.Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pubkey[:]), payloadBytes, sig[:])
}
