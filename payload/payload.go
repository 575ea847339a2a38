// Package payload defines the claim-signing payload and its binary codec.
// The encoded form is the single source of truth for what the oracle signs
// and what the ledger verifies; both sides must produce byte-identical
// output for the same logical value.
package payload

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/qZheng/CavityProof/pkg/reasoncodes"
)

const (
	// Size is the exact encoded length; anything else is malformed.
	Size = 100

	SessionHashLen = 32
	NonceLen       = 16
	SignatureLen   = 64
)

// Magic tags the payload format version. A different tag means the bytes
// were produced by an unknown (past or future) encoder.
var Magic = [4]byte{'C', 'P', 'v', '1'}

// Fixed little-endian layout.
const (
	magicOffset       = 0
	userOffset        = 4
	dayOffset         = 36
	sessionHashOffset = 44
	nonceOffset       = 76
	expiresAtOffset   = 92
)

// ClaimPayload binds a claim to a specific user, UTC day and detection
// session. It is a value type; construct it once and never mutate it.
type ClaimPayload struct {
	User        solana.PublicKey
	Day         int64
	SessionHash [SessionHashLen]byte
	Nonce       [NonceLen]byte
	ExpiresAt   int64
}

// Encode serializes the payload into its fixed 100-byte wire form.
// Deterministic: equal payloads encode to equal bytes.
func (p ClaimPayload) Encode() [Size]byte {
	var buf [Size]byte

	copy(buf[magicOffset:], Magic[:])
	copy(buf[userOffset:], p.User[:])
	binary.LittleEndian.PutUint64(buf[dayOffset:], uint64(p.Day))
	copy(buf[sessionHashOffset:], p.SessionHash[:])
	copy(buf[nonceOffset:], p.Nonce[:])
	binary.LittleEndian.PutUint64(buf[expiresAtOffset:], uint64(p.ExpiresAt))

	return buf
}

// Bytes is Encode as a slice, for callers that feed signers and verifiers.
func (p ClaimPayload) Bytes() []byte {
	buf := p.Encode()
	return buf[:]
}

// Decode parses a 100-byte buffer back into a ClaimPayload. It is total
// over arbitrary input: wrong length or an unrecognized magic tag yield a
// MalformedPayload error, never a panic.
func Decode(buf []byte) (ClaimPayload, error) {
	var p ClaimPayload

	if len(buf) != Size {
		return p, reasoncodes.New(
			reasoncodes.ErrMalformedPayload,
			fmt.Sprintf("payload must be exactly %d bytes, got %d", Size, len(buf)),
		)
	}
	if !bytes.Equal(buf[magicOffset:magicOffset+len(Magic)], Magic[:]) {
		return p, reasoncodes.New(
			reasoncodes.ErrMalformedPayload,
			"unrecognized payload format tag",
		)
	}

	copy(p.User[:], buf[userOffset:])
	p.Day = int64(binary.LittleEndian.Uint64(buf[dayOffset:]))
	copy(p.SessionHash[:], buf[sessionHashOffset:])
	copy(p.Nonce[:], buf[nonceOffset:])
	p.ExpiresAt = int64(binary.LittleEndian.Uint64(buf[expiresAtOffset:]))

	return p, nil
}
