package ledger

import (
	"crypto/sha256"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"

	"github.com/qZheng/CavityProof/payload"
)

// ProgressAccountVersion tags the account schema. Readers must check it
// instead of sniffing the remaining byte length.
const ProgressAccountVersion uint8 = 1

// progressAccountV1 is the borsh wire form of a Progress record.
type progressAccountV1 struct {
	Version        uint8    `borsh:"version"`
	Owner          [32]byte `borsh:"owner"`
	Streak         uint32   `borsh:"streak"`
	LastDayClaimed int64    `borsh:"last_day_claimed"`
	TotalClaims    uint32   `borsh:"total_claims"`
}

// MarshalAccount serializes the progress record into its versioned
// account form.
func (p Progress) MarshalAccount() ([]byte, error) {
	return borsh.Serialize(progressAccountV1{
		Version:        ProgressAccountVersion,
		Owner:          p.Owner,
		Streak:         p.Streak,
		LastDayClaimed: p.LastDayClaimed,
		TotalClaims:    p.TotalClaims,
	})
}

// UnmarshalAccount parses a versioned account record.
func UnmarshalAccount(data []byte) (Progress, error) {
	var acc progressAccountV1
	if err := borsh.Deserialize(&acc, data); err != nil {
		return Progress{}, err
	}
	if acc.Version != ProgressAccountVersion {
		return Progress{}, fmt.Errorf("unsupported progress account version %d", acc.Version)
	}
	return Progress{
		Owner:          solana.PublicKey(acc.Owner),
		Streak:         acc.Streak,
		LastDayClaimed: acc.LastDayClaimed,
		TotalClaims:    acc.TotalClaims,
	}, nil
}

// ReplayKey addresses a (user, nonce) replay record. The record's mere
// existence at this address is the replay marker.
type ReplayKey [32]byte

func (k ReplayKey) String() string { return fmt.Sprintf("%x", k[:]) }

// ReplayAddress derives the replay record address deterministically from
// the claimant and nonce, mirroring the on-chain PDA seeds.
func ReplayAddress(user solana.PublicKey, nonce [payload.NonceLen]byte) ReplayKey {
	h := sha256.New()
	h.Write([]byte("replay"))
	h.Write(user[:])
	h.Write(nonce[:])

	var key ReplayKey
	copy(key[:], h.Sum(nil))
	return key
}
