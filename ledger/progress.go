// Package ledger implements the authoritative claim transition: signature
// verification, replay protection and the per-user streak state machine.
// It is the Go rendition of what the on-chain program enforces; the stores
// here provide the atomic, ordered account mutation the protocol assumes.
package ledger

import (
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"

	"github.com/qZheng/CavityProof/pkg/reasoncodes"
)

// NeverClaimed is the lastDayClaimed sentinel for a fresh account.
const NeverClaimed int64 = -1

// Progress is the per-user durable record. Owner is set once at creation
// and never changes; everything else moves only through Advance.
type Progress struct {
	Owner          solana.PublicKey `json:"owner"`
	Streak         uint32           `json:"streak"`
	LastDayClaimed int64            `json:"lastDayClaimed"`
	TotalClaims    uint32           `json:"totalClaims"`
}

func NewProgress(owner solana.PublicKey) Progress {
	return Progress{
		Owner:          owner,
		Streak:         0,
		LastDayClaimed: NeverClaimed,
		TotalClaims:    0,
	}
}

// Advance applies the day-gap transition for an accepted claim.
//
//	never claimed        -> streak = 1
//	day == last + 1      -> streak + 1
//	day == last          -> rejected (DaySequenceRejected)
//	anything else        -> streak resets to 1
//
// A second claim for the already-claimed day is rejected even with a fresh
// nonce; use AdvanceDev to bypass that rule.
func Advance(p Progress, day int64) (Progress, error) {
	if day == p.LastDayClaimed && p.LastDayClaimed != NeverClaimed {
		return p, reasoncodes.New(
			reasoncodes.ErrDaySequenceRejected,
			fmt.Sprintf("day %d already claimed", day),
		)
	}
	return advance(p, day), nil
}

// AdvanceDev is the test-only transition behind claim_dev: it accepts any
// day ordering so the signature and replay paths can be exercised without
// waiting a real day. A same-day claim leaves the streak untouched but
// still counts toward totalClaims.
func AdvanceDev(p Progress, day int64) Progress {
	if day == p.LastDayClaimed && p.LastDayClaimed != NeverClaimed {
		p.TotalClaims = saturatingInc(p.TotalClaims)
		return p
	}
	return advance(p, day)
}

func advance(p Progress, day int64) Progress {
	switch {
	case p.LastDayClaimed == NeverClaimed:
		p.Streak = 1
	case day == p.LastDayClaimed+1:
		p.Streak = saturatingInc(p.Streak)
	default:
		// gap of two or more days, or a day in the past
		p.Streak = 1
	}

	p.LastDayClaimed = day
	p.TotalClaims = saturatingInc(p.TotalClaims)
	return p
}

func saturatingInc(v uint32) uint32 {
	if v == math.MaxUint32 {
		return v
	}
	return v + 1
}
