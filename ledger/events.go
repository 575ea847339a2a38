package ledger

import "github.com/qZheng/CavityProof/pkg/utilities"

// ClaimAcceptedEvent feeds the activity queue consumed by the dashboard
// backend. Published best-effort after a committed claim.
type ClaimAcceptedEvent struct {
	User        string `json:"user"`
	Day         int64  `json:"day"`
	Streak      uint32 `json:"streak"`
	TotalClaims uint32 `json:"total_claims"`
	AcceptedAt  string `json:"accepted_at"`
}

func (e ClaimAcceptedEvent) Serialize() ([]byte, error) {
	return utilities.Serialize(e)
}

// StreakLapsedEvent is emitted by the streak watcher for users whose
// streak just became unrecoverable.
type StreakLapsedEvent struct {
	User           string `json:"user"`
	Streak         uint32 `json:"streak"`
	LastDayClaimed int64  `json:"last_day_claimed"`
	CurrentDay     int64  `json:"current_day"`
}

func (e StreakLapsedEvent) Serialize() ([]byte, error) {
	return utilities.Serialize(e)
}
