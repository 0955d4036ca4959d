package model

import "time"

// RewardID uniquely identifies a ledger entry
type RewardID string

// RewardKind selects which balance a ledger entry moves
type RewardKind string

const (
	RewardXP   RewardKind = "xp"
	RewardElo  RewardKind = "elo"
	RewardCoin RewardKind = "coin"
)

// RiderReward is an append-only ledger entry
type RiderReward struct {
	ID        RewardID   `json:"id"`
	UserID    RiderID    `json:"user_id"`
	MatchID   *MatchID   `json:"match_id"`
	Kind      RewardKind `json:"kind"`
	Delta     int64      `json:"delta"`
	Reason    string     `json:"reason"`
	CreatedAt time.Time  `json:"created_at"`
}

// LedgerKey identifies the idempotency slot of a match reward
type LedgerKey struct {
	UserID  RiderID
	MatchID MatchID
	Kind    RewardKind
}

// Key returns the idempotency key, or false for rewards outside a match
func (r *RiderReward) Key() (LedgerKey, bool) {
	if r.MatchID == nil {
		return LedgerKey{}, false
	}
	return LedgerKey{UserID: r.UserID, MatchID: *r.MatchID, Kind: r.Kind}, true
}

// Balance is a fold over a rider's ledger
type Balance struct {
	RiderID RiderID `json:"rider_id"`
	XP      int64   `json:"xp"`
	Elo     int64   `json:"elo"`
	Coins   int64   `json:"coins"`
}
