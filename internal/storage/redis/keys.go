package redis

import (
	"fmt"

	"github.com/mcoot/skateduel/internal/model"
)

// Key prefix for all duel data
const keyPrefix = "skate"

// riderKey returns the Redis key for a RiderProfile
func riderKey(id model.RiderID) string {
	return fmt.Sprintf("%s:rider:%s", keyPrefix, id)
}

// credentialsKey returns the Redis key for the credentials owning a handle
func credentialsKey(handle string) string {
	return fmt.Sprintf("%s:credentials:%s", keyPrefix, handle)
}

// matchKey returns the Redis key for a Match
func matchKey(id model.MatchID) string {
	return fmt.Sprintf("%s:match:%s", keyPrefix, id)
}

// turnKey returns the Redis key for a Turn
func turnKey(id model.TurnID) string {
	return fmt.Sprintf("%s:turn:%s", keyPrefix, id)
}

// matchTurnsIndexKey returns the Redis key for the ordered LIST of turn ids in a match
func matchTurnsIndexKey(matchID model.MatchID) string {
	return fmt.Sprintf("%s:idx:match_turns:%s", keyPrefix, matchID)
}

// reviewsKey returns the Redis key for the LIST of reviews on a turn
func reviewsKey(turnID model.TurnID) string {
	return fmt.Sprintf("%s:reviews:%s", keyPrefix, turnID)
}

// reviewersIndexKey returns the Redis key for the SET of riders who reviewed a turn
func reviewersIndexKey(turnID model.TurnID) string {
	return fmt.Sprintf("%s:idx:reviewers:%s", keyPrefix, turnID)
}

// rewardsKey returns the Redis key for a rider's ledger LIST
func rewardsKey(riderID model.RiderID) string {
	return fmt.Sprintf("%s:rewards:%s", keyPrefix, riderID)
}

// rewardSlotKey returns the Redis key marking a (rider, match, kind) reward as issued
func rewardSlotKey(k model.LedgerKey) string {
	return fmt.Sprintf("%s:idx:reward_slot:%s:%s:%s", keyPrefix, k.UserID, k.MatchID, k.Kind)
}
