package model

import "time"

// TurnID uniquely identifies a turn
type TurnID string

// TurnStatus represents the lifecycle phase of a turn
type TurnStatus string

const (
	TurnStatusProposed  TurnStatus = "proposed"  // Trick set, waiting for the respondent
	TurnStatusResponded TurnStatus = "responded" // Attempt submitted on time
	TurnStatusValidated TurnStatus = "validated" // Attempt matched the trick
	TurnStatusFailed    TurnStatus = "failed"    // Attempt did not match
	TurnStatusTimeout   TurnStatus = "timeout"   // Attempt submitted after the deadline
	TurnStatusDisputed  TurnStatus = "disputed"  // Awaiting the jury
)

// turnTransitions lists the statuses reachable from each status
var turnTransitions = map[TurnStatus][]TurnStatus{
	TurnStatusProposed:  {TurnStatusResponded, TurnStatusTimeout},
	TurnStatusResponded: {TurnStatusValidated, TurnStatusFailed, TurnStatusDisputed},
	TurnStatusDisputed:  {TurnStatusValidated, TurnStatusFailed},
}

// IsActive returns true for statuses that block a new turn in the same match
func (s TurnStatus) IsActive() bool {
	return s == TurnStatusProposed || s == TurnStatusResponded
}

// IsTerminal returns true once the turn is immutable
func (s TurnStatus) IsTerminal() bool {
	return s == TurnStatusValidated || s == TurnStatusFailed || s == TurnStatusTimeout
}

// IsMiss returns true if the respondent accrues a letter on reaching this status
func (s TurnStatus) IsMiss() bool {
	return s == TurnStatusFailed || s == TurnStatusTimeout
}

// CanTransition reports whether from -> to is a legal turn transition
func CanTransition(from, to TurnStatus) bool {
	for _, s := range turnTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Reached reports whether a turn now in current has already moved on from
// from, i.e. current is reachable from from by one or more transitions
func Reached(from, current TurnStatus) bool {
	seen := map[TurnStatus]bool{}
	queue := append([]TurnStatus(nil), turnTransitions[from]...)
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if s == current {
			return true
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		queue = append(queue, turnTransitions[s]...)
	}
	return false
}

// Turn is one trick-propose/respond cycle within a match
type Turn struct {
	ID             TurnID     `json:"id"`
	MatchID        MatchID    `json:"match_id"`
	TurnIndex      int        `json:"turn_index"`
	Proposer       RiderID    `json:"proposer"`
	TrickName      string     `json:"trick_name"`
	Difficulty     *int       `json:"difficulty"`
	VideoAURL      string     `json:"video_a_url"`
	VideoBURL      *string    `json:"video_b_url"`
	Status         TurnStatus `json:"status"`
	RemoteDeadline *time.Time `json:"remote_deadline"`
	CreatedAt      time.Time  `json:"created_at"`
	RespondedAt    *time.Time `json:"responded_at"`
}

// Clone returns a deep copy safe to mutate
func (t *Turn) Clone() *Turn {
	c := *t
	if t.Difficulty != nil {
		d := *t.Difficulty
		c.Difficulty = &d
	}
	if t.VideoBURL != nil {
		v := *t.VideoBURL
		c.VideoBURL = &v
	}
	if t.RemoteDeadline != nil {
		d := *t.RemoteDeadline
		c.RemoteDeadline = &d
	}
	if t.RespondedAt != nil {
		r := *t.RespondedAt
		c.RespondedAt = &r
	}
	return &c
}
