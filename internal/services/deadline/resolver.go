// Package deadline decides whether a response to a remote turn arrived in
// time. The deadline is a data value compared at response time; nothing
// runs in the background and an unanswered turn stays proposed.
package deadline

import (
	"time"

	"github.com/mcoot/skateduel/internal/dependencies/clock"
	"github.com/mcoot/skateduel/internal/model"
)

// DefaultWindow is how long a remote respondent has to answer
const DefaultWindow = 24 * time.Hour

// Decide returns the status a response submitted at now moves the turn to.
// Live matches and turns without a deadline are always on time; a response
// exactly at the deadline is on time.
func Decide(match *model.Match, turn *model.Turn, now time.Time) model.TurnStatus {
	if match.Mode != model.MatchModeRemote || turn.RemoteDeadline == nil {
		return model.TurnStatusResponded
	}
	if now.After(*turn.RemoteDeadline) {
		return model.TurnStatusTimeout
	}
	return model.TurnStatusResponded
}

// Resolver applies Decide against a clock and issues deadlines for new turns
type Resolver struct {
	clock  clock.Clock
	window time.Duration
}

// NewResolver creates a Resolver; a non-positive window uses DefaultWindow
func NewResolver(clock clock.Clock, window time.Duration) *Resolver {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Resolver{clock: clock, window: window}
}

// DeadlineFor returns the deadline of a turn created at createdAt, or nil
// for live matches
func (r *Resolver) DeadlineFor(mode model.MatchMode, createdAt time.Time) *time.Time {
	if mode != model.MatchModeRemote {
		return nil
	}
	d := createdAt.Add(r.window)
	return &d
}

// Resolve decides a response arriving now and returns the instant it was
// decided at
func (r *Resolver) Resolve(match *model.Match, turn *model.Turn) (model.TurnStatus, time.Time) {
	now := r.clock.Now()
	return Decide(match, turn, now), now
}
