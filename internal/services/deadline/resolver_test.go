package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/skateduel/internal/dependencies/mocks"
	"github.com/mcoot/skateduel/internal/model"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func remoteTurn(deadline time.Time) (*model.Match, *model.Turn) {
	match := &model.Match{ID: "m1", Mode: model.MatchModeRemote, PlayerA: "alice", PlayerB: "bob"}
	turn := &model.Turn{ID: "t1", MatchID: "m1", Status: model.TurnStatusProposed, RemoteDeadline: &deadline}
	return match, turn
}

func TestDecide(t *testing.T) {
	deadline := base.Add(DefaultWindow)

	tests := []struct {
		name string
		now  time.Time
		want model.TurnStatus
	}{
		{"one second early", deadline.Add(-time.Second), model.TurnStatusResponded},
		{"exactly at deadline", deadline, model.TurnStatusResponded},
		{"one second late", deadline.Add(time.Second), model.TurnStatusTimeout},
		{"a week late", deadline.Add(7 * 24 * time.Hour), model.TurnStatusTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, turn := remoteTurn(deadline)
			assert.Equal(t, tt.want, Decide(match, turn, tt.now))
		})
	}
}

func TestDecideLiveIgnoresDeadline(t *testing.T) {
	match, turn := remoteTurn(base)
	match.Mode = model.MatchModeLive
	assert.Equal(t, model.TurnStatusResponded, Decide(match, turn, base.Add(time.Hour)))
}

func TestDecideRemoteWithoutDeadline(t *testing.T) {
	match, turn := remoteTurn(base)
	turn.RemoteDeadline = nil
	assert.Equal(t, model.TurnStatusResponded, Decide(match, turn, base.Add(100*time.Hour)))
}

func TestResolverDeadlineFor(t *testing.T) {
	r := NewResolver(mocks.NewMockClock(base), 0)
	assert.Nil(t, r.DeadlineFor(model.MatchModeLive, base))

	d := r.DeadlineFor(model.MatchModeRemote, base)
	require.NotNil(t, d)
	assert.Equal(t, base.Add(DefaultWindow), *d)

	short := NewResolver(mocks.NewMockClock(base), time.Hour)
	assert.Equal(t, base.Add(time.Hour), *short.DeadlineFor(model.MatchModeRemote, base))
}

func TestResolverUsesClock(t *testing.T) {
	clk := mocks.NewMockClock(base)
	r := NewResolver(clk, time.Hour)
	match, turn := remoteTurn(*r.DeadlineFor(model.MatchModeRemote, base))

	status, at := r.Resolve(match, turn)
	assert.Equal(t, model.TurnStatusResponded, status)
	assert.Equal(t, base, at)

	clk.Advance(time.Hour + time.Second)
	status, _ = r.Resolve(match, turn)
	assert.Equal(t, model.TurnStatusTimeout, status)
}
