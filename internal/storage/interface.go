package storage

import (
	"context"

	"github.com/mcoot/skateduel/internal/model"
)

// TurnTransition is a compare-and-set of a turn's status together with the
// owning match. Implementations apply it atomically: the turn must still be
// in From and the match must still be at Match.Version, otherwise nothing is
// written.
type TurnTransition struct {
	// Turn holds the desired new state; Turn.ID selects the row
	Turn *model.Turn
	// From is the status the stored turn must currently have
	From model.TurnStatus
	// Match holds the desired match state; Match.Version is the expected stored version
	Match *model.Match
}

// Storage defines the interface for data persistence.
//
// Errors: lookups return the model.Err*NotFound sentinels; a lost turn
// compare-and-set returns model.ErrAlreadyResolved; a stale match version
// returns model.ErrVersionConflict.
type Storage interface {
	// Rider operations
	EnsureRider(ctx context.Context, rider *model.RiderProfile) (*model.RiderProfile, error)
	GetRider(ctx context.Context, id model.RiderID) (*model.RiderProfile, error)
	CreateCredentials(ctx context.Context, creds *model.RiderCredentials) error
	GetCredentialsByHandle(ctx context.Context, handle string) (*model.RiderCredentials, error)

	// Match operations
	CreateMatch(ctx context.Context, match *model.Match) error
	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	// UpdateMatch writes match if the stored version equals match.Version,
	// then increments match.Version
	UpdateMatch(ctx context.Context, match *model.Match) error

	// Turn operations

	// CreateTurn assigns turn.TurnIndex and inserts the turn. It fails with
	// model.ErrMatchNotActive unless the match is active and with
	// model.ErrTurnInFlight if the match already has an active turn.
	CreateTurn(ctx context.Context, turn *model.Turn) error
	GetTurn(ctx context.Context, id model.TurnID) (*model.Turn, error)
	ListTurns(ctx context.Context, matchID model.MatchID) ([]*model.Turn, error)
	// TransitionTurn applies t atomically and increments t.Match.Version
	TransitionTurn(ctx context.Context, t TurnTransition) error

	// Review operations
	CreateReview(ctx context.Context, review *model.TurnReview) error
	ListReviews(ctx context.Context, turnID model.TurnID) ([]*model.TurnReview, error)

	// Reward operations

	// AppendRewards inserts the rewards whose (user, match, kind) slot is
	// still free and applies them to the rider projections in the same
	// atomic step. It returns only the rows it inserted.
	AppendRewards(ctx context.Context, rewards []*model.RiderReward) ([]*model.RiderReward, error)
	ListRewards(ctx context.Context, riderID model.RiderID) ([]*model.RiderReward, error)

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error

	// Close releases backend resources
	Close() error
}
