package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/skateduel/internal/dependencies/clock"
	"github.com/mcoot/skateduel/internal/dependencies/ids"
	"github.com/mcoot/skateduel/internal/events"
	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/services/deadline"
	"github.com/mcoot/skateduel/internal/services/match"
	"github.com/mcoot/skateduel/internal/storage"
)

// maxConflictRetries bounds re-evaluation after the match changed between
// read and write
const maxConflictRetries = 3

// Difficulty bounds
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// ProposeParams describes a new trick
type ProposeParams struct {
	MatchID    model.MatchID
	Proposer   model.RiderID
	TrickName  string
	Difficulty *int
	VideoURL   string
}

// Result is the committed state of a turn and its match after a transition
type Result struct {
	Turn  *model.Turn
	Match *model.Match
}

// Controller drives the turn state machine
type Controller struct {
	storage   storage.Storage
	ids       ids.Generator
	clock     clock.Clock
	deadlines *deadline.Resolver
	matches   *match.Manager
	proposers match.ProposerPolicy
	publisher events.Publisher
	logger    *slog.Logger
}

// NewController creates a new turn Controller
func NewController(
	storage storage.Storage,
	ids ids.Generator,
	clock clock.Clock,
	deadlines *deadline.Resolver,
	matches *match.Manager,
	proposers match.ProposerPolicy,
	publisher events.Publisher,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:   storage,
		ids:       ids,
		clock:     clock,
		deadlines: deadlines,
		matches:   matches,
		proposers: proposers,
		publisher: publisher,
		logger:    logger,
	}
}

// GetTurn retrieves a turn by ID
func (c *Controller) GetTurn(ctx context.Context, id model.TurnID) (*model.Turn, error) {
	return c.storage.GetTurn(ctx, id)
}

// CreateTurn proposes a trick in an active match with no turn in flight.
// Remote matches get a response deadline; live matches do not.
func (c *Controller) CreateTurn(ctx context.Context, p ProposeParams) (*model.Turn, error) {
	trick := strings.TrimSpace(p.TrickName)
	if trick == "" {
		return nil, model.NewValidationError("trick_name required")
	}
	if p.Difficulty != nil && (*p.Difficulty < MinDifficulty || *p.Difficulty > MaxDifficulty) {
		return nil, model.NewValidationError(fmt.Sprintf("difficulty must be between %d and %d", MinDifficulty, MaxDifficulty))
	}
	if strings.TrimSpace(p.VideoURL) == "" {
		return nil, model.NewValidationError("video_url required")
	}

	m, err := c.storage.GetMatch(ctx, p.MatchID)
	if err != nil {
		return nil, err
	}
	if m.Status != model.MatchStatusActive {
		return nil, model.ErrMatchNotActive
	}

	turns, err := c.storage.ListTurns(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	var previous *model.Turn
	if len(turns) > 0 {
		previous = turns[len(turns)-1]
	}
	if err := c.proposers.CheckProposer(m, previous, p.Proposer); err != nil {
		return nil, err
	}

	now := c.clock.Now()
	t := &model.Turn{
		ID:             model.TurnID(c.ids.NewID()),
		MatchID:        m.ID,
		Proposer:       p.Proposer,
		TrickName:      trick,
		Difficulty:     p.Difficulty,
		VideoAURL:      p.VideoURL,
		Status:         model.TurnStatusProposed,
		RemoteDeadline: c.deadlines.DeadlineFor(m.Mode, now),
		CreatedAt:      now,
	}

	if err := c.storage.CreateTurn(ctx, t); err != nil {
		return nil, err
	}

	c.logger.Info("turn proposed",
		slog.String("match_id", string(m.ID)),
		slog.String("turn_id", string(t.ID)),
		slog.Int("turn_index", t.TurnIndex),
		slog.String("proposer", string(p.Proposer)),
		slog.String("trick", trick),
	)

	return t, nil
}

// RespondTurn records the respondent's attempt. The deadline decides
// between responded and timeout; a timeout gives the respondent a letter in
// the same atomic write. A turn leaves proposed exactly once, so a repeated
// response fails with model.ErrAlreadyResolved.
func (c *Controller) RespondTurn(ctx context.Context, id model.TurnID, responder model.RiderID, videoURL string) (*Result, error) {
	if strings.TrimSpace(videoURL) == "" {
		return nil, model.NewValidationError("video_url required")
	}

	return c.apply(ctx, id, model.TurnStatusProposed, func(t *model.Turn, m *model.Match, _ time.Time) (bool, error) {
		if responder != m.Opponent(t.Proposer) {
			return false, model.ErrNotParticipant
		}

		status, at := c.deadlines.Resolve(m, t)
		t.Status = status
		t.VideoBURL = &videoURL
		t.RespondedAt = &at

		if status == model.TurnStatusTimeout {
			return match.ApplyMiss(m, responder, at), nil
		}
		return false, nil
	})
}

// JudgeTurn lets the proposer accept or reject a responded attempt.
// A rejection gives the respondent a letter. Only live matches, where the
// attempt happens in front of both riders, accept a rejection; on a remote
// match the proposer can only validate and a contested attempt goes through
// DisputeTurn.
func (c *Controller) JudgeTurn(ctx context.Context, id model.TurnID, judge model.RiderID, outcome model.TurnStatus) (*Result, error) {
	if err := checkOutcome(outcome); err != nil {
		return nil, err
	}

	return c.apply(ctx, id, model.TurnStatusResponded, func(t *model.Turn, m *model.Match, now time.Time) (bool, error) {
		if judge != t.Proposer {
			return false, model.ErrNotParticipant
		}
		if outcome == model.TurnStatusFailed && m.Mode != model.MatchModeLive {
			return false, model.NewValidationError("remote attempts can only be failed through a dispute")
		}
		t.Status = outcome
		if outcome == model.TurnStatusFailed {
			return match.ApplyMiss(m, m.Opponent(t.Proposer), now), nil
		}
		return false, nil
	})
}

// DisputeTurn sends a responded attempt to the jury and puts the match
// under review
func (c *Controller) DisputeTurn(ctx context.Context, id model.TurnID, rider model.RiderID) (*Result, error) {
	return c.apply(ctx, id, model.TurnStatusResponded, func(t *model.Turn, m *model.Match, now time.Time) (bool, error) {
		if !m.HasPlayer(rider) {
			return false, model.ErrNotParticipant
		}
		t.Status = model.TurnStatusDisputed
		m.Status = model.MatchStatusReview
		return false, nil
	})
}

// ResolveDispute applies the jury's verdict to a disputed turn and returns
// the match to play, or finishes it if the failed attempt spelled the word
func (c *Controller) ResolveDispute(ctx context.Context, id model.TurnID, outcome model.TurnStatus) (*Result, error) {
	if err := checkOutcome(outcome); err != nil {
		return nil, err
	}

	return c.apply(ctx, id, model.TurnStatusDisputed, func(t *model.Turn, m *model.Match, now time.Time) (bool, error) {
		t.Status = outcome
		m.Status = model.MatchStatusActive
		if outcome == model.TurnStatusFailed {
			return match.ApplyMiss(m, m.Opponent(t.Proposer), now), nil
		}
		return false, nil
	})
}

func checkOutcome(outcome model.TurnStatus) error {
	if outcome != model.TurnStatusValidated && outcome != model.TurnStatusFailed {
		return model.NewValidationError("outcome must be validated or failed")
	}
	return nil
}

// requiredMatchStatus is the match status a transition out of from needs
func requiredMatchStatus(from model.TurnStatus) model.MatchStatus {
	if from == model.TurnStatusDisputed {
		return model.MatchStatusReview
	}
	return model.MatchStatusActive
}

// step mutates copies of a turn and its match; it reports whether the
// match finished
type step func(t *model.Turn, m *model.Match, now time.Time) (bool, error)

// apply runs a compare-and-set transition of turn id out of from. The turn
// status is checked before the match status so a repeated call on a turn
// that already moved on reports model.ErrAlreadyResolved.
func (c *Controller) apply(ctx context.Context, id model.TurnID, from model.TurnStatus, fn step) (*Result, error) {
	for attempt := 0; ; attempt++ {
		t, err := c.storage.GetTurn(ctx, id)
		if err != nil {
			return nil, err
		}
		m, err := c.storage.GetMatch(ctx, t.MatchID)
		if err != nil {
			return nil, err
		}

		if t.Status != from {
			if model.Reached(from, t.Status) {
				return nil, model.ErrAlreadyResolved
			}
			return nil, fmt.Errorf("turn is %s, not %s: %w", t.Status, from, model.ErrInvalidTransition)
		}
		if m.Status != requiredMatchStatus(from) {
			return nil, model.ErrMatchNotActive
		}

		nextTurn := t.Clone()
		nextMatch := m.Clone()
		finished, err := fn(nextTurn, nextMatch, c.clock.Now())
		if err != nil {
			return nil, err
		}
		if !model.CanTransition(from, nextTurn.Status) {
			return nil, fmt.Errorf("turn %s -> %s: %w", from, nextTurn.Status, model.ErrInvalidTransition)
		}

		err = c.storage.TransitionTurn(ctx, storage.TurnTransition{Turn: nextTurn, From: from, Match: nextMatch})
		if errors.Is(err, model.ErrVersionConflict) && attempt < maxConflictRetries {
			c.logger.Debug("match changed during turn transition, re-reading",
				slog.String("turn_id", string(id)),
				slog.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		c.logger.Info("turn transitioned",
			slog.String("match_id", string(nextMatch.ID)),
			slog.String("turn_id", string(id)),
			slog.String("from", string(from)),
			slog.String("to", string(nextTurn.Status)),
			slog.String("letters_a", nextMatch.LettersA),
			slog.String("letters_b", nextMatch.LettersB),
		)
		c.publishChanged(ctx, nextTurn)

		if finished {
			c.logger.Info("match finished",
				slog.String("match_id", string(nextMatch.ID)),
				slog.String("winner", string(*nextMatch.Winner)),
			)
			// The turn is committed; a reward failure is repaired by ResolveMatch with the same winner
			if err := c.matches.Finalize(ctx, nextMatch, true); err != nil {
				c.logger.Error("failed to finalize match",
					slog.String("match_id", string(nextMatch.ID)),
					slog.String("error", err.Error()),
				)
			}
		}

		return &Result{Turn: nextTurn, Match: nextMatch}, nil
	}
}

func (c *Controller) publishChanged(ctx context.Context, t *model.Turn) {
	err := c.publisher.Publish(ctx, events.Event{
		ID:         c.ids.NewID(),
		Type:       events.TypeTurnChanged,
		Topic:      events.TopicMatches,
		Key:        string(t.MatchID),
		Payload:    t,
		OccurredAt: c.clock.Now(),
	})
	if err != nil {
		c.logger.Warn("failed to publish turn event",
			slog.String("turn_id", string(t.ID)),
			slog.String("error", err.Error()),
		)
	}
}
