package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/skateduel/internal/dependencies/clock"
	"github.com/mcoot/skateduel/internal/dependencies/ids"
	"github.com/mcoot/skateduel/internal/events"
	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/services/letters"
	"github.com/mcoot/skateduel/internal/storage"
)

// maxConflictRetries bounds how often a match mutation is re-evaluated
// against a fresh read after losing an optimistic version check
const maxConflictRetries = 3

// RewardIssuer is invoked when a match finishes
type RewardIssuer interface {
	Issue(ctx context.Context, match *model.Match) ([]*model.RiderReward, error)
}

// Manager owns the match lifecycle
type Manager struct {
	storage   storage.Storage
	ids       ids.Generator
	clock     clock.Clock
	rewards   RewardIssuer
	publisher events.Publisher
	logger    *slog.Logger
}

// NewManager creates a new match Manager
func NewManager(
	storage storage.Storage,
	ids ids.Generator,
	clock clock.Clock,
	rewards RewardIssuer,
	publisher events.Publisher,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		storage:   storage,
		ids:       ids,
		clock:     clock,
		rewards:   rewards,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateMatch seeds a pending match between two distinct riders, creating
// their profiles on first engagement
func (m *Manager) CreateMatch(ctx context.Context, mode model.MatchMode, playerA, playerB model.RiderID) (*model.Match, error) {
	if playerA == "" || playerB == "" || playerA == playerB {
		return nil, model.ErrInvalidParticipants
	}
	if !mode.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("mode must be live or remote, got %q", mode))
	}

	now := m.clock.Now()
	for _, id := range []model.RiderID{playerA, playerB} {
		if _, err := m.storage.EnsureRider(ctx, model.NewRiderProfile(id, "", "", now)); err != nil {
			return nil, fmt.Errorf("ensure rider %s: %w", id, err)
		}
	}

	match := &model.Match{
		ID:        model.MatchID(m.ids.NewID()),
		Mode:      mode,
		PlayerA:   playerA,
		PlayerB:   playerB,
		Status:    model.MatchStatusPending,
		CreatedAt: now,
	}

	if err := m.storage.CreateMatch(ctx, match); err != nil {
		m.logger.Error("failed to save match",
			slog.String("match_id", string(match.ID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	m.logger.Info("match created",
		slog.String("match_id", string(match.ID)),
		slog.String("mode", string(mode)),
		slog.String("player_a", string(playerA)),
		slog.String("player_b", string(playerB)),
	)
	m.publish(ctx, events.TypeMatchCreated, match)

	return match, nil
}

// GetMatch retrieves a match by ID
func (m *Manager) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return m.storage.GetMatch(ctx, id)
}

// ListTurns returns the turns of a match ordered by turn_index
func (m *Manager) ListTurns(ctx context.Context, id model.MatchID) ([]*model.Turn, error) {
	if _, err := m.storage.GetMatch(ctx, id); err != nil {
		return nil, err
	}
	return m.storage.ListTurns(ctx, id)
}

// StartMatch moves a pending match to active
func (m *Manager) StartMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	match, err := m.mutate(ctx, id, func(match *model.Match, now time.Time) (bool, error) {
		if match.Status != model.MatchStatusPending {
			return false, fmt.Errorf("start %s match: %w", match.Status, model.ErrInvalidTransition)
		}
		match.Status = model.MatchStatusActive
		match.StartedAt = &now
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("match started", slog.String("match_id", string(id)))
	m.publish(ctx, events.TypeMatchStarted, match)
	return match, nil
}

// CancelMatch ends a match that has not finished. Canceling a canceled
// match returns it unchanged.
func (m *Manager) CancelMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	changed := false
	match, err := m.mutate(ctx, id, func(match *model.Match, now time.Time) (bool, error) {
		changed = false
		switch match.Status {
		case model.MatchStatusCanceled:
			return false, nil
		case model.MatchStatusFinished:
			return false, fmt.Errorf("cancel finished match: %w", model.ErrInvalidTransition)
		}
		match.Status = model.MatchStatusCanceled
		changed = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		m.logger.Info("match canceled", slog.String("match_id", string(id)))
		m.publish(ctx, events.TypeMatchCanceled, match)
	}
	return match, nil
}

// ResolveMatch finishes a match with an explicit winner. Resolving a finished
// match again with the same winner returns it unchanged and credits nothing
// new; a different winner is ErrAlreadyResolved.
func (m *Manager) ResolveMatch(ctx context.Context, id model.MatchID, winner model.RiderID) (*model.Match, error) {
	changed := false
	match, err := m.mutate(ctx, id, func(match *model.Match, now time.Time) (bool, error) {
		changed = false
		if !match.HasPlayer(winner) {
			return false, model.ErrInvalidParticipants
		}
		switch match.Status {
		case model.MatchStatusFinished:
			if match.Winner != nil && *match.Winner == winner {
				return false, nil
			}
			return false, model.ErrAlreadyResolved
		case model.MatchStatusCanceled, model.MatchStatusPending:
			return false, fmt.Errorf("resolve %s match: %w", match.Status, model.ErrInvalidTransition)
		}
		finish(match, winner, now)
		changed = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		m.logger.Info("match resolved",
			slog.String("match_id", string(id)),
			slog.String("winner", string(winner)),
		)
	}
	// Issuing is idempotent, so a repeat call also repairs a failed earlier issue
	if err := m.Finalize(ctx, match, changed); err != nil {
		return nil, err
	}
	return match, nil
}

// Finalize runs the completion hooks of a finished match: rewards, then the
// match.finished event when announce is set
func (m *Manager) Finalize(ctx context.Context, match *model.Match, announce bool) error {
	if match.Status != model.MatchStatusFinished {
		return nil
	}
	if _, err := m.rewards.Issue(ctx, match); err != nil {
		return fmt.Errorf("issue rewards for match %s: %w", match.ID, err)
	}
	if announce {
		m.publish(ctx, events.TypeMatchFinished, match)
	}
	return nil
}

// mutate applies fn to a fresh copy of the match and writes it back when fn
// reports a change, re-reading on an optimistic version conflict
func (m *Manager) mutate(ctx context.Context, id model.MatchID, fn func(match *model.Match, now time.Time) (bool, error)) (*model.Match, error) {
	for attempt := 0; ; attempt++ {
		match, err := m.storage.GetMatch(ctx, id)
		if err != nil {
			return nil, err
		}

		changed, err := fn(match, m.clock.Now())
		if err != nil || !changed {
			return match, err
		}

		err = m.storage.UpdateMatch(ctx, match)
		if errors.Is(err, model.ErrVersionConflict) && attempt < maxConflictRetries {
			m.logger.Debug("match version conflict, re-reading",
				slog.String("match_id", string(id)),
				slog.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		return match, nil
	}
}

func (m *Manager) publish(ctx context.Context, eventType string, match *model.Match) {
	err := m.publisher.Publish(ctx, events.Event{
		ID:         m.ids.NewID(),
		Type:       eventType,
		Topic:      events.TopicMatches,
		Key:        string(match.ID),
		Payload:    match,
		OccurredAt: m.clock.Now(),
	})
	if err != nil {
		m.logger.Warn("failed to publish match event",
			slog.String("match_id", string(match.ID)),
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

// ApplyMiss gives the rider who missed the next letter and, if that spells
// the whole word, finishes the match in the opponent's favour. It reports
// whether the match finished.
func ApplyMiss(match *model.Match, missed model.RiderID, now time.Time) bool {
	match.SetLettersFor(missed, letters.NextLetters(match.LettersFor(missed)))
	if !letters.IsFinished(match.LettersFor(missed)) {
		return false
	}
	finish(match, match.Opponent(missed), now)
	return true
}

func finish(match *model.Match, winner model.RiderID, now time.Time) {
	match.Status = model.MatchStatusFinished
	match.Winner = &winner
	match.FinishedAt = &now
}
