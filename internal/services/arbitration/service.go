package arbitration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/skateduel/internal/dependencies/clock"
	"github.com/mcoot/skateduel/internal/dependencies/ids"
	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/services/turn"
	"github.com/mcoot/skateduel/internal/storage"
)

// DisputeResolver applies a verdict to a disputed turn
type DisputeResolver interface {
	ResolveDispute(ctx context.Context, id model.TurnID, outcome model.TurnStatus) (*turn.Result, error)
}

// Submission is the state after a review was recorded
type Submission struct {
	Review  *model.TurnReview `json:"review"`
	Verdict Verdict           `json:"verdict"`
	Turn    *model.Turn       `json:"turn"`
	Match   *model.Match      `json:"match"`
}

// Service records jury reviews and applies the adjudication policy
type Service struct {
	storage  storage.Storage
	ids      ids.Generator
	clock    clock.Clock
	disputes DisputeResolver
	policy   Policy
	logger   *slog.Logger
}

// NewService creates a new arbitration Service
func NewService(
	storage storage.Storage,
	ids ids.Generator,
	clock clock.Clock,
	disputes DisputeResolver,
	policy Policy,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:  storage,
		ids:      ids,
		clock:    clock,
		disputes: disputes,
		policy:   policy,
		logger:   logger,
	}
}

// SubmitReview records one juror's decision on a disputed turn and resolves
// the dispute once the policy reaches a verdict. Participants of the match
// may not review it.
func (s *Service) SubmitReview(ctx context.Context, turnID model.TurnID, reviewer model.RiderID, decision model.ReviewDecision, reason string) (*Submission, error) {
	if !decision.Valid() {
		return nil, model.NewValidationError("decision must be valid or invalid")
	}
	if reviewer == "" {
		return nil, model.ErrAuthenticationRequired
	}

	t, err := s.storage.GetTurn(ctx, turnID)
	if err != nil {
		return nil, err
	}
	m, err := s.storage.GetMatch(ctx, t.MatchID)
	if err != nil {
		return nil, err
	}
	if m.HasPlayer(reviewer) {
		return nil, model.ErrNotParticipant
	}
	if t.Status != model.TurnStatusDisputed {
		return nil, fmt.Errorf("review %s turn: %w", t.Status, model.ErrInvalidTransition)
	}

	review := &model.TurnReview{
		ID:        model.ReviewID(s.ids.NewID()),
		TurnID:    turnID,
		Reviewer:  reviewer,
		Decision:  decision,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: s.clock.Now(),
	}
	if err := s.storage.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	s.logger.Info("review submitted",
		slog.String("turn_id", string(turnID)),
		slog.String("reviewer", string(reviewer)),
		slog.String("decision", string(decision)),
	)

	reviews, err := s.storage.ListReviews(ctx, turnID)
	if err != nil {
		return nil, err
	}

	verdict := s.policy.Adjudicate(reviews)
	sub := &Submission{Review: review, Verdict: verdict, Turn: t, Match: m}

	outcome, decisive := verdict.Outcome()
	if !decisive {
		return sub, nil
	}

	res, err := s.disputes.ResolveDispute(ctx, turnID, outcome)
	switch {
	case errors.Is(err, model.ErrAlreadyResolved):
		// A concurrent review closed the dispute first
		if sub.Turn, err = s.storage.GetTurn(ctx, turnID); err != nil {
			return nil, err
		}
		if sub.Match, err = s.storage.GetMatch(ctx, t.MatchID); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		sub.Turn, sub.Match = res.Turn, res.Match
		s.logger.Info("dispute resolved",
			slog.String("turn_id", string(turnID)),
			slog.String("verdict", string(verdict)),
			slog.Int("reviews", len(reviews)),
		)
	}

	return sub, nil
}

// ListReviews returns the reviews of a turn in submission order
func (s *Service) ListReviews(ctx context.Context, turnID model.TurnID) ([]*model.TurnReview, error) {
	if _, err := s.storage.GetTurn(ctx, turnID); err != nil {
		return nil, err
	}
	return s.storage.ListReviews(ctx, turnID)
}
