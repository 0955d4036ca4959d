package arbitration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/skateduel/internal/dependencies/mocks"
	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/services/deadline"
	"github.com/mcoot/skateduel/internal/services/match"
	"github.com/mcoot/skateduel/internal/services/reward"
	"github.com/mcoot/skateduel/internal/services/turn"
	"github.com/mcoot/skateduel/internal/storage/memory"
	"github.com/mcoot/skateduel/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	ids     *mocks.MockIDs
	manager *match.Manager
	turns   *turn.Controller
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.ids = mocks.NewMockIDs()
	publisher := mocks.NewMockPublisher()
	logger := testutil.NopLogger()

	issuer := reward.NewIssuer(s.storage, s.ids, s.clock, publisher, reward.DefaultPolicy(), logger)
	s.manager = match.NewManager(s.storage, s.ids, s.clock, issuer, publisher, logger)
	s.turns = turn.NewController(s.storage, s.ids, s.clock, deadline.NewResolver(s.clock, 0),
		s.manager, match.AnyParticipant{}, publisher, logger)
	s.service = NewService(s.storage, s.ids, s.clock, s.turns, Majority{Quorum: DefaultQuorum}, logger)
	s.ctx = context.Background()
}

// disputedTurn plays alice proposing to bob, bob responding and alice contesting
func (s *ServiceSuite) disputedTurn() *model.Turn {
	m, err := s.manager.CreateMatch(s.ctx, model.MatchModeLive, "alice", "bob")
	s.Require().NoError(err)
	_, err = s.manager.StartMatch(s.ctx, m.ID)
	s.Require().NoError(err)

	t, err := s.turns.CreateTurn(s.ctx, turn.ProposeParams{
		MatchID: m.ID, Proposer: "alice", TrickName: "360 flip", VideoURL: "https://videos.example/a.mp4",
	})
	s.Require().NoError(err)
	_, err = s.turns.RespondTurn(s.ctx, t.ID, "bob", "https://videos.example/b.mp4")
	s.Require().NoError(err)
	res, err := s.turns.DisputeTurn(s.ctx, t.ID, "alice")
	s.Require().NoError(err)
	return res.Turn
}

func (s *ServiceSuite) TestReviewsBelowQuorumKeepDispute() {
	t := s.disputedTurn()

	sub, err := s.service.SubmitReview(s.ctx, t.ID, "carol", model.DecisionInvalid, " sketchy landing ")
	s.Require().NoError(err)
	s.Equal(VerdictPending, sub.Verdict)
	s.Equal(model.TurnStatusDisputed, sub.Turn.Status)
	s.Equal(model.MatchStatusReview, sub.Match.Status)
	s.Equal("sketchy landing", sub.Review.Reason)
}

func (s *ServiceSuite) TestQuorumFailsTheAttempt() {
	t := s.disputedTurn()

	for _, juror := range []model.RiderID{"carol", "dave"} {
		_, err := s.service.SubmitReview(s.ctx, t.ID, juror, model.DecisionInvalid, "")
		s.Require().NoError(err)
	}
	sub, err := s.service.SubmitReview(s.ctx, t.ID, "erin", model.DecisionValid, "")
	s.Require().NoError(err)

	s.Equal(VerdictFailed, sub.Verdict)
	s.Equal(model.TurnStatusFailed, sub.Turn.Status)
	s.Equal(model.MatchStatusActive, sub.Match.Status)
	s.Equal("S", sub.Match.LettersB)

	stored, _ := s.storage.GetTurn(s.ctx, t.ID)
	s.Equal(model.TurnStatusFailed, stored.Status)
}

func (s *ServiceSuite) TestQuorumValidatesTheAttempt() {
	t := s.disputedTurn()

	var sub *Submission
	var err error
	for _, juror := range []model.RiderID{"carol", "dave", "erin"} {
		sub, err = s.service.SubmitReview(s.ctx, t.ID, juror, model.DecisionValid, "")
		s.Require().NoError(err)
	}

	s.Equal(VerdictValidated, sub.Verdict)
	s.Equal(model.TurnStatusValidated, sub.Turn.Status)
	s.Equal("", sub.Match.LettersB)
}

func (s *ServiceSuite) TestReviewAfterVerdict() {
	t := s.disputedTurn()
	for _, juror := range []model.RiderID{"carol", "dave", "erin"} {
		_, err := s.service.SubmitReview(s.ctx, t.ID, juror, model.DecisionValid, "")
		s.Require().NoError(err)
	}

	_, err := s.service.SubmitReview(s.ctx, t.ID, "frank", model.DecisionInvalid, "")
	s.ErrorIs(err, model.ErrInvalidTransition)
}

func (s *ServiceSuite) TestParticipantsMayNotReview() {
	t := s.disputedTurn()

	_, err := s.service.SubmitReview(s.ctx, t.ID, "alice", model.DecisionValid, "")
	s.ErrorIs(err, model.ErrNotParticipant)
	_, err = s.service.SubmitReview(s.ctx, t.ID, "bob", model.DecisionValid, "")
	s.ErrorIs(err, model.ErrNotParticipant)
}

func (s *ServiceSuite) TestOneReviewPerReviewer() {
	t := s.disputedTurn()

	_, err := s.service.SubmitReview(s.ctx, t.ID, "carol", model.DecisionValid, "")
	s.Require().NoError(err)
	_, err = s.service.SubmitReview(s.ctx, t.ID, "carol", model.DecisionInvalid, "")
	s.ErrorIs(err, model.ErrAlreadyReviewed)

	reviews, err := s.service.ListReviews(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Len(reviews, 1)
}

func (s *ServiceSuite) TestReviewUndisputedTurn() {
	m, err := s.manager.CreateMatch(s.ctx, model.MatchModeLive, "alice", "bob")
	s.Require().NoError(err)
	_, err = s.manager.StartMatch(s.ctx, m.ID)
	s.Require().NoError(err)
	t, err := s.turns.CreateTurn(s.ctx, turn.ProposeParams{
		MatchID: m.ID, Proposer: "alice", TrickName: "ollie", VideoURL: "https://videos.example/a.mp4",
	})
	s.Require().NoError(err)

	_, err = s.service.SubmitReview(s.ctx, t.ID, "carol", model.DecisionValid, "")
	s.ErrorIs(err, model.ErrInvalidTransition)
}

func (s *ServiceSuite) TestInvalidDecision() {
	t := s.disputedTurn()
	_, err := s.service.SubmitReview(s.ctx, t.ID, "carol", "maybe", "")
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ServiceSuite) TestUnknownTurn() {
	_, err := s.service.SubmitReview(s.ctx, "missing", "carol", model.DecisionValid, "")
	s.ErrorIs(err, model.ErrTurnNotFound)

	_, err = s.service.ListReviews(s.ctx, "missing")
	s.ErrorIs(err, model.ErrTurnNotFound)
}

func (s *ServiceSuite) TestSingleReviewerPolicy() {
	service := NewService(s.storage, s.ids, s.clock, s.turns, SingleReviewer{}, testutil.NopLogger())
	t := s.disputedTurn()

	sub, err := service.SubmitReview(s.ctx, t.ID, "carol", model.DecisionValid, "clean")
	s.Require().NoError(err)
	s.Equal(VerdictValidated, sub.Verdict)
	s.Equal(model.TurnStatusValidated, sub.Turn.Status)
	s.Equal(model.MatchStatusActive, sub.Match.Status)
}
