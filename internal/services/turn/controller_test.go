package turn

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/skateduel/internal/dependencies/mocks"
	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/services/deadline"
	"github.com/mcoot/skateduel/internal/services/match"
	"github.com/mcoot/skateduel/internal/services/reward"
	"github.com/mcoot/skateduel/internal/storage/memory"
	"github.com/mcoot/skateduel/internal/testutil"
)

const videoA = "https://videos.example/a.mp4"
const videoB = "https://videos.example/b.mp4"

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	ids        *mocks.MockIDs
	manager    *match.Manager
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.ids = mocks.NewMockIDs()
	ids := s.ids
	publisher := mocks.NewMockPublisher()
	logger := testutil.NopLogger()

	issuer := reward.NewIssuer(s.storage, ids, s.clock, publisher, reward.DefaultPolicy(), logger)
	s.manager = match.NewManager(s.storage, ids, s.clock, issuer, publisher, logger)
	resolver := deadline.NewResolver(s.clock, deadline.DefaultWindow)
	s.controller = NewController(s.storage, ids, s.clock, resolver, s.manager, match.AnyParticipant{}, publisher, logger)
	s.ctx = context.Background()
}

func (s *ControllerSuite) activeMatch(mode model.MatchMode) *model.Match {
	m, err := s.manager.CreateMatch(s.ctx, mode, "alice", "bob")
	s.Require().NoError(err)
	m, err = s.manager.StartMatch(s.ctx, m.ID)
	s.Require().NoError(err)
	return m
}

func (s *ControllerSuite) propose(matchID model.MatchID, proposer model.RiderID) *model.Turn {
	t, err := s.controller.CreateTurn(s.ctx, ProposeParams{
		MatchID:   matchID,
		Proposer:  proposer,
		TrickName: "kickflip",
		VideoURL:  videoA,
	})
	s.Require().NoError(err)
	return t
}

// CreateTurn tests

func (s *ControllerSuite) TestCreateTurnRemoteSetsDeadline() {
	m := s.activeMatch(model.MatchModeRemote)
	difficulty := 3

	t, err := s.controller.CreateTurn(s.ctx, ProposeParams{
		MatchID:    m.ID,
		Proposer:   "alice",
		TrickName:  "  tre flip ",
		Difficulty: &difficulty,
		VideoURL:   videoA,
	})
	s.Require().NoError(err)

	s.Equal(0, t.TurnIndex)
	s.Equal(model.TurnStatusProposed, t.Status)
	s.Equal("tre flip", t.TrickName)
	s.Nil(t.VideoBURL)
	s.Require().NotNil(t.RemoteDeadline)
	s.Equal(s.clock.Now().Add(24*time.Hour), *t.RemoteDeadline)
}

func (s *ControllerSuite) TestCreateTurnLiveHasNoDeadline() {
	m := s.activeMatch(model.MatchModeLive)
	t := s.propose(m.ID, "bob")
	s.Nil(t.RemoteDeadline)
}

func (s *ControllerSuite) TestCreateTurnWhileTurnInFlight() {
	m := s.activeMatch(model.MatchModeRemote)
	s.propose(m.ID, "alice")

	_, err := s.controller.CreateTurn(s.ctx, ProposeParams{
		MatchID: m.ID, Proposer: "bob", TrickName: "heelflip", VideoURL: videoA,
	})
	s.ErrorIs(err, model.ErrTurnInFlight)
}

func (s *ControllerSuite) TestCreateTurnIndicesIncrease() {
	m := s.activeMatch(model.MatchModeLive)

	for i := 0; i < 3; i++ {
		t := s.propose(m.ID, "alice")
		s.Equal(i, t.TurnIndex)
		_, err := s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
		s.Require().NoError(err)
		_, err = s.controller.JudgeTurn(s.ctx, t.ID, "alice", model.TurnStatusValidated)
		s.Require().NoError(err)
	}

	turns, err := s.manager.ListTurns(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Len(turns, 3)
}

func (s *ControllerSuite) TestCreateTurnValidation() {
	m := s.activeMatch(model.MatchModeLive)
	zero, six := 0, 6

	tests := []struct {
		name   string
		params ProposeParams
	}{
		{"empty trick", ProposeParams{MatchID: m.ID, Proposer: "alice", TrickName: " ", VideoURL: videoA}},
		{"difficulty too low", ProposeParams{MatchID: m.ID, Proposer: "alice", TrickName: "ollie", Difficulty: &zero, VideoURL: videoA}},
		{"difficulty too high", ProposeParams{MatchID: m.ID, Proposer: "alice", TrickName: "ollie", Difficulty: &six, VideoURL: videoA}},
		{"missing video", ProposeParams{MatchID: m.ID, Proposer: "alice", TrickName: "ollie"}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.controller.CreateTurn(s.ctx, tt.params)
			s.ErrorIs(err, model.ErrValidation)
		})
	}
}

func (s *ControllerSuite) TestCreateTurnOutsider() {
	m := s.activeMatch(model.MatchModeLive)
	_, err := s.controller.CreateTurn(s.ctx, ProposeParams{
		MatchID: m.ID, Proposer: "carol", TrickName: "ollie", VideoURL: videoA,
	})
	s.ErrorIs(err, model.ErrNotParticipant)
}

func (s *ControllerSuite) TestCreateTurnRequiresActiveMatch() {
	pending, err := s.manager.CreateMatch(s.ctx, model.MatchModeLive, "alice", "bob")
	s.Require().NoError(err)

	_, err = s.controller.CreateTurn(s.ctx, ProposeParams{
		MatchID: pending.ID, Proposer: "alice", TrickName: "ollie", VideoURL: videoA,
	})
	s.ErrorIs(err, model.ErrMatchNotActive)

	_, err = s.controller.CreateTurn(s.ctx, ProposeParams{
		MatchID: "missing", Proposer: "alice", TrickName: "ollie", VideoURL: videoA,
	})
	s.ErrorIs(err, model.ErrMatchNotFound)
}

// RespondTurn tests

func (s *ControllerSuite) TestRespondBeforeDeadline() {
	m := s.activeMatch(model.MatchModeRemote)
	t := s.propose(m.ID, "alice")

	s.clock.Set(t.RemoteDeadline.Add(-time.Second))
	res, err := s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.Require().NoError(err)

	s.Equal(model.TurnStatusResponded, res.Turn.Status)
	s.Equal(videoB, *res.Turn.VideoBURL)
	s.Require().NotNil(res.Turn.RespondedAt)
	s.WithinDuration(t.RemoteDeadline.Add(-time.Second), *res.Turn.RespondedAt, 0)
	s.Equal("", res.Match.LettersA)
	s.Equal("", res.Match.LettersB)
}

func (s *ControllerSuite) TestRespondAtDeadlineIsOnTime() {
	m := s.activeMatch(model.MatchModeRemote)
	t := s.propose(m.ID, "alice")

	s.clock.Set(*t.RemoteDeadline)
	res, err := s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.Require().NoError(err)
	s.Equal(model.TurnStatusResponded, res.Turn.Status)
}

func (s *ControllerSuite) TestRespondAfterDeadlineTimesOut() {
	m := s.activeMatch(model.MatchModeRemote)
	t := s.propose(m.ID, "alice")

	s.clock.Set(t.RemoteDeadline.Add(time.Second))
	res, err := s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.Require().NoError(err)

	s.Equal(model.TurnStatusTimeout, res.Turn.Status)
	// The late video is still recorded
	s.Equal(videoB, *res.Turn.VideoBURL)
	s.Equal("S", res.Match.LettersB)
	s.Equal("", res.Match.LettersA)
	s.Equal(model.MatchStatusActive, res.Match.Status)

	stored, _ := s.storage.GetMatch(s.ctx, m.ID)
	s.Equal("S", stored.LettersB)
}

func (s *ControllerSuite) TestLiveMatchNeverTimesOut() {
	m := s.activeMatch(model.MatchModeLive)
	t := s.propose(m.ID, "alice")

	s.clock.Advance(30 * 24 * time.Hour)
	res, err := s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.Require().NoError(err)
	s.Equal(model.TurnStatusResponded, res.Turn.Status)
}

func (s *ControllerSuite) TestRespondTwiceIsAlreadyResolved() {
	m := s.activeMatch(model.MatchModeRemote)
	t := s.propose(m.ID, "alice")
	s.clock.Set(t.RemoteDeadline.Add(time.Second))

	_, err := s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.Require().NoError(err)

	_, err = s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.ErrorIs(err, model.ErrAlreadyResolved)

	stored, _ := s.storage.GetMatch(s.ctx, m.ID)
	s.Equal("S", stored.LettersB)
}

func (s *ControllerSuite) TestConcurrentRespondsAppendOneLetter() {
	m := s.activeMatch(model.MatchModeRemote)
	t := s.propose(m.ID, "alice")
	s.clock.Set(t.RemoteDeadline.Add(time.Second))

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		s.ErrorIs(err, model.ErrAlreadyResolved)
	}
	s.Equal(1, ok)

	stored, _ := s.storage.GetMatch(s.ctx, m.ID)
	s.Equal("S", stored.LettersB)
}

func (s *ControllerSuite) TestRespondByProposerIsRejected() {
	m := s.activeMatch(model.MatchModeLive)
	t := s.propose(m.ID, "alice")

	_, err := s.controller.RespondTurn(s.ctx, t.ID, "alice", videoB)
	s.ErrorIs(err, model.ErrNotParticipant)
}

func (s *ControllerSuite) TestRespondRequiresVideo() {
	m := s.activeMatch(model.MatchModeLive)
	t := s.propose(m.ID, "alice")

	_, err := s.controller.RespondTurn(s.ctx, t.ID, "bob", "")
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ControllerSuite) TestRespondUnknownTurn() {
	_, err := s.controller.RespondTurn(s.ctx, "missing", "bob", videoB)
	s.ErrorIs(err, model.ErrTurnNotFound)
}

func (s *ControllerSuite) TestRespondOnCanceledMatch() {
	m := s.activeMatch(model.MatchModeRemote)
	t := s.propose(m.ID, "alice")
	_, err := s.manager.CancelMatch(s.ctx, m.ID)
	s.Require().NoError(err)

	_, err = s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.ErrorIs(err, model.ErrMatchNotActive)

	stored, _ := s.storage.GetTurn(s.ctx, t.ID)
	s.Equal(model.TurnStatusProposed, stored.Status)
}

// Full game

func (s *ControllerSuite) TestFiveTimeoutsFinishTheMatch() {
	m := s.activeMatch(model.MatchModeRemote)
	s.Equal(model.RiderID("alice"), m.PlayerA)
	s.Equal(model.RiderID("bob"), m.PlayerB)

	var res *Result
	for i, want := range []string{"S", "SK", "SKA", "SKAT", "SKATE"} {
		t := s.propose(m.ID, "alice")
		s.Equal(i, t.TurnIndex)
		s.clock.Set(t.RemoteDeadline.Add(time.Minute))

		var err error
		res, err = s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
		s.Require().NoError(err)
		s.Equal(model.TurnStatusTimeout, res.Turn.Status)
		s.Equal(want, res.Match.LettersB)
		s.Equal("", res.Match.LettersA)

		if want != "SKATE" {
			s.Equal(model.MatchStatusActive, res.Match.Status)
			s.Nil(res.Match.Winner)
		}
	}

	s.Equal(model.MatchStatusFinished, res.Match.Status)
	s.Require().NotNil(res.Match.Winner)
	s.Equal(model.RiderID("alice"), *res.Match.Winner)

	// Rewards were issued exactly once on finishing
	rewards, _ := s.storage.ListRewards(s.ctx, "alice")
	s.Len(rewards, 3)

	// No further turns on a finished match
	_, err := s.controller.CreateTurn(s.ctx, ProposeParams{
		MatchID: m.ID, Proposer: "alice", TrickName: "ollie", VideoURL: videoA,
	})
	s.ErrorIs(err, model.ErrMatchNotActive)

	// Resolving with the same winner afterwards changes nothing
	again, err := s.manager.ResolveMatch(s.ctx, m.ID, "alice")
	s.Require().NoError(err)
	s.Equal(res.Match.Version, again.Version)
	rewards, _ = s.storage.ListRewards(s.ctx, "alice")
	s.Len(rewards, 3)
}

// JudgeTurn tests

func (s *ControllerSuite) TestJudgeFailedGivesRespondentALetter() {
	m := s.activeMatch(model.MatchModeLive)
	t := s.propose(m.ID, "bob")
	_, err := s.controller.RespondTurn(s.ctx, t.ID, "alice", videoB)
	s.Require().NoError(err)

	res, err := s.controller.JudgeTurn(s.ctx, t.ID, "bob", model.TurnStatusFailed)
	s.Require().NoError(err)
	s.Equal(model.TurnStatusFailed, res.Turn.Status)
	s.Equal("S", res.Match.LettersA)
	s.Equal("", res.Match.LettersB)
}

func (s *ControllerSuite) TestJudgeValidatedChangesNoLetters() {
	m := s.activeMatch(model.MatchModeLive)
	t := s.propose(m.ID, "alice")
	_, err := s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.Require().NoError(err)

	res, err := s.controller.JudgeTurn(s.ctx, t.ID, "alice", model.TurnStatusValidated)
	s.Require().NoError(err)
	s.Equal(model.TurnStatusValidated, res.Turn.Status)
	s.Equal("", res.Match.LettersB)

	_, err = s.controller.JudgeTurn(s.ctx, t.ID, "alice", model.TurnStatusFailed)
	s.ErrorIs(err, model.ErrAlreadyResolved)
}

func (s *ControllerSuite) TestJudgeRules() {
	m := s.activeMatch(model.MatchModeLive)
	t := s.propose(m.ID, "alice")

	// Not yet responded
	_, err := s.controller.JudgeTurn(s.ctx, t.ID, "alice", model.TurnStatusValidated)
	s.ErrorIs(err, model.ErrInvalidTransition)

	_, err = s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.Require().NoError(err)

	_, err = s.controller.JudgeTurn(s.ctx, t.ID, "bob", model.TurnStatusValidated)
	s.ErrorIs(err, model.ErrNotParticipant)

	_, err = s.controller.JudgeTurn(s.ctx, t.ID, "alice", model.TurnStatusTimeout)
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ControllerSuite) TestJudgeRemoteAttemptCannotFail() {
	m := s.activeMatch(model.MatchModeRemote)
	t := s.propose(m.ID, "alice")
	_, err := s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.Require().NoError(err)

	_, err = s.controller.JudgeTurn(s.ctx, t.ID, "alice", model.TurnStatusFailed)
	s.ErrorIs(err, model.ErrValidation)

	stored, err := s.controller.GetTurn(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(model.TurnStatusResponded, stored.Status)

	// The respondent can still take it to the jury
	res, err := s.controller.DisputeTurn(s.ctx, t.ID, "bob")
	s.Require().NoError(err)
	s.Equal(model.TurnStatusDisputed, res.Turn.Status)
	s.Equal("", res.Match.LettersB)
}

func (s *ControllerSuite) TestJudgeRemoteAttemptValidated() {
	m := s.activeMatch(model.MatchModeRemote)
	t := s.propose(m.ID, "alice")
	_, err := s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.Require().NoError(err)

	res, err := s.controller.JudgeTurn(s.ctx, t.ID, "alice", model.TurnStatusValidated)
	s.Require().NoError(err)
	s.Equal(model.TurnStatusValidated, res.Turn.Status)
}

func (s *ControllerSuite) TestJudgeTimedOutTurn() {
	m := s.activeMatch(model.MatchModeRemote)
	t := s.propose(m.ID, "alice")
	s.clock.Set(t.RemoteDeadline.Add(time.Second))
	_, err := s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.Require().NoError(err)

	_, err = s.controller.JudgeTurn(s.ctx, t.ID, "alice", model.TurnStatusValidated)
	s.ErrorIs(err, model.ErrInvalidTransition)
}

// Dispute tests

func (s *ControllerSuite) disputedTurn() (*model.Match, *model.Turn) {
	m := s.activeMatch(model.MatchModeLive)
	t := s.propose(m.ID, "alice")
	_, err := s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.Require().NoError(err)
	res, err := s.controller.DisputeTurn(s.ctx, t.ID, "bob")
	s.Require().NoError(err)
	return res.Match, res.Turn
}

func (s *ControllerSuite) TestDisputePutsMatchUnderReview() {
	m, t := s.disputedTurn()
	s.Equal(model.TurnStatusDisputed, t.Status)
	s.Equal(model.MatchStatusReview, m.Status)

	// No new turns while the jury deliberates
	_, err := s.controller.CreateTurn(s.ctx, ProposeParams{
		MatchID: m.ID, Proposer: "bob", TrickName: "ollie", VideoURL: videoA,
	})
	s.ErrorIs(err, model.ErrMatchNotActive)
}

func (s *ControllerSuite) TestDisputeByOutsider() {
	m := s.activeMatch(model.MatchModeLive)
	t := s.propose(m.ID, "alice")
	_, err := s.controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.Require().NoError(err)

	_, err = s.controller.DisputeTurn(s.ctx, t.ID, "carol")
	s.ErrorIs(err, model.ErrNotParticipant)
}

func (s *ControllerSuite) TestResolveDisputeValidated() {
	m, t := s.disputedTurn()

	res, err := s.controller.ResolveDispute(s.ctx, t.ID, model.TurnStatusValidated)
	s.Require().NoError(err)
	s.Equal(model.TurnStatusValidated, res.Turn.Status)
	s.Equal(model.MatchStatusActive, res.Match.Status)
	s.Equal("", res.Match.LettersB)

	// Play continues
	s.propose(m.ID, "bob")
}

func (s *ControllerSuite) TestResolveDisputeFailed() {
	_, t := s.disputedTurn()

	res, err := s.controller.ResolveDispute(s.ctx, t.ID, model.TurnStatusFailed)
	s.Require().NoError(err)
	s.Equal(model.TurnStatusFailed, res.Turn.Status)
	s.Equal(model.MatchStatusActive, res.Match.Status)
	s.Equal("S", res.Match.LettersB)

	_, err = s.controller.ResolveDispute(s.ctx, t.ID, model.TurnStatusValidated)
	s.ErrorIs(err, model.ErrAlreadyResolved)
}

func (s *ControllerSuite) TestResolveDisputeFinishingMiss() {
	m, t := s.disputedTurn()

	// Bob already sits on SKAT
	stored, _ := s.storage.GetMatch(s.ctx, m.ID)
	stored.LettersB = "SKAT"
	s.Require().NoError(s.storage.UpdateMatch(s.ctx, stored))

	res, err := s.controller.ResolveDispute(s.ctx, t.ID, model.TurnStatusFailed)
	s.Require().NoError(err)
	s.Equal(model.MatchStatusFinished, res.Match.Status)
	s.Equal("SKATE", res.Match.LettersB)
	s.Equal(model.RiderID("alice"), *res.Match.Winner)

	rewards, _ := s.storage.ListRewards(s.ctx, "bob")
	s.Len(rewards, 2)
}

func (s *ControllerSuite) TestResolveDisputeOnUndisputedTurn() {
	m := s.activeMatch(model.MatchModeLive)
	t := s.propose(m.ID, "alice")

	_, err := s.controller.ResolveDispute(s.ctx, t.ID, model.TurnStatusFailed)
	s.ErrorIs(err, model.ErrInvalidTransition)
}

func (s *ControllerSuite) TestAlternatingPolicy() {
	logger := testutil.NopLogger()
	controller := NewController(s.storage, s.ids, s.clock, deadline.NewResolver(s.clock, 0), s.manager,
		match.Alternating{}, mocks.NewMockPublisher(), logger)

	m := s.activeMatch(model.MatchModeLive)
	t, err := controller.CreateTurn(s.ctx, ProposeParams{MatchID: m.ID, Proposer: "alice", TrickName: "ollie", VideoURL: videoA})
	s.Require().NoError(err)
	_, err = controller.RespondTurn(s.ctx, t.ID, "bob", videoB)
	s.Require().NoError(err)
	_, err = controller.JudgeTurn(s.ctx, t.ID, "alice", model.TurnStatusValidated)
	s.Require().NoError(err)

	_, err = controller.CreateTurn(s.ctx, ProposeParams{MatchID: m.ID, Proposer: "alice", TrickName: "ollie", VideoURL: videoA})
	s.ErrorIs(err, model.ErrValidation)

	_, err = controller.CreateTurn(s.ctx, ProposeParams{MatchID: m.ID, Proposer: "bob", TrickName: "ollie", VideoURL: videoA})
	s.NoError(err)
}
