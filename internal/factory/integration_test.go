package factory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/skateduel/internal/events"
	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/services/arbitration"
	"github.com/mcoot/skateduel/internal/services/turn"
	"github.com/mcoot/skateduel/internal/storage"
	"github.com/mcoot/skateduel/internal/storage/memory"
	redisstorage "github.com/mcoot/skateduel/internal/storage/redis"
)

type IntegrationSuite struct {
	suite.Suite
	newStorage func() storage.Storage
	app        *TestApp
	ctx        context.Context
}

func TestIntegrationSuiteMemory(t *testing.T) {
	suite.Run(t, &IntegrationSuite{newStorage: func() storage.Storage { return memory.New() }})
}

func TestIntegrationSuiteRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	suite.Run(t, &IntegrationSuite{newStorage: func() storage.Storage {
		mr.FlushAll()
		client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		return redisstorage.NewWithClient(client, redisstorage.DefaultConfig())
	}})
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestAppWith(s.newStorage(), DefaultRules())
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.NoError(s.app.Close())
}

func (s *IntegrationSuite) startMatch(mode model.MatchMode) *model.Match {
	m, err := s.app.Matches.CreateMatch(s.ctx, mode, "alice", "bob")
	s.Require().NoError(err)
	m, err = s.app.Matches.StartMatch(s.ctx, m.ID)
	s.Require().NoError(err)
	return m
}

func (s *IntegrationSuite) propose(matchID model.MatchID, proposer model.RiderID) *model.Turn {
	t, err := s.app.Turns.CreateTurn(s.ctx, turn.ProposeParams{
		MatchID:   matchID,
		Proposer:  proposer,
		TrickName: "heelflip",
		VideoURL:  "https://clips.example/a.mp4",
	})
	s.Require().NoError(err)
	return t
}

// Test: bob misses five remote deadlines and alice wins
func (s *IntegrationSuite) TestRemoteTimeoutsFinishMatch() {
	m := s.startMatch(model.MatchModeRemote)

	for i := range 5 {
		t := s.propose(m.ID, "alice")
		s.Equal(i, t.TurnIndex)
		s.Require().NotNil(t.RemoteDeadline)

		s.app.MockClock.Advance(25 * time.Hour)
		res, err := s.app.Turns.RespondTurn(s.ctx, t.ID, "bob", "https://clips.example/b.mp4")
		s.Require().NoError(err)
		s.Equal(model.TurnStatusTimeout, res.Turn.Status)
		s.Equal("SKATE"[:i+1], res.Match.LettersB)
	}

	final, err := s.app.Matches.GetMatch(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(model.MatchStatusFinished, final.Status)
	s.Require().NotNil(final.Winner)
	s.Equal(model.RiderID("alice"), *final.Winner)
	s.Empty(final.LettersA)

	alice, err := s.app.Rewards.Balance(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(100), alice.XP)
	s.Equal(int64(model.DefaultElo+15), alice.Elo)
	s.Equal(int64(10), alice.Coins)

	bob, err := s.app.Rewards.Balance(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(int64(25), bob.XP)
	s.Equal(int64(model.DefaultElo-15), bob.Elo)

	// Resolving again with the same winner changes nothing
	again, err := s.app.Matches.ResolveMatch(s.ctx, m.ID, "alice")
	s.Require().NoError(err)
	s.Equal(final.Version, again.Version)

	rewards, err := s.app.Rewards.ListRewards(s.ctx, "alice")
	s.Require().NoError(err)
	s.Len(rewards, 3)
	s.Len(s.app.MockPublisher.OfType(events.TypeRewardIssued), 5)
	s.Len(s.app.MockPublisher.OfType(events.TypeMatchFinished), 1)

	_, err = s.app.Matches.ResolveMatch(s.ctx, m.ID, "bob")
	s.ErrorIs(err, model.ErrAlreadyResolved)
}

// Test: live turns are judged by the proposer and never time out
func (s *IntegrationSuite) TestLiveJudgedTurns() {
	m := s.startMatch(model.MatchModeLive)

	t := s.propose(m.ID, "bob")
	s.Nil(t.RemoteDeadline)

	s.app.MockClock.Advance(72 * time.Hour)
	res, err := s.app.Turns.RespondTurn(s.ctx, t.ID, "alice", "https://clips.example/live.mp4")
	s.Require().NoError(err)
	s.Equal(model.TurnStatusResponded, res.Turn.Status)

	_, err = s.app.Turns.JudgeTurn(s.ctx, t.ID, "alice", model.TurnStatusFailed)
	s.ErrorIs(err, model.ErrNotParticipant)

	res, err = s.app.Turns.JudgeTurn(s.ctx, t.ID, "bob", model.TurnStatusFailed)
	s.Require().NoError(err)
	s.Equal(model.TurnStatusFailed, res.Turn.Status)
	s.Equal("S", res.Match.LettersA)

	next := s.propose(m.ID, "alice")
	s.Equal(1, next.TurnIndex)
}

// Test: a disputed attempt goes to the jury, which overturns it
func (s *IntegrationSuite) TestDisputeResolvedByJury() {
	m := s.startMatch(model.MatchModeRemote)
	t := s.propose(m.ID, "alice")

	_, err := s.app.Turns.RespondTurn(s.ctx, t.ID, "bob", "https://clips.example/b.mp4")
	s.Require().NoError(err)

	res, err := s.app.Turns.DisputeTurn(s.ctx, t.ID, "alice")
	s.Require().NoError(err)
	s.Equal(model.TurnStatusDisputed, res.Turn.Status)
	s.Equal(model.MatchStatusReview, res.Match.Status)

	// Reviews from participants are refused
	_, err = s.app.Arbitration.SubmitReview(s.ctx, t.ID, "bob", model.DecisionValid, "")
	s.ErrorIs(err, model.ErrNotParticipant)

	_, err = s.propose2(m.ID)
	s.ErrorIs(err, model.ErrMatchNotActive)

	sub, err := s.app.Arbitration.SubmitReview(s.ctx, t.ID, "carol", model.DecisionInvalid, "no catch")
	s.Require().NoError(err)
	s.Equal(arbitration.VerdictPending, sub.Verdict)

	_, err = s.app.Arbitration.SubmitReview(s.ctx, t.ID, "carol", model.DecisionInvalid, "")
	s.ErrorIs(err, model.ErrAlreadyReviewed)

	_, err = s.app.Arbitration.SubmitReview(s.ctx, t.ID, "dave", model.DecisionValid, "")
	s.Require().NoError(err)

	sub, err = s.app.Arbitration.SubmitReview(s.ctx, t.ID, "erin", model.DecisionInvalid, "")
	s.Require().NoError(err)
	s.Equal(arbitration.VerdictFailed, sub.Verdict)
	s.Equal(model.TurnStatusFailed, sub.Turn.Status)
	s.Equal(model.MatchStatusActive, sub.Match.Status)
	s.Equal("S", sub.Match.LettersB)

	reviews, err := s.app.Arbitration.ListReviews(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Len(reviews, 3)

	_, err = s.app.Arbitration.SubmitReview(s.ctx, t.ID, "frank", model.DecisionValid, "")
	s.ErrorIs(err, model.ErrInvalidTransition)
}

// Test: registering a challenged rider keeps their profile
func (s *IntegrationSuite) TestRegisterAfterChallenge() {
	s.startMatch(model.MatchModeLive)

	session, err := s.app.AuthService.Register(s.ctx, "Bob", "kickflips", "NZ")
	s.Require().NoError(err)
	s.Equal(model.RiderID("bob"), session.Rider.ID)

	claims, err := s.app.AuthService.ValidateToken(session.Token)
	s.Require().NoError(err)
	s.Equal(model.RiderID("bob"), claims.RiderID())
}

// Test: a canceled match takes no more turns and cannot be resolved
func (s *IntegrationSuite) TestCancelStopsMatch() {
	m := s.startMatch(model.MatchModeRemote)

	canceled, err := s.app.Matches.CancelMatch(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(model.MatchStatusCanceled, canceled.Status)

	_, err = s.propose2(m.ID)
	s.ErrorIs(err, model.ErrMatchNotActive)

	_, err = s.app.Matches.ResolveMatch(s.ctx, m.ID, "alice")
	s.ErrorIs(err, model.ErrInvalidTransition)
}

func (s *IntegrationSuite) propose2(matchID model.MatchID) (*model.Turn, error) {
	return s.app.Turns.CreateTurn(s.ctx, turn.ProposeParams{
		MatchID:   matchID,
		Proposer:  "bob",
		TrickName: "tre flip",
		VideoURL:  "https://clips.example/c.mp4",
	})
}
