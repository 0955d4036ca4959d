// Package storagetest holds the behaviour every storage backend must share.
// Backend packages embed Suite and set NewStorage in their SetupTest.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/storage"
)

// Suite runs the storage contract against a backend
type Suite struct {
	suite.Suite

	// NewStorage returns an empty store; called once per test
	NewStorage func() storage.Storage

	Storage storage.Storage
	Ctx     context.Context
	Now     time.Time
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set before SetupTest")
	s.Storage = s.NewStorage()
	s.Ctx = context.Background()
	s.Now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) TearDownTest() {
	if s.Storage != nil {
		_ = s.Storage.Close()
	}
}

// Helpers

func (s *Suite) createRider(id model.RiderID) *model.RiderProfile {
	rider, err := s.Storage.EnsureRider(s.Ctx, model.NewRiderProfile(id, "", "", s.Now))
	s.Require().NoError(err)
	return rider
}

func (s *Suite) createActiveMatch(id model.MatchID) *model.Match {
	s.createRider("alice")
	s.createRider("bob")
	started := s.Now
	match := &model.Match{
		ID:        id,
		Mode:      model.MatchModeLive,
		PlayerA:   "alice",
		PlayerB:   "bob",
		Status:    model.MatchStatusActive,
		CreatedAt: s.Now,
		StartedAt: &started,
	}
	s.Require().NoError(s.Storage.CreateMatch(s.Ctx, match))
	return match
}

func (s *Suite) newTurn(id model.TurnID, matchID model.MatchID) *model.Turn {
	return &model.Turn{
		ID:        id,
		MatchID:   matchID,
		Proposer:  "alice",
		TrickName: "kickflip",
		VideoAURL: "https://videos.example/a.mp4",
		Status:    model.TurnStatusProposed,
		CreatedAt: s.Now,
	}
}

// Rider tests

func (s *Suite) TestEnsureRiderCreatesOnce() {
	first, err := s.Storage.EnsureRider(s.Ctx, model.NewRiderProfile("alice", "al", "AU", s.Now))
	s.Require().NoError(err)
	s.Equal(int64(model.DefaultElo), first.Elo)

	second, err := s.Storage.EnsureRider(s.Ctx, model.NewRiderProfile("alice", "other", "US", s.Now))
	s.Require().NoError(err)
	s.Equal("al", second.Handle)
	s.Equal("AU", second.Country)
}

func (s *Suite) TestGetRiderNotFound() {
	_, err := s.Storage.GetRider(s.Ctx, "ghost")
	s.ErrorIs(err, model.ErrRiderNotFound)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *Suite) TestCredentials() {
	creds := &model.RiderCredentials{RiderID: "alice", Handle: "alice", PasswordHash: "hash", CreatedAt: s.Now}
	s.Require().NoError(s.Storage.CreateCredentials(s.Ctx, creds))

	got, err := s.Storage.GetCredentialsByHandle(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.RiderID("alice"), got.RiderID)
	s.Equal("hash", got.PasswordHash)

	err = s.Storage.CreateCredentials(s.Ctx, &model.RiderCredentials{RiderID: "other", Handle: "alice", PasswordHash: "x"})
	s.ErrorIs(err, model.ErrHandleTaken)

	_, err = s.Storage.GetCredentialsByHandle(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrNotFound)
}

// Match tests

func (s *Suite) TestCreateAndGetMatch() {
	created := s.createActiveMatch("m1")

	got, err := s.Storage.GetMatch(s.Ctx, "m1")
	s.Require().NoError(err)
	s.Equal(created.PlayerA, got.PlayerA)
	s.Equal(model.MatchStatusActive, got.Status)
	s.Equal("", got.LettersA)
	s.Nil(got.Winner)
	s.Require().NotNil(got.StartedAt)
	s.True(got.StartedAt.Equal(s.Now))
}

func (s *Suite) TestGetMatchNotFound() {
	_, err := s.Storage.GetMatch(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestUpdateMatchBumpsVersion() {
	s.createActiveMatch("m1")

	match, err := s.Storage.GetMatch(s.Ctx, "m1")
	s.Require().NoError(err)
	match.LettersB = "S"
	s.Require().NoError(s.Storage.UpdateMatch(s.Ctx, match))
	s.Equal(int64(1), match.Version)

	got, err := s.Storage.GetMatch(s.Ctx, "m1")
	s.Require().NoError(err)
	s.Equal("S", got.LettersB)
	s.Equal(int64(1), got.Version)
}

func (s *Suite) TestUpdateMatchStaleVersion() {
	s.createActiveMatch("m1")

	first, _ := s.Storage.GetMatch(s.Ctx, "m1")
	second, _ := s.Storage.GetMatch(s.Ctx, "m1")

	first.LettersA = "S"
	s.Require().NoError(s.Storage.UpdateMatch(s.Ctx, first))

	second.Status = model.MatchStatusCanceled
	s.ErrorIs(s.Storage.UpdateMatch(s.Ctx, second), model.ErrVersionConflict)

	got, _ := s.Storage.GetMatch(s.Ctx, "m1")
	s.Equal(model.MatchStatusActive, got.Status)
	s.Equal("S", got.LettersA)
}

// Turn tests

func (s *Suite) TestCreateTurnAssignsIndex() {
	s.createActiveMatch("m1")

	first := s.newTurn("t1", "m1")
	s.Require().NoError(s.Storage.CreateTurn(s.Ctx, first))
	s.Equal(0, first.TurnIndex)

	match, _ := s.Storage.GetMatch(s.Ctx, "m1")
	done := first.Clone()
	done.Status = model.TurnStatusTimeout
	s.Require().NoError(s.Storage.TransitionTurn(s.Ctx, storage.TurnTransition{
		Turn: done, From: model.TurnStatusProposed, Match: match,
	}))

	second := s.newTurn("t2", "m1")
	s.Require().NoError(s.Storage.CreateTurn(s.Ctx, second))
	s.Equal(1, second.TurnIndex)

	turns, err := s.Storage.ListTurns(s.Ctx, "m1")
	s.Require().NoError(err)
	s.Require().Len(turns, 2)
	s.Equal(model.TurnID("t1"), turns[0].ID)
	s.Equal(model.TurnStatusTimeout, turns[0].Status)
	s.Equal(model.TurnID("t2"), turns[1].ID)
}

func (s *Suite) TestCreateTurnRejectsSecondActiveTurn() {
	s.createActiveMatch("m1")
	s.Require().NoError(s.Storage.CreateTurn(s.Ctx, s.newTurn("t1", "m1")))

	err := s.Storage.CreateTurn(s.Ctx, s.newTurn("t2", "m1"))
	s.ErrorIs(err, model.ErrTurnInFlight)

	turns, _ := s.Storage.ListTurns(s.Ctx, "m1")
	s.Len(turns, 1)
}

func (s *Suite) TestCreateTurnRequiresActiveMatch() {
	s.createRider("alice")
	s.createRider("bob")
	pending := &model.Match{ID: "m1", Mode: model.MatchModeLive, PlayerA: "alice", PlayerB: "bob",
		Status: model.MatchStatusPending, CreatedAt: s.Now}
	s.Require().NoError(s.Storage.CreateMatch(s.Ctx, pending))

	s.ErrorIs(s.Storage.CreateTurn(s.Ctx, s.newTurn("t1", "m1")), model.ErrMatchNotActive)
	s.ErrorIs(s.Storage.CreateTurn(s.Ctx, s.newTurn("t2", "nope")), model.ErrMatchNotFound)
}

func (s *Suite) TestConcurrentCreateTurnAdmitsOne() {
	s.createActiveMatch("m1")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Storage.CreateTurn(s.Ctx, s.newTurn(model.TurnID(fmt.Sprintf("t%d", i)), "m1"))
		}(i)
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	s.Equal(1, ok)

	turns, _ := s.Storage.ListTurns(s.Ctx, "m1")
	s.Len(turns, 1)
}

func (s *Suite) TestGetTurnNotFound() {
	_, err := s.Storage.GetTurn(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrTurnNotFound)
}

func (s *Suite) TestTransitionTurnCompareAndSet() {
	s.createActiveMatch("m1")
	turn := s.newTurn("t1", "m1")
	s.Require().NoError(s.Storage.CreateTurn(s.Ctx, turn))

	match, _ := s.Storage.GetMatch(s.Ctx, "m1")
	responded := turn.Clone()
	responded.Status = model.TurnStatusResponded
	url := "https://videos.example/b.mp4"
	responded.VideoBURL = &url
	s.Require().NoError(s.Storage.TransitionTurn(s.Ctx, storage.TurnTransition{
		Turn: responded, From: model.TurnStatusProposed, Match: match,
	}))
	s.Equal(int64(1), match.Version)

	// A second writer that still believes the turn is proposed loses
	stale := turn.Clone()
	stale.Status = model.TurnStatusTimeout
	fresh, _ := s.Storage.GetMatch(s.Ctx, "m1")
	err := s.Storage.TransitionTurn(s.Ctx, storage.TurnTransition{
		Turn: stale, From: model.TurnStatusProposed, Match: fresh,
	})
	s.ErrorIs(err, model.ErrAlreadyResolved)

	got, err := s.Storage.GetTurn(s.Ctx, "t1")
	s.Require().NoError(err)
	s.Equal(model.TurnStatusResponded, got.Status)
	s.Require().NotNil(got.VideoBURL)
	s.Equal(url, *got.VideoBURL)
}

func (s *Suite) TestConcurrentTransitionTurnAdmitsOne() {
	s.createActiveMatch("m1")
	turn := s.newTurn("t1", "m1")
	s.Require().NoError(s.Storage.CreateTurn(s.Ctx, turn))
	snapshot, err := s.Storage.GetMatch(s.Ctx, "m1")
	s.Require().NoError(err)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := turn.Clone()
			next.Status = model.TurnStatusTimeout
			match := snapshot.Clone()
			match.LettersB = "S"
			errs <- s.Storage.TransitionTurn(s.Ctx, storage.TurnTransition{
				Turn: next, From: model.TurnStatusProposed, Match: match,
			})
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
		s.True(errors.Is(err, model.ErrAlreadyResolved) || errors.Is(err, model.ErrVersionConflict), err.Error())
	}
	s.Equal(1, ok)

	got, err := s.Storage.GetTurn(s.Ctx, "t1")
	s.Require().NoError(err)
	s.Equal(model.TurnStatusTimeout, got.Status)

	m, err := s.Storage.GetMatch(s.Ctx, "m1")
	s.Require().NoError(err)
	s.Equal("S", m.LettersB)
	s.Equal(snapshot.Version+1, m.Version)
}

func (s *Suite) TestTransitionTurnStaleMatch() {
	s.createActiveMatch("m1")
	turn := s.newTurn("t1", "m1")
	s.Require().NoError(s.Storage.CreateTurn(s.Ctx, turn))

	stale, _ := s.Storage.GetMatch(s.Ctx, "m1")
	canceled, _ := s.Storage.GetMatch(s.Ctx, "m1")
	canceled.Status = model.MatchStatusCanceled
	s.Require().NoError(s.Storage.UpdateMatch(s.Ctx, canceled))

	next := turn.Clone()
	next.Status = model.TurnStatusTimeout
	stale.LettersB = "S"
	err := s.Storage.TransitionTurn(s.Ctx, storage.TurnTransition{
		Turn: next, From: model.TurnStatusProposed, Match: stale,
	})
	s.ErrorIs(err, model.ErrVersionConflict)

	got, _ := s.Storage.GetTurn(s.Ctx, "t1")
	s.Equal(model.TurnStatusProposed, got.Status)
	m, _ := s.Storage.GetMatch(s.Ctx, "m1")
	s.Equal("", m.LettersB)
}

// Review tests

func (s *Suite) TestReviews() {
	s.createActiveMatch("m1")
	s.Require().NoError(s.Storage.CreateTurn(s.Ctx, s.newTurn("t1", "m1")))

	r1 := &model.TurnReview{ID: "r1", TurnID: "t1", Reviewer: "carol", Decision: model.DecisionValid, CreatedAt: s.Now}
	r2 := &model.TurnReview{ID: "r2", TurnID: "t1", Reviewer: "dave", Decision: model.DecisionInvalid,
		Reason: "hand down", CreatedAt: s.Now.Add(time.Second)}
	s.Require().NoError(s.Storage.CreateReview(s.Ctx, r1))
	s.Require().NoError(s.Storage.CreateReview(s.Ctx, r2))

	dup := &model.TurnReview{ID: "r3", TurnID: "t1", Reviewer: "carol", Decision: model.DecisionInvalid, CreatedAt: s.Now}
	s.ErrorIs(s.Storage.CreateReview(s.Ctx, dup), model.ErrAlreadyReviewed)

	reviews, err := s.Storage.ListReviews(s.Ctx, "t1")
	s.Require().NoError(err)
	s.Require().Len(reviews, 2)
	s.Equal(model.RiderID("carol"), reviews[0].Reviewer)
	s.Equal("hand down", reviews[1].Reason)

	missing := &model.TurnReview{ID: "r4", TurnID: "nope", Reviewer: "carol", Decision: model.DecisionValid}
	s.ErrorIs(s.Storage.CreateReview(s.Ctx, missing), model.ErrTurnNotFound)
}

// Reward tests

func (s *Suite) TestAppendRewardsIsIdempotentPerSlot() {
	s.createActiveMatch("m1")
	matchID := model.MatchID("m1")

	batch := func(prefix string) []*model.RiderReward {
		return []*model.RiderReward{
			{ID: model.RewardID(prefix + "-1"), UserID: "alice", MatchID: &matchID, Kind: model.RewardXP, Delta: 100, Reason: "match_win", CreatedAt: s.Now},
			{ID: model.RewardID(prefix + "-2"), UserID: "alice", MatchID: &matchID, Kind: model.RewardElo, Delta: 15, Reason: "match_win", CreatedAt: s.Now},
			{ID: model.RewardID(prefix + "-3"), UserID: "bob", MatchID: &matchID, Kind: model.RewardElo, Delta: -15, Reason: "match_loss", CreatedAt: s.Now},
		}
	}

	inserted, err := s.Storage.AppendRewards(s.Ctx, batch("a"))
	s.Require().NoError(err)
	s.Len(inserted, 3)

	inserted, err = s.Storage.AppendRewards(s.Ctx, batch("b"))
	s.Require().NoError(err)
	s.Empty(inserted)

	alice, _ := s.Storage.GetRider(s.Ctx, "alice")
	s.Equal(int64(100), alice.XP)
	s.Equal(int64(model.DefaultElo+15), alice.Elo)
	bob, _ := s.Storage.GetRider(s.Ctx, "bob")
	s.Equal(int64(model.DefaultElo-15), bob.Elo)

	rewards, err := s.Storage.ListRewards(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Len(rewards, 2)
}

func (s *Suite) TestAppendRewardsWithoutMatchAlwaysInserts() {
	s.createRider("alice")
	grant := func(id model.RewardID) []*model.RiderReward {
		return []*model.RiderReward{{ID: id, UserID: "alice", Kind: model.RewardCoin, Delta: 5, Reason: "promo", CreatedAt: s.Now}}
	}

	_, err := s.Storage.AppendRewards(s.Ctx, grant("g1"))
	s.Require().NoError(err)
	_, err = s.Storage.AppendRewards(s.Ctx, grant("g2"))
	s.Require().NoError(err)

	alice, _ := s.Storage.GetRider(s.Ctx, "alice")
	s.Equal(int64(10), alice.Coins)
}

func (s *Suite) TestAppendRewardsUnknownRider() {
	_, err := s.Storage.AppendRewards(s.Ctx, []*model.RiderReward{
		{ID: "x", UserID: "ghost", Kind: model.RewardXP, Delta: 1, CreatedAt: s.Now},
	})
	s.ErrorIs(err, model.ErrRiderNotFound)
}

func (s *Suite) TestListRewardsEmpty() {
	rewards, err := s.Storage.ListRewards(s.Ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(rewards)
}
