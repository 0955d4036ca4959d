package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/storage"
	"github.com/mcoot/skateduel/internal/storage/memory"
	"github.com/mcoot/skateduel/internal/testutil"
)

// flakyStorage fails the first n GetMatch calls with err
type flakyStorage struct {
	storage.Storage
	failures int
	err      error
	calls    int
	writes   int
}

func (f *flakyStorage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.Storage.GetMatch(ctx, id)
}

func (f *flakyStorage) UpdateMatch(ctx context.Context, match *model.Match) error {
	f.writes++
	return errors.New("connection reset")
}

type RetrySuite struct {
	suite.Suite
	inner *flakyStorage
	store *Storage
	ctx   context.Context
}

func TestRetrySuite(t *testing.T) {
	suite.Run(t, new(RetrySuite))
}

func (s *RetrySuite) SetupTest() {
	s.ctx = context.Background()
	s.inner = &flakyStorage{Storage: memory.New(), err: errors.New("connection reset")}
	cfg := Config{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, MaxRetries: 3}
	s.store = Wrap(s.inner, cfg, testutil.NopLogger())
	s.Require().NoError(s.inner.CreateMatch(s.ctx, &model.Match{ID: "m1", PlayerA: "a", PlayerB: "b"}))
}

func (s *RetrySuite) TestTransientReadIsRetried() {
	s.inner.failures = 2

	match, err := s.store.GetMatch(s.ctx, "m1")
	s.Require().NoError(err)
	s.Equal(model.MatchID("m1"), match.ID)
	s.Equal(3, s.inner.calls)
}

func (s *RetrySuite) TestRetriesAreBounded() {
	s.inner.failures = 100

	_, err := s.store.GetMatch(s.ctx, "m1")
	s.Require().Error(err)
	s.Equal(4, s.inner.calls)
}

func (s *RetrySuite) TestNotFoundIsNotRetried() {
	_, err := s.store.GetMatch(s.ctx, "missing")
	s.ErrorIs(err, model.ErrMatchNotFound)
	s.Equal(1, s.inner.calls)
}

func (s *RetrySuite) TestWritesAreNotRetried() {
	err := s.store.UpdateMatch(s.ctx, &model.Match{ID: "m1"})
	s.Error(err)
	s.Equal(1, s.inner.writes)
}
