package memory

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/storage"
	"github.com/mcoot/skateduel/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
}

func TestStorageSuite(t *testing.T) {
	s := new(StorageSuite)
	s.NewStorage = func() storage.Storage { return New() }
	suite.Run(t, s)
}

func (s *StorageSuite) TestReturnedMatchIsACopy() {
	store := s.Storage
	s.Require().NoError(store.CreateMatch(s.Ctx, &model.Match{ID: "m1", PlayerA: "a", PlayerB: "b", Status: model.MatchStatusPending}))

	got, err := store.GetMatch(s.Ctx, "m1")
	s.Require().NoError(err)
	got.Status = model.MatchStatusFinished

	again, err := store.GetMatch(s.Ctx, "m1")
	s.Require().NoError(err)
	s.Equal(model.MatchStatusPending, again.Status)
}
