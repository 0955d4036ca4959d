package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// It is single-process and non-durable; records are copied in and out so
// callers never share state with the store.
type Storage struct {
	mu sync.RWMutex

	riders       map[model.RiderID]*model.RiderProfile
	credentials  map[string]*model.RiderCredentials
	matches      map[model.MatchID]*model.Match
	turns        map[model.TurnID]*model.Turn
	turnsByMatch map[model.MatchID][]model.TurnID
	reviews      map[model.TurnID][]*model.TurnReview
	rewards      []*model.RiderReward
	rewardKeys   map[model.LedgerKey]bool
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		riders:       make(map[model.RiderID]*model.RiderProfile),
		credentials:  make(map[string]*model.RiderCredentials),
		matches:      make(map[model.MatchID]*model.Match),
		turns:        make(map[model.TurnID]*model.Turn),
		turnsByMatch: make(map[model.MatchID][]model.TurnID),
		reviews:      make(map[model.TurnID][]*model.TurnReview),
		rewardKeys:   make(map[model.LedgerKey]bool),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Ping always succeeds for the in-memory store
func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store
func (s *Storage) Close() error {
	return nil
}

// Rider operations

func (s *Storage) EnsureRider(ctx context.Context, rider *model.RiderProfile) (*model.RiderProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.riders[rider.ID]; ok {
		c := *existing
		return &c, nil
	}
	c := *rider
	s.riders[rider.ID] = &c
	out := c
	return &out, nil
}

func (s *Storage) GetRider(ctx context.Context, id model.RiderID) (*model.RiderProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rider, ok := s.riders[id]
	if !ok {
		return nil, model.ErrRiderNotFound
	}
	c := *rider
	return &c, nil
}

func (s *Storage) CreateCredentials(ctx context.Context, creds *model.RiderCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[creds.Handle]; ok {
		return model.ErrHandleTaken
	}
	c := *creds
	s.credentials[creds.Handle] = &c
	return nil
}

func (s *Storage) GetCredentialsByHandle(ctx context.Context, handle string) (*model.RiderCredentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds, ok := s.credentials[handle]
	if !ok {
		return nil, model.ErrRiderNotFound
	}
	c := *creds
	return &c, nil
}

// Match operations

func (s *Storage) CreateMatch(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[match.ID] = match.Clone()
	return nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return match.Clone(), nil
}

func (s *Storage) UpdateMatch(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMatchVersion(match); err != nil {
		return err
	}
	s.putMatch(match)
	return nil
}

// checkMatchVersion must be called with the write lock held
func (s *Storage) checkMatchVersion(match *model.Match) error {
	stored, ok := s.matches[match.ID]
	if !ok {
		return model.ErrMatchNotFound
	}
	if stored.Version != match.Version {
		return model.ErrVersionConflict
	}
	return nil
}

// putMatch must be called with the write lock held
func (s *Storage) putMatch(match *model.Match) {
	match.Version++
	s.matches[match.ID] = match.Clone()
}

// Turn operations

func (s *Storage) CreateTurn(ctx context.Context, turn *model.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[turn.MatchID]
	if !ok {
		return model.ErrMatchNotFound
	}
	if match.Status != model.MatchStatusActive {
		return model.ErrMatchNotActive
	}

	existing := s.turnsByMatch[turn.MatchID]
	for _, id := range existing {
		if s.turns[id].Status.IsActive() {
			return model.ErrTurnInFlight
		}
	}

	turn.TurnIndex = len(existing)
	s.turns[turn.ID] = turn.Clone()
	s.turnsByMatch[turn.MatchID] = append(existing, turn.ID)
	return nil
}

func (s *Storage) GetTurn(ctx context.Context, id model.TurnID) (*model.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turn, ok := s.turns[id]
	if !ok {
		return nil, model.ErrTurnNotFound
	}
	return turn.Clone(), nil
}

func (s *Storage) ListTurns(ctx context.Context, matchID model.MatchID) ([]*model.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.turnsByMatch[matchID]
	turns := make([]*model.Turn, 0, len(ids))
	for _, id := range ids {
		turns = append(turns, s.turns[id].Clone())
	}
	return turns, nil
}

func (s *Storage) TransitionTurn(ctx context.Context, t storage.TurnTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.turns[t.Turn.ID]
	if !ok {
		return model.ErrTurnNotFound
	}
	if stored.Status != t.From {
		return model.ErrAlreadyResolved
	}
	if err := s.checkMatchVersion(t.Match); err != nil {
		return err
	}

	s.turns[t.Turn.ID] = t.Turn.Clone()
	s.putMatch(t.Match)
	return nil
}

// Review operations

func (s *Storage) CreateReview(ctx context.Context, review *model.TurnReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.turns[review.TurnID]; !ok {
		return model.ErrTurnNotFound
	}
	for _, r := range s.reviews[review.TurnID] {
		if r.Reviewer == review.Reviewer {
			return model.ErrAlreadyReviewed
		}
	}
	c := *review
	s.reviews[review.TurnID] = append(s.reviews[review.TurnID], &c)
	return nil
}

func (s *Storage) ListReviews(ctx context.Context, turnID model.TurnID) ([]*model.TurnReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reviews := make([]*model.TurnReview, 0, len(s.reviews[turnID]))
	for _, r := range s.reviews[turnID] {
		c := *r
		reviews = append(reviews, &c)
	}
	return reviews, nil
}

// Reward operations

func (s *Storage) AppendRewards(ctx context.Context, rewards []*model.RiderReward) ([]*model.RiderReward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rewards {
		if _, ok := s.riders[r.UserID]; !ok {
			return nil, model.ErrRiderNotFound
		}
	}

	inserted := make([]*model.RiderReward, 0, len(rewards))
	for _, r := range rewards {
		if key, ok := r.Key(); ok {
			if s.rewardKeys[key] {
				continue
			}
			s.rewardKeys[key] = true
		}
		c := *r
		s.rewards = append(s.rewards, &c)
		s.riders[r.UserID].Apply(r.Kind, r.Delta)
		inserted = append(inserted, r)
	}
	return inserted, nil
}

func (s *Storage) ListRewards(ctx context.Context, riderID model.RiderID) ([]*model.RiderReward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rewards := []*model.RiderReward{}
	for _, r := range s.rewards {
		if r.UserID == riderID {
			c := *r
			rewards = append(rewards, &c)
		}
	}
	sort.SliceStable(rewards, func(i, j int) bool {
		return rewards[i].CreatedAt.Before(rewards[j].CreatedAt)
	})
	return rewards, nil
}
