// Package retry decorates a storage backend so that transient read failures
// are retried with bounded exponential backoff. Writes pass straight through:
// replaying a compare-and-set after an unknown outcome is not safe.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/storage"
)

// Config bounds the retry schedule
type Config struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
}

// DefaultConfig returns a short schedule suited to request handling
func DefaultConfig() Config {
	return Config{
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
		MaxRetries:      3,
	}
}

// Storage wraps another backend, retrying its read operations
type Storage struct {
	storage.Storage
	cfg    Config
	logger *slog.Logger
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Wrap returns a retrying view of inner
func Wrap(inner storage.Storage, cfg Config, logger *slog.Logger) *Storage {
	return &Storage{Storage: inner, cfg: cfg, logger: logger}
}

// domainErrors are answers, not failures, and are never retried
var domainErrors = []error{
	model.ErrNotFound,
	model.ErrValidation,
	model.ErrVersionConflict,
	model.ErrAlreadyResolved,
	context.Canceled,
	context.DeadlineExceeded,
}

func isPermanent(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func read[T any](ctx context.Context, s *Storage, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialInterval
	b.MaxInterval = s.cfg.MaxInterval
	b.MaxElapsedTime = 0

	attempt := 0
	return backoff.RetryWithData(func() (T, error) {
		attempt++
		v, err := fn()
		if err != nil && !isPermanent(err) {
			s.logger.Warn("storage read failed", "op", op, "attempt", attempt, "error", err)
			return v, err
		}
		if err != nil {
			return v, backoff.Permanent(err)
		}
		return v, nil
	}, backoff.WithContext(backoff.WithMaxRetries(b, s.cfg.MaxRetries), ctx))
}

func (s *Storage) GetRider(ctx context.Context, id model.RiderID) (*model.RiderProfile, error) {
	return read(ctx, s, "get_rider", func() (*model.RiderProfile, error) {
		return s.Storage.GetRider(ctx, id)
	})
}

func (s *Storage) GetCredentialsByHandle(ctx context.Context, handle string) (*model.RiderCredentials, error) {
	return read(ctx, s, "get_credentials", func() (*model.RiderCredentials, error) {
		return s.Storage.GetCredentialsByHandle(ctx, handle)
	})
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return read(ctx, s, "get_match", func() (*model.Match, error) {
		return s.Storage.GetMatch(ctx, id)
	})
}

func (s *Storage) GetTurn(ctx context.Context, id model.TurnID) (*model.Turn, error) {
	return read(ctx, s, "get_turn", func() (*model.Turn, error) {
		return s.Storage.GetTurn(ctx, id)
	})
}

func (s *Storage) ListTurns(ctx context.Context, matchID model.MatchID) ([]*model.Turn, error) {
	return read(ctx, s, "list_turns", func() ([]*model.Turn, error) {
		return s.Storage.ListTurns(ctx, matchID)
	})
}

func (s *Storage) ListReviews(ctx context.Context, turnID model.TurnID) ([]*model.TurnReview, error) {
	return read(ctx, s, "list_reviews", func() ([]*model.TurnReview, error) {
		return s.Storage.ListReviews(ctx, turnID)
	})
}

func (s *Storage) ListRewards(ctx context.Context, riderID model.RiderID) ([]*model.RiderReward, error) {
	return read(ctx, s, "list_rewards", func() ([]*model.RiderReward, error) {
		return s.Storage.ListRewards(ctx, riderID)
	})
}
