package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Multi-key writes run as optimistic WATCH/MULTI transactions.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New connects to Redis and verifies the connection with a ping
func New(ctx context.Context, cfg Config) (*Storage, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = DefaultConfig().MaxTxRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Ping checks the connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// reader is the subset of commands shared by the client and a watched transaction
type reader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// getJSON loads and decodes key, mapping a missing key to notFound
func getJSON[T any](ctx context.Context, c reader, key string, notFound error) (*T, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound
		}
		return nil, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// watch runs fn in an optimistic transaction over keys, replaying it while
// a watched key changes before EXEC
func (s *Storage) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < s.cfg.MaxTxRetries; attempt++ {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis transaction on %v: %w", keys, model.ErrVersionConflict)
}

// Rider operations

func (s *Storage) EnsureRider(ctx context.Context, rider *model.RiderProfile) (*model.RiderProfile, error) {
	data, err := json.Marshal(rider)
	if err != nil {
		return nil, err
	}

	if err := s.client.SetNX(ctx, riderKey(rider.ID), data, 0).Err(); err != nil {
		return nil, err
	}
	return s.GetRider(ctx, rider.ID)
}

func (s *Storage) GetRider(ctx context.Context, id model.RiderID) (*model.RiderProfile, error) {
	return getJSON[model.RiderProfile](ctx, s.client, riderKey(id), model.ErrRiderNotFound)
}

func (s *Storage) CreateCredentials(ctx context.Context, creds *model.RiderCredentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	created, err := s.client.SetNX(ctx, credentialsKey(creds.Handle), data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return model.ErrHandleTaken
	}
	return nil
}

func (s *Storage) GetCredentialsByHandle(ctx context.Context, handle string) (*model.RiderCredentials, error) {
	return getJSON[model.RiderCredentials](ctx, s.client, credentialsKey(handle), model.ErrRiderNotFound)
}

// Match operations

func (s *Storage) CreateMatch(ctx context.Context, match *model.Match) error {
	data, err := json.Marshal(match)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, matchKey(match.ID), data, 0).Err()
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return getJSON[model.Match](ctx, s.client, matchKey(id), model.ErrMatchNotFound)
}

func (s *Storage) UpdateMatch(ctx context.Context, match *model.Match) error {
	key := matchKey(match.ID)
	var next *model.Match

	err := s.watch(ctx, func(tx *redis.Tx) error {
		if err := checkMatchVersion(ctx, tx, match); err != nil {
			return err
		}
		next = match.Clone()
		next.Version++
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return err
	}

	match.Version = next.Version
	return nil
}

func checkMatchVersion(ctx context.Context, tx *redis.Tx, match *model.Match) error {
	stored, err := getJSON[model.Match](ctx, tx, matchKey(match.ID), model.ErrMatchNotFound)
	if err != nil {
		return err
	}
	if stored.Version != match.Version {
		return model.ErrVersionConflict
	}
	return nil
}

// Turn operations

func (s *Storage) CreateTurn(ctx context.Context, turn *model.Turn) error {
	mKey := matchKey(turn.MatchID)
	idxKey := matchTurnsIndexKey(turn.MatchID)
	var index int

	// TransitionTurn always rewrites the match key, so watching it also
	// covers a status change of the latest turn
	err := s.watch(ctx, func(tx *redis.Tx) error {
		match, err := getJSON[model.Match](ctx, tx, mKey, model.ErrMatchNotFound)
		if err != nil {
			return err
		}
		if match.Status != model.MatchStatusActive {
			return model.ErrMatchNotActive
		}

		ids, err := tx.LRange(ctx, idxKey, -1, -1).Result()
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			last, err := getJSON[model.Turn](ctx, tx, turnKey(model.TurnID(ids[0])), model.ErrTurnNotFound)
			if err != nil {
				return err
			}
			if last.Status.IsActive() {
				return model.ErrTurnInFlight
			}
		}

		count, err := tx.LLen(ctx, idxKey).Result()
		if err != nil {
			return err
		}

		next := turn.Clone()
		next.TurnIndex = int(count)
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, turnKey(turn.ID), data, 0)
			pipe.RPush(ctx, idxKey, string(turn.ID))
			return nil
		})
		if err == nil {
			index = next.TurnIndex
		}
		return err
	}, mKey, idxKey)
	if err != nil {
		return err
	}

	turn.TurnIndex = index
	return nil
}

func (s *Storage) GetTurn(ctx context.Context, id model.TurnID) (*model.Turn, error) {
	return getJSON[model.Turn](ctx, s.client, turnKey(id), model.ErrTurnNotFound)
}

func (s *Storage) ListTurns(ctx context.Context, matchID model.MatchID) ([]*model.Turn, error) {
	ids, err := s.client.LRange(ctx, matchTurnsIndexKey(matchID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	turns := make([]*model.Turn, 0, len(ids))
	for _, id := range ids {
		turn, err := s.GetTurn(ctx, model.TurnID(id))
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *Storage) TransitionTurn(ctx context.Context, t storage.TurnTransition) error {
	tKey := turnKey(t.Turn.ID)
	mKey := matchKey(t.Match.ID)
	var nextVersion int64

	err := s.watch(ctx, func(tx *redis.Tx) error {
		stored, err := getJSON[model.Turn](ctx, tx, tKey, model.ErrTurnNotFound)
		if err != nil {
			return err
		}
		if stored.Status != t.From {
			return model.ErrAlreadyResolved
		}
		if err := checkMatchVersion(ctx, tx, t.Match); err != nil {
			return err
		}

		match := t.Match.Clone()
		match.Version++
		turnData, err := json.Marshal(t.Turn)
		if err != nil {
			return err
		}
		matchData, err := json.Marshal(match)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, tKey, turnData, 0)
			pipe.Set(ctx, mKey, matchData, 0)
			return nil
		})
		if err == nil {
			nextVersion = match.Version
		}
		return err
	}, tKey, mKey)
	if err != nil {
		return err
	}

	t.Match.Version = nextVersion
	return nil
}

// Review operations

func (s *Storage) CreateReview(ctx context.Context, review *model.TurnReview) error {
	tKey := turnKey(review.TurnID)
	idxKey := reviewersIndexKey(review.TurnID)

	data, err := json.Marshal(review)
	if err != nil {
		return err
	}

	return s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, tKey).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return model.ErrTurnNotFound
		}

		seen, err := tx.SIsMember(ctx, idxKey, string(review.Reviewer)).Result()
		if err != nil {
			return err
		}
		if seen {
			return model.ErrAlreadyReviewed
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, idxKey, string(review.Reviewer))
			pipe.RPush(ctx, reviewsKey(review.TurnID), data)
			return nil
		})
		return err
	}, tKey, idxKey)
}

func (s *Storage) ListReviews(ctx context.Context, turnID model.TurnID) ([]*model.TurnReview, error) {
	return listJSON[model.TurnReview](ctx, s.client, reviewsKey(turnID))
}

// listJSON decodes every element of a LIST of JSON documents
func listJSON[T any](ctx context.Context, c reader, key string) ([]*T, error) {
	items, err := c.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal([]byte(item), &v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, nil
}

// Reward operations

func (s *Storage) AppendRewards(ctx context.Context, rewards []*model.RiderReward) ([]*model.RiderReward, error) {
	if len(rewards) == 0 {
		return nil, nil
	}

	var keys []string
	seenRider := make(map[model.RiderID]bool)
	for _, r := range rewards {
		if !seenRider[r.UserID] {
			seenRider[r.UserID] = true
			keys = append(keys, riderKey(r.UserID))
		}
		if k, ok := r.Key(); ok {
			keys = append(keys, rewardSlotKey(k))
		}
	}

	var inserted []*model.RiderReward
	err := s.watch(ctx, func(tx *redis.Tx) error {
		inserted = inserted[:0]

		riders := make(map[model.RiderID]*model.RiderProfile)
		for id := range seenRider {
			rider, err := getJSON[model.RiderProfile](ctx, tx, riderKey(id), model.ErrRiderNotFound)
			if err != nil {
				return err
			}
			riders[id] = rider
		}

		taken := make(map[model.LedgerKey]bool)
		for _, r := range rewards {
			k, ok := r.Key()
			if ok {
				if taken[k] {
					continue
				}
				n, err := tx.Exists(ctx, rewardSlotKey(k)).Result()
				if err != nil {
					return err
				}
				taken[k] = true
				if n > 0 {
					continue
				}
			}
			riders[r.UserID].Apply(r.Kind, r.Delta)
			inserted = append(inserted, r)
		}

		if len(inserted) == 0 {
			return nil
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, r := range inserted {
				data, err := json.Marshal(r)
				if err != nil {
					return err
				}
				if k, ok := r.Key(); ok {
					pipe.Set(ctx, rewardSlotKey(k), string(r.ID), 0)
				}
				pipe.RPush(ctx, rewardsKey(r.UserID), data)
			}
			for id, rider := range riders {
				data, err := json.Marshal(rider)
				if err != nil {
					return err
				}
				pipe.Set(ctx, riderKey(id), data, 0)
			}
			return nil
		})
		return err
	}, keys...)
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func (s *Storage) ListRewards(ctx context.Context, riderID model.RiderID) ([]*model.RiderReward, error) {
	return listJSON[model.RiderReward](ctx, s.client, rewardsKey(riderID))
}
