package reward

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/skateduel/internal/dependencies/clock"
	"github.com/mcoot/skateduel/internal/dependencies/ids"
	"github.com/mcoot/skateduel/internal/events"
	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/storage"
)

// Ledger reasons
const (
	ReasonMatchWin  = "match_win"
	ReasonMatchLoss = "match_loss"
)

// Grant is one ledger movement awarded by the policy
type Grant struct {
	Kind  model.RewardKind
	Delta int64
}

// PolicyTable lists what the winner and loser of a match receive.
// Each kind may appear at most once per side.
type PolicyTable struct {
	Winner []Grant
	Loser  []Grant
}

// DefaultPolicy is the stock reward table
func DefaultPolicy() PolicyTable {
	return PolicyTable{
		Winner: []Grant{
			{Kind: model.RewardXP, Delta: 100},
			{Kind: model.RewardElo, Delta: 15},
			{Kind: model.RewardCoin, Delta: 10},
		},
		Loser: []Grant{
			{Kind: model.RewardXP, Delta: 25},
			{Kind: model.RewardElo, Delta: -15},
		},
	}
}

// Issuer writes match rewards to the append-only ledger
type Issuer struct {
	storage   storage.Storage
	ids       ids.Generator
	clock     clock.Clock
	publisher events.Publisher
	policy    PolicyTable
	logger    *slog.Logger
}

// NewIssuer creates a new reward Issuer
func NewIssuer(
	storage storage.Storage,
	ids ids.Generator,
	clock clock.Clock,
	publisher events.Publisher,
	policy PolicyTable,
	logger *slog.Logger,
) *Issuer {
	return &Issuer{
		storage:   storage,
		ids:       ids,
		clock:     clock,
		publisher: publisher,
		policy:    policy,
		logger:    logger,
	}
}

// Issue credits the winner and loser of a finished match. Calling it again
// for the same match inserts nothing; only newly written rows are returned.
func (i *Issuer) Issue(ctx context.Context, match *model.Match) ([]*model.RiderReward, error) {
	if match.Status != model.MatchStatusFinished || match.Winner == nil {
		return nil, fmt.Errorf("issue rewards for %s match: %w", match.Status, model.ErrInvalidTransition)
	}

	winner := *match.Winner
	loser := match.Opponent(winner)
	if loser == "" {
		return nil, model.ErrInvalidParticipants
	}

	now := i.clock.Now()
	matchID := match.ID
	var rows []*model.RiderReward
	build := func(rider model.RiderID, grants []Grant, reason string) {
		for _, g := range grants {
			rows = append(rows, &model.RiderReward{
				ID:        model.RewardID(i.ids.NewID()),
				UserID:    rider,
				MatchID:   &matchID,
				Kind:      g.Kind,
				Delta:     g.Delta,
				Reason:    reason,
				CreatedAt: now,
			})
		}
	}
	build(winner, i.policy.Winner, ReasonMatchWin)
	build(loser, i.policy.Loser, ReasonMatchLoss)

	inserted, err := i.storage.AppendRewards(ctx, rows)
	if err != nil {
		i.logger.Error("failed to append rewards",
			slog.String("match_id", string(match.ID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if len(inserted) == 0 {
		i.logger.Debug("rewards already issued", slog.String("match_id", string(match.ID)))
		return inserted, nil
	}

	i.logger.Info("rewards issued",
		slog.String("match_id", string(match.ID)),
		slog.String("winner", string(winner)),
		slog.Int("entries", len(inserted)),
	)
	i.publish(ctx, inserted)

	return inserted, nil
}

func (i *Issuer) publish(ctx context.Context, rewards []*model.RiderReward) {
	evs := make([]events.Event, 0, len(rewards))
	for _, r := range rewards {
		evs = append(evs, events.Event{
			ID:         i.ids.NewID(),
			Type:       events.TypeRewardIssued,
			Topic:      events.TopicRewards,
			Key:        string(*r.MatchID),
			Payload:    r,
			OccurredAt: r.CreatedAt,
		})
	}
	if err := i.publisher.Publish(ctx, evs...); err != nil {
		i.logger.Warn("failed to publish reward events",
			slog.Int("count", len(evs)),
			slog.String("error", err.Error()),
		)
	}
}

// ListRewards returns a rider's ledger in insertion order
func (i *Issuer) ListRewards(ctx context.Context, riderID model.RiderID) ([]*model.RiderReward, error) {
	if _, err := i.storage.GetRider(ctx, riderID); err != nil {
		return nil, err
	}
	return i.storage.ListRewards(ctx, riderID)
}

// Balance folds a rider's ledger on top of the starting balances
func (i *Issuer) Balance(ctx context.Context, riderID model.RiderID) (*model.Balance, error) {
	rewards, err := i.ListRewards(ctx, riderID)
	if err != nil {
		return nil, err
	}

	b := &model.Balance{RiderID: riderID, Elo: model.DefaultElo}
	for _, r := range rewards {
		switch r.Kind {
		case model.RewardXP:
			b.XP += r.Delta
		case model.RewardElo:
			b.Elo += r.Delta
		case model.RewardCoin:
			b.Coins += r.Delta
		}
	}
	return b, nil
}
