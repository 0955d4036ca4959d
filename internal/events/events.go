// Package events publishes domain events about matches and rewards to
// downstream consumers. Publishing happens after the store commit and is
// best-effort: a failed publish is logged by the caller, never rolled back.
package events

import (
	"context"
	"time"
)

// Event types
const (
	TypeMatchCreated  = "match.created"
	TypeMatchStarted  = "match.started"
	TypeMatchFinished = "match.finished"
	TypeMatchCanceled = "match.canceled"
	TypeTurnChanged   = "turn.changed"
	TypeRewardIssued  = "reward.issued"
)

// Topics
const (
	TopicMatches = "skate.matches"
	TopicRewards = "skate.rewards"
)

// Event is one domain fact ready for publishing
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Topic      string    `json:"-"`
	Key        string    `json:"key"` // partition key, the match id
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, events ...Event) error { return nil }

func (NopPublisher) Close() error { return nil }
