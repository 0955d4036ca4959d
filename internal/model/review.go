package model

import "time"

// ReviewID uniquely identifies a jury review
type ReviewID string

// ReviewDecision is a juror's binary verdict on an attempt
type ReviewDecision string

const (
	DecisionValid   ReviewDecision = "valid"
	DecisionInvalid ReviewDecision = "invalid"
)

// Valid reports whether d is a known decision
func (d ReviewDecision) Valid() bool {
	return d == DecisionValid || d == DecisionInvalid
}

// TurnReview is one juror's verdict on a disputed turn
type TurnReview struct {
	ID        ReviewID       `json:"id"`
	TurnID    TurnID         `json:"turn_id"`
	Reviewer  RiderID        `json:"reviewer"`
	Decision  ReviewDecision `json:"decision"`
	Reason    string         `json:"reason,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
