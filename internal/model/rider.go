package model

import "time"

// RiderID uniquely identifies a rider across the system
type RiderID string

// DefaultElo is the rating a rider starts with
const DefaultElo = 1200

// RiderProfile is the public face of a rider.
// Elo, XP and Coins are a projection of the reward ledger.
type RiderProfile struct {
	ID        RiderID   `json:"id"`
	Handle    string    `json:"handle"`
	Country   string    `json:"country,omitempty"`
	Elo       int64     `json:"elo"`
	XP        int64     `json:"xp"`
	Coins     int64     `json:"coins"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRiderProfile returns a profile with starting balances
func NewRiderProfile(id RiderID, handle, country string, now time.Time) *RiderProfile {
	if handle == "" {
		handle = string(id)
	}
	return &RiderProfile{
		ID:        id,
		Handle:    handle,
		Country:   country,
		Elo:       DefaultElo,
		CreatedAt: now,
	}
}

// Apply adds a ledger delta to the matching balance
func (p *RiderProfile) Apply(kind RewardKind, delta int64) {
	switch kind {
	case RewardXP:
		p.XP += delta
	case RewardElo:
		p.Elo += delta
	case RewardCoin:
		p.Coins += delta
	}
}

// RiderCredentials holds login data for a rider.
// Stored separately so the hash never travels with the profile.
type RiderCredentials struct {
	RiderID      RiderID   `json:"rider_id"`
	Handle       string    `json:"handle"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}
