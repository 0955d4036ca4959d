package model

import "time"

// MatchID uniquely identifies a match
type MatchID string

// MatchMode selects how turns are adjudicated
type MatchMode string

const (
	MatchModeLive   MatchMode = "live"   // Riders in the same place, no response deadline
	MatchModeRemote MatchMode = "remote" // Asynchronous play with a response window
)

// Valid reports whether m is a known mode
func (m MatchMode) Valid() bool {
	return m == MatchModeLive || m == MatchModeRemote
}

// MatchStatus represents the lifecycle phase of a match
type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusActive   MatchStatus = "active"
	MatchStatusReview   MatchStatus = "review" // A disputed turn awaits the jury
	MatchStatusFinished MatchStatus = "finished"
	MatchStatusCanceled MatchStatus = "canceled"
)

// IsTerminal returns true once the match can no longer change
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusFinished || s == MatchStatusCanceled
}

// Match is one dueling session between two riders
type Match struct {
	ID         MatchID     `json:"id"`
	Mode       MatchMode   `json:"mode"`
	PlayerA    RiderID     `json:"player_a"`
	PlayerB    RiderID     `json:"player_b"`
	Status     MatchStatus `json:"status"`
	LettersA   string      `json:"letters_a"`
	LettersB   string      `json:"letters_b"`
	Winner     *RiderID    `json:"winner"`
	CreatedAt  time.Time   `json:"created_at"`
	StartedAt  *time.Time  `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at"`

	// Version is bumped by the store on every update
	Version int64 `json:"version"`
}

// HasPlayer returns true if the rider is one of the two players
func (m *Match) HasPlayer(id RiderID) bool {
	return id != "" && (m.PlayerA == id || m.PlayerB == id)
}

// Opponent returns the other player, or "" if id is not in the match
func (m *Match) Opponent(id RiderID) RiderID {
	switch id {
	case m.PlayerA:
		return m.PlayerB
	case m.PlayerB:
		return m.PlayerA
	default:
		return ""
	}
}

// LettersFor returns the letters accumulated by the given player
func (m *Match) LettersFor(id RiderID) string {
	if id == m.PlayerA {
		return m.LettersA
	}
	return m.LettersB
}

// SetLettersFor replaces the letters of the given player
func (m *Match) SetLettersFor(id RiderID, letters string) {
	if id == m.PlayerA {
		m.LettersA = letters
		return
	}
	m.LettersB = letters
}

// Clone returns a deep copy safe to mutate
func (m *Match) Clone() *Match {
	c := *m
	if m.Winner != nil {
		w := *m.Winner
		c.Winner = &w
	}
	if m.StartedAt != nil {
		t := *m.StartedAt
		c.StartedAt = &t
	}
	if m.FinishedAt != nil {
		t := *m.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
