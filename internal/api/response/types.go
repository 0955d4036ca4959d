package response

import (
	"time"

	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/services/auth"
	"github.com/mcoot/skateduel/internal/services/turn"
)

// AuthResponse is the response for register and login
type AuthResponse struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	Rider     *model.RiderProfile `json:"rider"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		Rider:     s.Rider,
	}
}

// RewardsResponse lists a rider's ledger with its running balance
type RewardsResponse struct {
	Rewards []*model.RiderReward `json:"rewards"`
	Balance *model.Balance       `json:"balance"`
}

// TurnsResponse lists the turns of a match in index order
type TurnsResponse struct {
	Turns []*model.Turn `json:"turns"`
}

// RespondResponse is the response after answering a turn
type RespondResponse struct {
	OK     bool             `json:"ok"`
	Status model.TurnStatus `json:"status"`
	Match  *model.Match     `json:"match"`
}

// TurnResultResponse is the state of a turn and its match after a transition
type TurnResultResponse struct {
	Turn  *model.Turn  `json:"turn"`
	Match *model.Match `json:"match"`
}

// TurnResultFrom converts a controller result
func TurnResultFrom(r *turn.Result) TurnResultResponse {
	return TurnResultResponse{Turn: r.Turn, Match: r.Match}
}

// ReviewsResponse lists the reviews of a turn
type ReviewsResponse struct {
	Reviews []*model.TurnReview `json:"reviews"`
}
