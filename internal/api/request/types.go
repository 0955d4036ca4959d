package request

// RegisterRequest is the request body for registering a rider
type RegisterRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
	Country  string `json:"country,omitempty"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

// CreateMatchRequest challenges an opponent; the caller is player A
type CreateMatchRequest struct {
	Mode     string `json:"mode"`
	Opponent string `json:"opponent"`
}

// ResolveMatchRequest names the winner of a match
type ResolveMatchRequest struct {
	Winner string `json:"winner"`
}

// CreateTurnRequest proposes a trick
type CreateTurnRequest struct {
	TrickName  string `json:"trick_name"`
	Difficulty *int   `json:"difficulty,omitempty"`
	VideoURL   string `json:"video_url"`
}

// RespondTurnRequest submits the respondent's attempt
type RespondTurnRequest struct {
	VideoURL string `json:"video_url"`
}

// JudgeTurnRequest accepts or rejects an attempt
type JudgeTurnRequest struct {
	Outcome string `json:"outcome"`
}

// SubmitReviewRequest is a juror's verdict
type SubmitReviewRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}
