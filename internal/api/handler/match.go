package handler

import (
	"context"
	"net/http"

	"github.com/mcoot/skateduel/internal/api/apierr"
	"github.com/mcoot/skateduel/internal/api/request"
	"github.com/mcoot/skateduel/internal/api/response"
	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/services/auth"
	"github.com/mcoot/skateduel/internal/services/match"
	"github.com/mcoot/skateduel/internal/services/turn"
)

// MatchHandler handles match lifecycle and turn proposal endpoints
type MatchHandler struct {
	matches *match.Manager
	turns   *turn.Controller
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matches *match.Manager, turns *turn.Controller) *MatchHandler {
	return &MatchHandler{
		matches: matches,
		turns:   turns,
	}
}

// Create handles POST /api/v1/matches
func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.CreateMatchRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Opponent == "" {
		WriteError(w, apierr.NewValidationError("opponent required"))
		return
	}
	mode := model.MatchMode(req.Mode)
	if mode == "" {
		mode = model.MatchModeRemote
	}

	opponent := model.RiderID(auth.NormalizeHandle(req.Opponent))
	m, err := h.matches.CreateMatch(r.Context(), mode, me, opponent)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, m)
}

// Get handles GET /api/v1/matches/{id}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.matches.GetMatch(r.Context(), model.MatchID(pathVar(r, "id")))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, m)
}

// Start handles POST /api/v1/matches/{id}/start
func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.participantAction(w, r, h.matches.StartMatch)
}

// Cancel handles POST /api/v1/matches/{id}/cancel
func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.participantAction(w, r, h.matches.CancelMatch)
}

// participantAction runs a match operation on behalf of one of its players
func (h *MatchHandler) participantAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id model.MatchID) (*model.Match, error)) {
	_, current, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	m, err := action(r.Context(), current.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, m)
}

// Resolve handles POST /api/v1/matches/{id}/resolve. Over HTTP a rider can
// only forfeit: the named winner must be the caller's opponent.
func (h *MatchHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	me, current, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.ResolveMatchRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Winner == "" {
		WriteError(w, apierr.NewValidationError("winner required"))
		return
	}

	winner := model.RiderID(auth.NormalizeHandle(req.Winner))
	if winner == me {
		WriteError(w, model.ErrForfeitOnly)
		return
	}

	m, err := h.matches.ResolveMatch(r.Context(), current.ID, winner)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, m)
}

// ListTurns handles GET /api/v1/matches/{id}/turns
func (h *MatchHandler) ListTurns(w http.ResponseWriter, r *http.Request) {
	turns, err := h.matches.ListTurns(r.Context(), model.MatchID(pathVar(r, "id")))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, response.TurnsResponse{Turns: turns})
}

// CreateTurn handles POST /api/v1/matches/{id}/turns
func (h *MatchHandler) CreateTurn(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.CreateTurnRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	t, err := h.turns.CreateTurn(r.Context(), turn.ProposeParams{
		MatchID:    model.MatchID(pathVar(r, "id")),
		Proposer:   me,
		TrickName:  req.TrickName,
		Difficulty: req.Difficulty,
		VideoURL:   req.VideoURL,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	response.Created(w, t)
}

// authorize loads the path match and checks the caller plays in it
func (h *MatchHandler) authorize(r *http.Request) (model.RiderID, *model.Match, error) {
	me, err := caller(r)
	if err != nil {
		return "", nil, err
	}
	m, err := h.matches.GetMatch(r.Context(), model.MatchID(pathVar(r, "id")))
	if err != nil {
		return "", nil, err
	}
	if !m.HasPlayer(me) {
		return "", nil, model.ErrNotParticipant
	}
	return me, m, nil
}
