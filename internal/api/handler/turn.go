package handler

import (
	"net/http"
	"strings"

	"github.com/mcoot/skateduel/internal/api/apierr"
	"github.com/mcoot/skateduel/internal/api/request"
	"github.com/mcoot/skateduel/internal/api/response"
	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/services/arbitration"
	"github.com/mcoot/skateduel/internal/services/turn"
)

// TurnHandler handles responses, judging, disputes and jury reviews
type TurnHandler struct {
	turns *turn.Controller
	jury  *arbitration.Service
}

// NewTurnHandler creates a new turn handler
func NewTurnHandler(turns *turn.Controller, jury *arbitration.Service) *TurnHandler {
	return &TurnHandler{
		turns: turns,
		jury:  jury,
	}
}

// Get handles GET /api/v1/turns/{id}
func (h *TurnHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.turns.GetTurn(r.Context(), model.TurnID(pathVar(r, "id")))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, t)
}

// Respond handles POST /api/v1/turns/{id}/respond
func (h *TurnHandler) Respond(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.RespondTurnRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if strings.TrimSpace(req.VideoURL) == "" {
		WriteError(w, apierr.NewValidationError("video_url required"))
		return
	}

	res, err := h.turns.RespondTurn(r.Context(), model.TurnID(pathVar(r, "id")), me, req.VideoURL)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.OK(w, response.RespondResponse{
		OK:     true,
		Status: res.Turn.Status,
		Match:  res.Match,
	})
}

// Judge handles POST /api/v1/turns/{id}/judge
func (h *TurnHandler) Judge(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.JudgeTurnRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.turns.JudgeTurn(r.Context(), model.TurnID(pathVar(r, "id")), me, model.TurnStatus(req.Outcome))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, response.TurnResultFrom(res))
}

// Dispute handles POST /api/v1/turns/{id}/dispute
func (h *TurnHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.turns.DisputeTurn(r.Context(), model.TurnID(pathVar(r, "id")), me)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, response.TurnResultFrom(res))
}

// ListReviews handles GET /api/v1/turns/{id}/reviews
func (h *TurnHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.jury.ListReviews(r.Context(), model.TurnID(pathVar(r, "id")))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, response.ReviewsResponse{Reviews: reviews})
}

// SubmitReview handles POST /api/v1/turns/{id}/reviews
func (h *TurnHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.SubmitReviewRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	sub, err := h.jury.SubmitReview(r.Context(), model.TurnID(pathVar(r, "id")), me, model.ReviewDecision(req.Decision), req.Reason)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.Created(w, sub)
}
