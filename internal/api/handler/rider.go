package handler

import (
	"net/http"

	"github.com/mcoot/skateduel/internal/api/apierr"
	"github.com/mcoot/skateduel/internal/api/request"
	"github.com/mcoot/skateduel/internal/api/response"
	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/services/auth"
	"github.com/mcoot/skateduel/internal/services/reward"
)

// RiderHandler handles rider accounts and ledgers
type RiderHandler struct {
	authService *auth.Service
	rewards     *reward.Issuer
}

// NewRiderHandler creates a new rider handler
func NewRiderHandler(authService *auth.Service, rewards *reward.Issuer) *RiderHandler {
	return &RiderHandler{
		authService: authService,
		rewards:     rewards,
	}
}

// Register handles POST /api/v1/riders/register
func (h *RiderHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Handle == "" {
		WriteError(w, apierr.NewValidationError("handle required"))
		return
	}
	if req.Password == "" {
		WriteError(w, apierr.NewValidationError("password required"))
		return
	}

	session, err := h.authService.Register(r.Context(), req.Handle, req.Password, req.Country)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.AuthResponseFromSession(session))
}

// Login handles POST /api/v1/riders/login
func (h *RiderHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Handle == "" || req.Password == "" {
		WriteError(w, apierr.NewValidationError("handle and password required"))
		return
	}

	session, err := h.authService.Login(r.Context(), req.Handle, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.OK(w, response.AuthResponseFromSession(session))
}

// GetMe handles GET /api/v1/riders/me
func (h *RiderHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	h.writeRider(w, r, id)
}

// Get handles GET /api/v1/riders/{id}
func (h *RiderHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.writeRider(w, r, model.RiderID(pathVar(r, "id")))
}

func (h *RiderHandler) writeRider(w http.ResponseWriter, r *http.Request, id model.RiderID) {
	rider, err := h.authService.GetRider(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OK(w, rider)
}

// Rewards handles GET /api/v1/riders/{id}/rewards
func (h *RiderHandler) Rewards(w http.ResponseWriter, r *http.Request) {
	id := model.RiderID(auth.NormalizeHandle(pathVar(r, "id")))

	rewards, err := h.rewards.ListRewards(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	balance, err := h.rewards.Balance(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.OK(w, response.RewardsResponse{Rewards: rewards, Balance: balance})
}
