package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/skateduel/internal/api/apierr"
	"github.com/mcoot/skateduel/internal/api/handler"
	"github.com/mcoot/skateduel/internal/api/middleware"
	"github.com/mcoot/skateduel/internal/api/response"
	basemw "github.com/mcoot/skateduel/internal/middleware"
	"github.com/mcoot/skateduel/internal/services/arbitration"
	"github.com/mcoot/skateduel/internal/services/auth"
	"github.com/mcoot/skateduel/internal/services/match"
	"github.com/mcoot/skateduel/internal/services/reward"
	"github.com/mcoot/skateduel/internal/services/turn"
	"github.com/mcoot/skateduel/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	MatchManager   *match.Manager
	TurnController *turn.Controller
	Arbitration    *arbitration.Service
	Rewards        *reward.Issuer

	// Storage is pinged by the health check when set
	Storage storage.Storage
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	riderHandler := handler.NewRiderHandler(cfg.AuthService, cfg.Rewards)
	matchHandler := handler.NewMatchHandler(cfg.MatchManager, cfg.TurnController)
	turnHandler := handler.NewTurnHandler(cfg.TurnController, cfg.Arbitration)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := basemw.Logging(cfg.Logger)
	recoveryMiddleware := basemw.Recovery(cfg.Logger, writePanic)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)
	api.NotFoundHandler = loggingMiddleware(http.HandlerFunc(notFound))

	// Rider routes (no auth required for registering/logging in)
	api.HandleFunc("/riders/register", riderHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/riders/login", riderHandler.Login).Methods(http.MethodPost)

	// Protected rider routes
	riders := api.PathPrefix("/riders").Subrouter()
	riders.Use(authMiddleware)
	riders.HandleFunc("/me", riderHandler.GetMe).Methods(http.MethodGet)
	riders.HandleFunc("/{id}", riderHandler.Get).Methods(http.MethodGet)
	riders.HandleFunc("/{id}/rewards", riderHandler.Rewards).Methods(http.MethodGet)

	// Match routes (all require auth)
	matches := api.PathPrefix("/matches").Subrouter()
	matches.Use(authMiddleware)
	matches.HandleFunc("", matchHandler.Create).Methods(http.MethodPost)
	matches.HandleFunc("/{id}", matchHandler.Get).Methods(http.MethodGet)
	matches.HandleFunc("/{id}/start", matchHandler.Start).Methods(http.MethodPost)
	matches.HandleFunc("/{id}/cancel", matchHandler.Cancel).Methods(http.MethodPost)
	matches.HandleFunc("/{id}/resolve", matchHandler.Resolve).Methods(http.MethodPost)
	matches.HandleFunc("/{id}/turns", matchHandler.ListTurns).Methods(http.MethodGet)
	matches.HandleFunc("/{id}/turns", matchHandler.CreateTurn).Methods(http.MethodPost)

	// Turn routes (all require auth)
	turns := api.PathPrefix("/turns").Subrouter()
	turns.Use(authMiddleware)
	turns.HandleFunc("/{id}", turnHandler.Get).Methods(http.MethodGet)
	turns.HandleFunc("/{id}/respond", turnHandler.Respond).Methods(http.MethodPost)
	turns.HandleFunc("/{id}/judge", turnHandler.Judge).Methods(http.MethodPost)
	turns.HandleFunc("/{id}/dispute", turnHandler.Dispute).Methods(http.MethodPost)
	turns.HandleFunc("/{id}/reviews", turnHandler.ListReviews).Methods(http.MethodGet)
	turns.HandleFunc("/{id}/reviews", turnHandler.SubmitReview).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg.Storage)).Methods(http.MethodGet)

	return r
}

// writePanic answers a recovered panic with the generic JSON 500
func writePanic(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusNotFound, apierr.ErrorResponse{Error: "route not found", Code: apierr.CodeNotFound})
}

func healthHandler(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				response.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		response.OK(w, map[string]string{"status": "ok"})
	}
}
