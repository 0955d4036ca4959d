package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/services/auth"
)

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidParticipants = "INVALID_PARTICIPANTS"
	CodeHandleTaken         = "HANDLE_TAKEN"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeTurnInFlight        = "TURN_IN_FLIGHT"
	CodeAlreadyResolved     = "ALREADY_RESOLVED"
	CodeMatchNotActive      = "MATCH_NOT_ACTIVE"
	CodeAlreadyReviewed     = "ALREADY_REVIEWED"
	CodeVersionConflict     = "VERSION_CONFLICT"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with a response body
type httpError struct {
	status int
	body   ErrorResponse
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.body.Error
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(he.body)
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return &httpError{http.StatusBadRequest, ErrorResponse{ve.Message, CodeValidation}}
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return newError(http.StatusUnauthorized, CodeInvalidCredentials, "invalid handle or password")
	// ErrInvalidToken wraps ErrAuthenticationRequired
	case errors.Is(err, auth.ErrInvalidToken):
		return newError(http.StatusUnauthorized, CodeUnauthorized, "invalid or expired token")
	case errors.Is(err, model.ErrAuthenticationRequired):
		return newError(http.StatusUnauthorized, CodeUnauthorized, "authentication required")

	case errors.Is(err, model.ErrNotFound):
		return newError(http.StatusNotFound, CodeNotFound, notFoundMessage(err))

	case errors.Is(err, model.ErrValidation):
		return newError(http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, model.ErrInvalidParticipants):
		return newError(http.StatusBadRequest, CodeInvalidParticipants, model.ErrInvalidParticipants.Error())
	case errors.Is(err, model.ErrNotParticipant):
		return newError(http.StatusForbidden, CodeForbidden, model.ErrNotParticipant.Error())
	case errors.Is(err, model.ErrForfeitOnly):
		return newError(http.StatusForbidden, CodeForbidden, model.ErrForfeitOnly.Error())

	case errors.Is(err, model.ErrHandleTaken):
		return newError(http.StatusConflict, CodeHandleTaken, model.ErrHandleTaken.Error())
	case errors.Is(err, model.ErrInvalidTransition):
		return newError(http.StatusConflict, CodeInvalidTransition, err.Error())
	case errors.Is(err, model.ErrTurnInFlight):
		return newError(http.StatusConflict, CodeTurnInFlight, model.ErrTurnInFlight.Error())
	case errors.Is(err, model.ErrAlreadyResolved):
		return newError(http.StatusConflict, CodeAlreadyResolved, model.ErrAlreadyResolved.Error())
	case errors.Is(err, model.ErrMatchNotActive):
		return newError(http.StatusConflict, CodeMatchNotActive, model.ErrMatchNotActive.Error())
	case errors.Is(err, model.ErrAlreadyReviewed):
		return newError(http.StatusConflict, CodeAlreadyReviewed, model.ErrAlreadyReviewed.Error())
	case errors.Is(err, model.ErrVersionConflict):
		return newError(http.StatusConflict, CodeVersionConflict, "match changed concurrently, reload and retry")

	default:
		return newError(http.StatusInternalServerError, CodeInternalError, "internal server error")
	}
}

func newError(status int, code, message string) *httpError {
	return &httpError{status, ErrorResponse{message, code}}
}

// notFoundMessage names the missing entity without leaking wrapped context
func notFoundMessage(err error) string {
	for _, target := range []error{model.ErrMatchNotFound, model.ErrTurnNotFound, model.ErrRiderNotFound} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return model.ErrNotFound.Error()
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return newError(http.StatusBadRequest, CodeInvalidRequest, message)
}

// NewValidationError creates a validation error for a missing or bad field
func NewValidationError(message string) error {
	return newError(http.StatusBadRequest, CodeValidation, message)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return newError(http.StatusUnauthorized, CodeUnauthorized, "authentication required")
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return newError(http.StatusInternalServerError, CodeInternalError, "internal server error")
}
