package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/skateduel/internal/api/apierr"
	"github.com/mcoot/skateduel/internal/api/middleware"
	"github.com/mcoot/skateduel/internal/model"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// decode reads a JSON body into dst; an empty body leaves dst zero
func decode(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apierr.NewInvalidRequestError("invalid request body")
}

// caller returns the authenticated rider or an unauthorized error
func caller(r *http.Request) (model.RiderID, error) {
	id := middleware.RiderID(r.Context())
	if id == "" {
		return "", apierr.NewUnauthorizedError()
	}
	return id, nil
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
