package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as a JSON body with the given status.
// Match and turn state changes on every call, so responses are never cached.
func JSON(w http.ResponseWriter, status int, data any) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 response
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 response for a newly stored rider, match, turn or review
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}
