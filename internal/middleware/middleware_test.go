package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/skateduel/internal/testutil"
)

func TestLoggingAssignsRequestID(t *testing.T) {
	var seen string
	h := Logging(testutil.NopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLoggingKeepsClientRequestID(t *testing.T) {
	h := Logging(testutil.NopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-123", RequestID(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestRecoveryInvokesHandler(t *testing.T) {
	var recovered any
	h := Recovery(testutil.NopLogger(), func(w http.ResponseWriter, _ *http.Request, err any) {
		recovered = err
		w.WriteHeader(http.StatusInternalServerError)
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "boom", recovered)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggingRecordsRouteAndLevel(t *testing.T) {
	logger, logs := testutil.CaptureLogger()

	r := mux.NewRouter()
	r.Use(Logging(logger))
	r.HandleFunc("/matches/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	req := httptest.NewRequest(http.MethodPost, "/matches/m-42", nil)
	req.Header.Set(RequestIDHeader, "req-9")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entry := logs.Find("http request")
	require.NotNil(t, entry)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "/matches/{id}", entry["route"])
	assert.Equal(t, "/matches/m-42", entry["path"])
	assert.Equal(t, "req-9", entry["request_id"])
	assert.EqualValues(t, http.StatusConflict, entry["status"])
}

func TestRecoveryLogsRequestID(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	h := Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		w.WriteHeader(http.StatusInternalServerError)
	})(Logging(testutil.NopLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entry := logs.Find("panic recovered")
	require.NotNil(t, entry)
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, "boom", entry["error"])
}
