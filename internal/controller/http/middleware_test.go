package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_PanicIsLoggedAndRecovered(t *testing.T) {
	logs := captureLogs(t)
	s := &testServer{logs: logs}

	r := chi.NewRouter()
	r.Use(RequestContext, Recoverer)
	r.With(Action("explode")).Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error","status":500}`, rec.Body.String())

	events := s.events(t)
	names := s.eventNames(t)
	assert.Equal(t, []string{"request_started", "explode_started", "explode_failed", "unhandled_panic", "request_completed"}, names)

	failed := events[2]
	assert.Equal(t, "ERROR", failed["level"])
	assert.Equal(t, "string", failed["error_type"])
	assert.Equal(t, "kaboom", failed["error_message"])
	assert.Equal(t, float64(http.StatusInternalServerError), events[4]["status_code"])
}

func TestAction_Completed(t *testing.T) {
	logs := captureLogs(t)
	s := &testServer{logs: logs}

	h := Action("noop")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	events := s.events(t)
	require.Len(t, events, 2)
	assert.Equal(t, "noop_completed", events[1]["event"])
	assert.Equal(t, true, events[1]["success"])
	assert.Nil(t, events[1]["request_id"])
}

func TestTimeout_RespondsWithJSON(t *testing.T) {
	logs := captureLogs(t)
	s := &testServer{logs: logs}

	h := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Request timed out","status":504}`, rec.Body.String())
	assert.Equal(t, []string{"request_timed_out"}, s.eventNames(t))
}

func TestTimeout_KeepsWrittenResponse(t *testing.T) {
	h := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		respondWithError(w, http.StatusInternalServerError, msgDatabase, nil)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Database error","status":500}`, rec.Body.String())
}

func TestTimeout_FastHandlerUntouched(t *testing.T) {
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
