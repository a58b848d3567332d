package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/KarpovAlexandrGo/task-api/internal/entity"
	"github.com/KarpovAlexandrGo/task-api/internal/schema"
	"github.com/KarpovAlexandrGo/task-api/pkg/logger"
)

const (
	msgInvalidData  = "Invalid data"
	msgInvalidBody  = "Invalid request body"
	msgNotFound     = "data not found"
	msgTaskExists   = "Task already exists"
	msgDatabase     = "Database error"
	msgInternal     = "Internal server error"
	msgTimeout      = "Request timed out"
	msgTaskDeleted  = "task successfully deleted"
	headerRequestID = "X-Request-ID"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string              `json:"error" example:"data not found"`
	Status  int                 `json:"status" example:"404"`
	Details map[string][]string `json:"details,omitempty"`
}

// MessageResponse confirms an operation that returns no resource.
type MessageResponse struct {
	Message string `json:"message" example:"task successfully deleted"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Log.WithError(err).Error("response_encoding_failed")
		}
	}
}

func respondWithError(w http.ResponseWriter, code int, message string, details map[string][]string) {
	respondWithJSON(w, code, ErrorResponse{Error: message, Status: code, Details: details})
}

// respondWithUseCaseError maps domain and validation errors to HTTP
// responses. Anything unrecognised is a storage failure.
func respondWithUseCaseError(w http.ResponseWriter, err error) {
	var (
		verr *schema.ValidationError
		qerr *schema.QueryError
	)
	switch {
	case errors.As(err, &verr):
		respondWithError(w, http.StatusBadRequest, msgInvalidData, verr.Fields)
	case errors.As(err, &qerr):
		respondWithError(w, http.StatusBadRequest, qerr.Message, qerr.Details())
	case errors.Is(err, schema.ErrMalformedBody):
		respondWithError(w, http.StatusBadRequest, msgInvalidBody, nil)
	case errors.Is(err, entity.ErrTaskNotFound):
		respondWithError(w, http.StatusNotFound, msgNotFound, nil)
	case errors.Is(err, entity.ErrTaskExists):
		respondWithError(w, http.StatusNotAcceptable, msgTaskExists, nil)
	default:
		respondWithError(w, http.StatusInternalServerError, msgDatabase, nil)
	}
}
