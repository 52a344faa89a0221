package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"sessq-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// writeError maps domain errors onto HTTP statuses. Unknown errors are
// logged and reported as 500 without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrHostNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: err.Error()})
	case errors.Is(err, domain.ErrDuplicateAnswer),
		errors.Is(err, domain.ErrQuestionAlreadyActive),
		errors.Is(err, domain.ErrQuestionAlreadyPushed),
		errors.Is(err, domain.ErrSessionEnded):
		writeJSON(w, http.StatusConflict, errorResponse{Detail: err.Error()})
	case errors.Is(err, domain.ErrSessionNotActive),
		errors.Is(err, domain.ErrSessionNotEnded),
		errors.Is(err, domain.ErrQuestionNotActive),
		errors.Is(err, domain.ErrNoActiveQuestion),
		errors.Is(err, domain.ErrInvalidQuestion),
		errors.Is(err, domain.ErrInvalidOption),
		errors.Is(err, domain.ErrInvalidRating):
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal server error"})
	}
}

func badRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Detail: detail})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		badRequest(w, "invalid request body")
		return false
	}
	return true
}
