package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sessq-service/internal/auth"
)

type createSessionRequest struct {
	QuizID string `json:"quiz_id"`
}

type createSessionResponse struct {
	SessionCode string `json:"session_code"`
}

// CreateSession snapshots the quiz and opens a PENDING session under a
// fresh shareable code.
func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.QuizID == "" {
		badRequest(w, "quiz_id is required")
		return
	}
	quiz, err := a.quizzes.GetQuiz(r.Context(), auth.HostID(r.Context()), req.QuizID)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(quiz.Questions) == 0 {
		badRequest(w, "quiz has no questions")
		return
	}
	code, err := a.sessions.CreateSession(r.Context(), req.QuizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionCode: code})
}

type sessionStatusResponse struct {
	SessionCode string `json:"session_code"`
	Status      string `json:"status"`
}

func (a *API) SessionStatus(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	status, err := a.sessions.SessionStatus(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionStatusResponse{SessionCode: code, Status: string(status)})
}

type joinRequest struct {
	Name        string `json:"name"`
	SessionCode string `json:"session_code"`
}

type joinResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// JoinSession registers a participant by display name and hands back the
// identity used for answer submissions.
func (a *API) JoinSession(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || req.SessionCode == "" {
		badRequest(w, "name and session_code are required")
		return
	}
	participant, err := a.sessions.Join(r.Context(), req.SessionCode, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, joinResponse{ID: participant.ID, Name: participant.Name})
}

type answerRequest struct {
	Participant    int64  `json:"participant"`
	Question       string `json:"question"`
	SelectedOption string `json:"selected_option"`
}

func (a *API) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Participant == 0 || req.Question == "" || req.SelectedOption == "" {
		badRequest(w, "participant, question, and selected_option are required")
		return
	}
	answer, err := a.sessions.SubmitAnswer(r.Context(), req.Participant, req.Question, req.SelectedOption)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, answer)
}

type feedbackRequest struct {
	Participant int64  `json:"participant"`
	SessionCode string `json:"session_code"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comments"`
}

func (a *API) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Participant == 0 {
		badRequest(w, "participant is required")
		return
	}
	feedback, err := a.sessions.SubmitFeedback(req.SessionCode, req.Participant, req.Rating, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, feedback)
}

func (a *API) HostSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.sessions.HostSummary(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) ParticipantSummary(w http.ResponseWriter, r *http.Request) {
	participantID, ok := participantIDParam(w, r)
	if !ok {
		return
	}
	summary, err := a.sessions.ParticipantSummary(chi.URLParam(r, "code"), participantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) SessionResults(w http.ResponseWriter, r *http.Request) {
	participantID, ok := participantIDParam(w, r)
	if !ok {
		return
	}
	results, err := a.sessions.Results(chi.URLParam(r, "code"), participantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func participantIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("participant_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "participant_id query parameter is required")
		return 0, false
	}
	return id, true
}
