package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sessq-service/internal/auth"
	"sessq-service/internal/domain"
)

type quizRequest struct {
	Title string `json:"title"`
}

func (a *API) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		badRequest(w, "title is required")
		return
	}
	quiz, err := a.quizzes.CreateQuiz(r.Context(), auth.HostID(r.Context()), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (a *API) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := a.quizzes.ListQuizzes(r.Context(), auth.HostID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (a *API) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.quizzes.GetQuiz(r.Context(), auth.HostID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (a *API) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		badRequest(w, "title is required")
		return
	}
	id := chi.URLParam(r, "id")
	quiz, err := a.quizzes.UpdateQuizTitle(r.Context(), auth.HostID(r.Context()), id, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	a.cache.Invalidate(id)
	writeJSON(w, http.StatusOK, quiz)
}

func (a *API) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.quizzes.DeleteQuiz(r.Context(), auth.HostID(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	a.cache.Invalidate(id)
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) ListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := a.quizzes.Questions(r.Context(), auth.HostID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

type questionRequest struct {
	Quiz          string  `json:"quiz"`
	Text          string  `json:"text"`
	OptionA       string  `json:"option_a"`
	OptionB       string  `json:"option_b"`
	OptionC       *string `json:"option_c"`
	OptionD       *string `json:"option_d"`
	CorrectOption string  `json:"correct_option"`
}

// question validates the payload and builds the domain question. The
// correct option must name one of the options the question defines.
func (req questionRequest) question() (domain.Question, string) {
	if req.Text == "" {
		return domain.Question{}, "text is required"
	}
	if req.OptionA == "" || req.OptionB == "" {
		return domain.Question{}, "option_a and option_b are required"
	}
	if req.OptionD != nil && req.OptionC == nil {
		return domain.Question{}, "option_d requires option_c"
	}
	q := domain.Question{
		QuizID:        req.Quiz,
		Text:          req.Text,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		CorrectOption: req.CorrectOption,
	}
	if !q.HasOption(req.CorrectOption) {
		return domain.Question{}, "correct_option must name a defined option"
	}
	return q, ""
}

func (a *API) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quiz == "" {
		badRequest(w, "quiz is required")
		return
	}
	question, problem := req.question()
	if problem != "" {
		badRequest(w, problem)
		return
	}
	created, err := a.quizzes.CreateQuestion(r.Context(), auth.HostID(r.Context()), question)
	if err != nil {
		writeError(w, err)
		return
	}
	a.cache.Invalidate(created.QuizID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	question, problem := req.question()
	if problem != "" {
		badRequest(w, problem)
		return
	}
	question.ID = chi.URLParam(r, "id")
	updated, err := a.quizzes.UpdateQuestion(r.Context(), auth.HostID(r.Context()), question)
	if err != nil {
		writeError(w, err)
		return
	}
	a.cache.Invalidate(updated.QuizID)
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := a.quizzes.DeleteQuestion(r.Context(), auth.HostID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
