package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"sessq-service/internal/app"
	"sessq-service/internal/auth"
	"sessq-service/internal/domain"
)

// QuizStore is the authoring backend behind the collaborator REST surface.
// Every call is scoped to the acting host; stores report ErrQuizNotFound /
// ErrQuestionNotFound rather than leaking other hosts' content.
type QuizStore interface {
	CreateQuiz(ctx context.Context, hostID, title string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, hostID string) ([]domain.Quiz, error)
	GetQuiz(ctx context.Context, hostID, id string) (domain.Quiz, error)
	UpdateQuizTitle(ctx context.Context, hostID, id, title string) (domain.Quiz, error)
	DeleteQuiz(ctx context.Context, hostID, id string) error
	CreateQuestion(ctx context.Context, hostID string, question domain.Question) (domain.Question, error)
	UpdateQuestion(ctx context.Context, hostID string, question domain.Question) (domain.Question, error)
	DeleteQuestion(ctx context.Context, hostID, id string) error
	Questions(ctx context.Context, hostID, quizID string) ([]domain.Question, error)
}

// QuizCache lets write handlers drop stale cached quiz content.
type QuizCache interface {
	Invalidate(quizID string)
}

// API bundles the handlers of the REST surface.
type API struct {
	auth     *auth.Service
	quizzes  QuizStore
	cache    QuizCache
	sessions *app.SessionService
}

func NewAPI(authService *auth.Service, quizzes QuizStore, cache QuizCache, sessions *app.SessionService) *API {
	return &API{auth: authService, quizzes: quizzes, cache: cache, sessions: sessions}
}

// NewRouter wires the REST surface and the session websocket endpoint.
func NewRouter(api *API, ws *WSHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/token/", api.ObtainToken)
		r.Post("/token/refresh/", api.RefreshToken)

		r.Post("/join/", api.JoinSession)
		r.Post("/answers/", api.SubmitAnswer)
		r.Post("/feedback/", api.SubmitFeedback)

		r.Get("/sessions/{code}/", api.SessionStatus)
		r.Get("/sessions/{code}/participant-summary/", api.ParticipantSummary)
		r.Get("/sessions/{code}/results/", api.SessionResults)

		r.Group(func(r chi.Router) {
			r.Use(api.auth.Middleware)

			r.Post("/quizzes/", api.CreateQuiz)
			r.Get("/quizzes/", api.ListQuizzes)
			r.Get("/quizzes/{id}/", api.GetQuiz)
			r.Put("/quizzes/{id}/", api.UpdateQuiz)
			r.Patch("/quizzes/{id}/", api.UpdateQuiz)
			r.Delete("/quizzes/{id}/", api.DeleteQuiz)
			r.Get("/quizzes/{id}/questions/", api.ListQuestions)

			r.Post("/questions/", api.CreateQuestion)
			r.Put("/questions/{id}/", api.UpdateQuestion)
			r.Delete("/questions/{id}/", api.DeleteQuestion)

			r.Post("/sessions/", api.CreateSession)
			r.Get("/sessions/{code}/summary/", api.HostSummary)
		})
	})

	r.Get("/ws/session/{code}/", ws.ServeWS)

	return r
}
