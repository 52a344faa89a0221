package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sessq-service/internal/app"
	"sessq-service/internal/auth"
	"sessq-service/internal/domain"
	"sessq-service/internal/infra/memory"
)

type testEnv struct {
	server   *httptest.Server
	store    *memory.QuizStore
	sessions *app.SessionService
	access   string
	quiz     domain.Quiz
}

// startAndPush drives the session live and opens a question window, the
// way a host socket would.
func (e *testEnv) startAndPush(t *testing.T, code, questionID string) {
	t.Helper()
	if err := e.sessions.StartSession(code); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := e.sessions.PushQuestion(context.Background(), code, questionID, 30); err != nil {
		t.Fatalf("push question: %v", err)
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.NewQuizStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	host, err := store.CreateHost(ctx, "teacher", string(hash))
	if err != nil {
		t.Fatalf("create host: %v", err)
	}
	quiz, err := store.CreateQuiz(ctx, host.ID, "Arithmetic")
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if _, err := store.CreateQuestion(ctx, host.ID, domain.Question{
		QuizID: quiz.ID, Text: "What is 2 + 2?", OptionA: "22", OptionB: "4", CorrectOption: "B",
	}); err != nil {
		t.Fatalf("create question: %v", err)
	}
	quiz, err = store.GetQuiz(ctx, host.ID, quiz.ID)
	if err != nil {
		t.Fatalf("reload quiz: %v", err)
	}

	authService := auth.NewService(store, memory.NewTokenStore(), "test-secret", time.Minute, time.Hour)
	cache := memory.NewQuizRepository(store, time.Minute)
	registry := app.NewRegistry(memory.NewSessionStore(), 6)
	sessions := app.NewSessionService(registry, cache, app.NewHub())

	api := NewAPI(authService, store, cache, sessions)
	router := NewRouter(api, NewWSHandler(sessions, authService))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	tokens, err := authService.Login(ctx, "teacher", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	return &testEnv{server: server, store: store, sessions: sessions, access: tokens.Access, quiz: quiz}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, authed bool, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.access)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

func TestTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)

	var tokens auth.Tokens
	resp := env.do(t, http.MethodPost, "/api/token/", map[string]string{"username": "teacher", "password": "pw"}, false, &tokens)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if tokens.Access == "" || tokens.Refresh == "" {
		t.Fatalf("expected token pair, got %+v", tokens)
	}

	resp = env.do(t, http.MethodPost, "/api/token/", map[string]string{"username": "teacher", "password": "nope"}, false, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", resp.StatusCode)
	}

	var rotated auth.Tokens
	resp = env.do(t, http.MethodPost, "/api/token/refresh/", map[string]string{"refresh": tokens.Refresh}, false, &rotated)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on refresh, got %d", resp.StatusCode)
	}
	if rotated.Refresh == tokens.Refresh {
		t.Fatalf("refresh token not rotated")
	}
}

func TestQuizCRUDRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/quizzes/", nil, false, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	var created domain.Quiz
	resp = env.do(t, http.MethodPost, "/api/quizzes/", map[string]string{"title": "Geography"}, true, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var question domain.Question
	resp = env.do(t, http.MethodPost, "/api/questions/", map[string]any{
		"quiz": created.ID, "text": "Capital of France?", "option_a": "Paris", "option_b": "Lyon", "correct_option": "A",
	}, true, &question)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if question.Position != 1 {
		t.Fatalf("expected position 1, got %d", question.Position)
	}

	// correct_option must name a defined option.
	resp = env.do(t, http.MethodPost, "/api/questions/", map[string]any{
		"quiz": created.ID, "text": "Broken", "option_a": "x", "option_b": "y", "correct_option": "D",
	}, true, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for undefined correct option, got %d", resp.StatusCode)
	}

	var questions []domain.Question
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/quizzes/%s/questions/", created.ID), nil, true, &questions)
	if resp.StatusCode != http.StatusOK || len(questions) != 1 {
		t.Fatalf("expected one question, got status %d, %d questions", resp.StatusCode, len(questions))
	}

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/quizzes/%s/", created.ID), nil, true, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/quizzes/%s/", created.ID), nil, true, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestSessionRESTFlow(t *testing.T) {
	env := newTestEnv(t)

	var created createSessionResponse
	resp := env.do(t, http.MethodPost, "/api/sessions/", map[string]string{"quiz_id": env.quiz.ID}, true, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if len(created.SessionCode) != 6 {
		t.Fatalf("unexpected session code %q", created.SessionCode)
	}

	var status sessionStatusResponse
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/sessions/%s/", created.SessionCode), nil, false, &status)
	if resp.StatusCode != http.StatusOK || status.Status != string(domain.StatusPending) {
		t.Fatalf("expected PENDING, got status %d %+v", resp.StatusCode, status)
	}

	var joined joinResponse
	resp = env.do(t, http.MethodPost, "/api/join/", map[string]string{"name": "Alice", "session_code": created.SessionCode}, false, &joined)
	if resp.StatusCode != http.StatusCreated || joined.ID == 0 {
		t.Fatalf("join failed: status %d %+v", resp.StatusCode, joined)
	}

	resp = env.do(t, http.MethodPost, "/api/join/", map[string]string{"name": "Bob", "session_code": "NOSUCH"}, false, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown code, got %d", resp.StatusCode)
	}

	// No question is open yet.
	resp = env.do(t, http.MethodPost, "/api/answers/", map[string]any{
		"participant": joined.ID, "question": env.quiz.Questions[0].ID, "selected_option": "B",
	}, false, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 with no open window, got %d", resp.StatusCode)
	}

	// Summary before the session ends is a 400.
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/sessions/%s/summary/", created.SessionCode), nil, true, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 before end, got %d", resp.StatusCode)
	}
}

func TestDuplicateAnswerConflict(t *testing.T) {
	env := newTestEnv(t)

	var created createSessionResponse
	env.do(t, http.MethodPost, "/api/sessions/", map[string]string{"quiz_id": env.quiz.ID}, true, &created)

	var joined joinResponse
	env.do(t, http.MethodPost, "/api/join/", map[string]string{"name": "Alice", "session_code": created.SessionCode}, false, &joined)

	// Drive the session through the service to open a window.
	// The REST surface has no push endpoint; hosts push over the socket.
	env.startAndPush(t, created.SessionCode, env.quiz.Questions[0].ID)

	body := map[string]any{"participant": joined.ID, "question": env.quiz.Questions[0].ID, "selected_option": "B"}
	var answer domain.Answer
	resp := env.do(t, http.MethodPost, "/api/answers/", body, false, &answer)
	if resp.StatusCode != http.StatusCreated || !answer.Correct {
		t.Fatalf("expected accepted correct answer, got %d %+v", resp.StatusCode, answer)
	}

	resp = env.do(t, http.MethodPost, "/api/answers/", body, false, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", resp.StatusCode)
	}
}

func TestCreateSessionGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var empty domain.Quiz
	resp := env.do(t, http.MethodPost, "/api/quizzes/", map[string]string{"title": "Draft"}, true, &empty)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create quiz: %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodPost, "/api/sessions/", map[string]string{"quiz_id": empty.ID}, true, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for quiz without questions, got %d", resp.StatusCode)
	}

	other, err := env.store.CreateHost(ctx, "rival", "x")
	if err != nil {
		t.Fatalf("create host: %v", err)
	}
	foreign, err := env.store.CreateQuiz(ctx, other.ID, "Not yours")
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	resp = env.do(t, http.MethodPost, "/api/sessions/", map[string]string{"quiz_id": foreign.ID}, true, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for another host's quiz, got %d", resp.StatusCode)
	}
}

func TestFeedbackSessionCodeMismatch(t *testing.T) {
	env := newTestEnv(t)

	var created createSessionResponse
	env.do(t, http.MethodPost, "/api/sessions/", map[string]string{"quiz_id": env.quiz.ID}, true, &created)

	var joined joinResponse
	env.do(t, http.MethodPost, "/api/join/", map[string]string{"name": "Alice", "session_code": created.SessionCode}, false, &joined)

	if err := env.sessions.StartSession(created.SessionCode); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if err := env.sessions.EndSession(created.SessionCode, "done"); err != nil {
		t.Fatalf("end session: %v", err)
	}

	resp := env.do(t, http.MethodPost, "/api/feedback/", map[string]any{
		"participant": joined.ID, "session_code": "WRONGC", "rating": 4,
	}, false, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for mismatched code, got %d", resp.StatusCode)
	}

	var feedback domain.Feedback
	resp = env.do(t, http.MethodPost, "/api/feedback/", map[string]any{
		"participant": joined.ID, "session_code": created.SessionCode, "rating": 4, "comments": "nice pace",
	}, false, &feedback)
	if resp.StatusCode != http.StatusCreated || feedback.Rating != 4 || feedback.Comment != "nice pace" {
		t.Fatalf("expected accepted feedback, got %d %+v", resp.StatusCode, feedback)
	}

	// The summary page reads the text back under the same key.
	var summary map[string]any
	resp = env.do(t, http.MethodGet, "/api/sessions/"+created.SessionCode+"/summary/", nil, true, &summary)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary: %d", resp.StatusCode)
	}
	entries, ok := summary["feedback"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("unexpected feedback list %+v", summary["feedback"])
	}
	if entry := entries[0].(map[string]any); entry["comments"] != "nice pace" {
		t.Fatalf("expected comments key on feedback entry, got %+v", entry)
	}
}

func TestParticipantSummaryWireShape(t *testing.T) {
	env := newTestEnv(t)

	var created createSessionResponse
	env.do(t, http.MethodPost, "/api/sessions/", map[string]string{"quiz_id": env.quiz.ID}, true, &created)

	var joined joinResponse
	env.do(t, http.MethodPost, "/api/join/", map[string]string{"name": "Alice", "session_code": created.SessionCode}, false, &joined)

	env.startAndPush(t, created.SessionCode, env.quiz.Questions[0].ID)
	env.do(t, http.MethodPost, "/api/answers/", map[string]any{
		"participant": joined.ID, "question": env.quiz.Questions[0].ID, "selected_option": "B",
	}, false, nil)
	if _, err := env.sessions.RevealAnswer(created.SessionCode); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if err := env.sessions.EndSession(created.SessionCode, "done"); err != nil {
		t.Fatalf("end session: %v", err)
	}

	// The result page reads the display name from the participant key.
	var summary map[string]any
	resp := env.do(t, http.MethodGet,
		fmt.Sprintf("/api/sessions/%s/participant-summary/?participant_id=%d", created.SessionCode, joined.ID),
		nil, false, &summary)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("participant summary: %d", resp.StatusCode)
	}
	if summary["participant"] != "Alice" {
		t.Fatalf("expected participant key with display name, got %+v", summary)
	}
	if summary["participant_id"] != float64(joined.ID) {
		t.Fatalf("expected participant_id %d, got %+v", joined.ID, summary)
	}
	if summary["score"] != float64(1) {
		t.Fatalf("expected score 1, got %+v", summary)
	}
}
