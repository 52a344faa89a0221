package app

import (
	"context"
	"strings"

	"sessq-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

const defaultQuestionDuration = 30

// SessionService ties the registry, the quiz content repository, and the
// connection hub together into the session protocol: question dispatch,
// answer recording, reveal scoring, and end-of-session summaries.
type SessionService struct {
	registry *Registry
	quizzes  QuizRepository
	hub      *Hub
}

func NewSessionService(registry *Registry, quizzes QuizRepository, hub *Hub) *SessionService {
	return &SessionService{registry: registry, quizzes: quizzes, hub: hub}
}

// CreateSession starts a new session for quizID and returns its code. The
// quiz is snapshot into the session, so later edits do not affect a live run.
func (s *SessionService) CreateSession(ctx context.Context, quizID string) (string, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return "", err
	}
	session, err := s.registry.Create(quiz)
	if err != nil {
		return "", err
	}
	return session.Code(), nil
}

// Join registers a participant by name and returns the assigned identity.
func (s *SessionService) Join(ctx context.Context, code, name string) (domain.Participant, error) {
	return s.registry.Join(code, name)
}

// StartSession moves the session to ACTIVE; the host's channel attach
// triggers this.
func (s *SessionService) StartSession(code string) error {
	session, err := s.registry.Get(code)
	if err != nil {
		return err
	}
	return session.start()
}

// SessionStatus resolves a code and reports the session's lifecycle state.
func (s *SessionService) SessionStatus(code string) (domain.SessionStatus, error) {
	session, err := s.registry.Get(code)
	if err != nil {
		return "", err
	}
	return session.Status(), nil
}

// PushQuestion opens an answer window and broadcasts the question with the
// server-authoritative start time. Participants receive a redacted copy;
// the host's copy keeps the correct option it already owns.
func (s *SessionService) PushQuestion(ctx context.Context, code, questionID string, duration int) (domain.ActiveQuestionWindow, error) {
	session, err := s.registry.Get(code)
	if err != nil {
		return domain.ActiveQuestionWindow{}, err
	}
	if duration <= 0 {
		duration = defaultQuestionDuration
	}
	question, window, leaderboard, err := session.pushQuestion(questionID, duration)
	if err != nil {
		return domain.ActiveQuestionWindow{}, err
	}

	s.hub.Broadcast(session.Code(), AudienceHost, questionEvent(question, window, leaderboard))
	s.hub.Broadcast(session.Code(), AudienceParticipants, questionEvent(question.Redacted(), window, leaderboard))
	return window, nil
}

// SubmitAnswer records one answer for the active question and publishes
// the updated aggregates: answer_stats to the host, the roster of names
// that already answered to everyone.
func (s *SessionService) SubmitAnswer(ctx context.Context, participantID int64, questionID, option string) (domain.Answer, error) {
	session, err := s.registry.SessionOf(participantID)
	if err != nil {
		return domain.Answer{}, err
	}
	// Recording and fan-out stay in one critical section, so a later
	// aggregate can never reach the host before an earlier one.
	session.publishMu.Lock()
	defer session.publishMu.Unlock()

	answer, stats, answered, err := session.submitAnswer(participantID, questionID, option)
	if err != nil {
		return domain.Answer{}, err
	}

	s.hub.Broadcast(session.Code(), AudienceHost, Event{
		Type: "answer_stats",
		Data: map[string]any{
			"total_answers":   stats.TotalAnswers,
			"correct_answers": stats.CorrectAnswers,
		},
	})
	s.hub.Broadcast(session.Code(), AudienceAll, Event{
		Type: "send_waiting_on",
		Data: map[string]any{"players": answered},
	})
	return answer, nil
}

// RevealAnswer closes the window, scores it, and discloses the outcome.
// Participants get the full result; the host only needs the correct option
// echoed back.
func (s *SessionService) RevealAnswer(code string) (domain.RevealResult, error) {
	session, err := s.registry.Get(code)
	if err != nil {
		return domain.RevealResult{}, err
	}
	result, leaderboard, err := session.reveal()
	if err != nil {
		return domain.RevealResult{}, err
	}

	s.hub.Broadcast(session.Code(), AudienceParticipants, Event{
		Type: "reveal_answer",
		Data: map[string]any{
			"question_id":          result.QuestionID,
			"correct_option":       result.CorrectOption,
			"correct_participants": result.CorrectParticipants,
			"total_answers":        result.TotalAnswers,
			"correct_count":        result.CorrectCount,
			"leaderboard":          leaderboard,
		},
	})
	s.hub.Broadcast(session.Code(), AudienceHost, Event{
		Type: "reveal_answer",
		Data: map[string]any{
			"question_id":    result.QuestionID,
			"correct_option": result.CorrectOption,
		},
	})
	return result, nil
}

// EndSession makes the session terminal and tells every connection. Ending
// an already ended session is a silent no-op.
func (s *SessionService) EndSession(code, message string) error {
	session, endedNow, err := s.registry.End(code)
	if err != nil {
		return err
	}
	if !endedNow {
		return nil
	}
	if message == "" {
		message = "Session ended by host."
	}
	s.hub.Broadcast(session.Code(), AudienceAll, Event{
		Type: "session_ended",
		Data: map[string]any{"message": message},
	})
	return nil
}

// SubmitFeedback stores a post-session rating from a participant. A
// non-empty code must match the session the participant belongs to.
func (s *SessionService) SubmitFeedback(code string, participantID int64, rating int, comment string) (domain.Feedback, error) {
	session, err := s.registry.SessionOf(participantID)
	if err != nil {
		return domain.Feedback{}, err
	}
	if code != "" && !strings.EqualFold(code, session.Code()) {
		return domain.Feedback{}, domain.ErrParticipantNotFound
	}
	return session.addFeedback(participantID, rating, comment)
}

// HostSummary produces the end-of-session host view.
func (s *SessionService) HostSummary(code string) (domain.HostSummary, error) {
	session, err := s.registry.Get(code)
	if err != nil {
		return domain.HostSummary{}, err
	}
	return session.hostSummary()
}

// ParticipantSummary produces the end-of-session view for one participant.
func (s *SessionService) ParticipantSummary(code string, participantID int64) (domain.ParticipantSummary, error) {
	session, err := s.sessionForParticipant(code, participantID)
	if err != nil {
		return domain.ParticipantSummary{}, err
	}
	return session.participantSummary(participantID)
}

// Results returns the participant's final standing and the leaderboard.
func (s *SessionService) Results(code string, participantID int64) (domain.SessionResults, error) {
	session, err := s.sessionForParticipant(code, participantID)
	if err != nil {
		return domain.SessionResults{}, err
	}
	return session.results(participantID)
}

// Attach registers a live connection with the session's room.
func (s *SessionService) Attach(code string, role Role, c Client) error {
	session, err := s.registry.Get(code)
	if err != nil {
		return err
	}
	s.hub.Join(session.Code(), role, c)
	return nil
}

// Detach removes a live connection from the session's room.
func (s *SessionService) Detach(code string, c Client) {
	s.hub.Leave(code, c)
}

// sessionForParticipant resolves code and checks the participant belongs
// to that session, not merely to any session.
func (s *SessionService) sessionForParticipant(code string, participantID int64) (*Session, error) {
	session, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}
	owner, err := s.registry.SessionOf(participantID)
	if err != nil {
		return nil, err
	}
	if owner.Code() != session.Code() {
		return nil, domain.ErrParticipantNotFound
	}
	return session, nil
}

func questionEvent(question domain.Question, window domain.ActiveQuestionWindow, leaderboard []domain.Participant) Event {
	return Event{
		Type: "question_with_leaderboard",
		Data: map[string]any{
			"question":    question,
			"start_time":  window.StartTime,
			"duration":    window.Duration,
			"leaderboard": leaderboard,
		},
	}
}
