package app

import (
	"math"
	"sort"
	"sync"
	"time"

	"sessq-service/internal/domain"
)

// Session is the in-memory state of one live quiz run: roster, active
// question window, answer ledger, feedback. All mutation goes through the
// session mutex so concurrent submissions and window transitions serialize
// per session without contending with other sessions.
type Session struct {
	code      string
	quiz      domain.Quiz
	createdAt time.Time
	now       func() time.Time

	// publishMu spans an answer mutation plus its broadcasts, so stats
	// reach the host in capture order. Taken before mu, never inside it.
	publishMu sync.Mutex

	mu           sync.RWMutex
	status       domain.SessionStatus
	participants map[int64]*domain.Participant
	window       *questionWindow
	pushed       map[string]struct{}
	answers      map[answerKey]domain.Answer
	feedback     []domain.Feedback
}

type answerKey struct {
	participantID int64
	questionID    string
}

// questionWindow tracks the one question currently accepting answers,
// plus its running aggregates.
type questionWindow struct {
	question  domain.Question
	startTime float64
	duration  int
	stats     domain.AnswerStats
	answered  []string
}

func newSession(code string, quiz domain.Quiz) *Session {
	return newSessionWithClock(code, quiz, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(code string, quiz domain.Quiz, now func() time.Time) *Session {
	return &Session{
		code:         code,
		quiz:         quiz,
		createdAt:    now(),
		now:          now,
		status:       domain.StatusPending,
		participants: make(map[int64]*domain.Participant),
		pushed:       make(map[string]struct{}),
		answers:      make(map[answerKey]domain.Answer),
	}
}

// Code returns the shareable session code.
func (s *Session) Code() string { return s.code }

// QuizID returns the owning quiz reference.
func (s *Session) QuizID() string { return s.quiz.ID }

// Status returns the current lifecycle state.
func (s *Session) Status() domain.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Window returns the active question window, if one is open.
func (s *Session) Window() (domain.ActiveQuestionWindow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.window == nil {
		return domain.ActiveQuestionWindow{}, false
	}
	return domain.ActiveQuestionWindow{
		QuestionID: s.window.question.ID,
		StartTime:  s.window.startTime,
		Duration:   s.window.duration,
	}, true
}

// start moves the session from PENDING to ACTIVE. Starting an already
// active session is a no-op.
func (s *Session) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == domain.StatusEnded {
		return domain.ErrSessionEnded
	}
	s.status = domain.StatusActive
	return nil
}

func (s *Session) join(id int64, name string) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == domain.StatusEnded {
		return domain.Participant{}, domain.ErrSessionEnded
	}
	p := &domain.Participant{ID: id, Name: name, JoinedAt: s.now()}
	s.participants[id] = p
	return *p, nil
}

// pushQuestion opens a window for questionID. The question must belong to
// the session's quiz and must not have been pushed before; only one window
// may be open at a time.
func (s *Session) pushQuestion(questionID string, duration int) (domain.Question, domain.ActiveQuestionWindow, []domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case domain.StatusEnded:
		return domain.Question{}, domain.ActiveQuestionWindow{}, nil, domain.ErrSessionEnded
	case domain.StatusPending:
		return domain.Question{}, domain.ActiveQuestionWindow{}, nil, domain.ErrSessionNotActive
	}
	if s.window != nil {
		return domain.Question{}, domain.ActiveQuestionWindow{}, nil, domain.ErrQuestionAlreadyActive
	}
	question, ok := s.quiz.QuestionByID(questionID)
	if !ok {
		return domain.Question{}, domain.ActiveQuestionWindow{}, nil, domain.ErrInvalidQuestion
	}
	if _, done := s.pushed[questionID]; done {
		return domain.Question{}, domain.ActiveQuestionWindow{}, nil, domain.ErrQuestionAlreadyPushed
	}

	s.window = &questionWindow{
		question:  question,
		startTime: float64(s.now().UnixNano()) / float64(time.Second),
		duration:  duration,
	}
	s.pushed[questionID] = struct{}{}

	win := domain.ActiveQuestionWindow{
		QuestionID: question.ID,
		StartTime:  s.window.startTime,
		Duration:   duration,
	}
	return question, win, s.leaderboardLocked(), nil
}

// submitAnswer records one answer for the active question. The ledger map
// under the session mutex is the sole uniqueness guard: of N concurrent
// submissions for the same (participant, question) pair exactly one wins.
func (s *Session) submitAnswer(participantID int64, questionID, option string) (domain.Answer, domain.AnswerStats, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusEnded {
		return domain.Answer{}, domain.AnswerStats{}, nil, domain.ErrSessionEnded
	}
	participant, ok := s.participants[participantID]
	if !ok {
		return domain.Answer{}, domain.AnswerStats{}, nil, domain.ErrParticipantNotFound
	}
	if s.window == nil || s.window.question.ID != questionID {
		return domain.Answer{}, domain.AnswerStats{}, nil, domain.ErrQuestionNotActive
	}
	key := answerKey{participantID: participantID, questionID: questionID}
	if _, dup := s.answers[key]; dup {
		return domain.Answer{}, domain.AnswerStats{}, nil, domain.ErrDuplicateAnswer
	}
	if !s.window.question.HasOption(option) {
		return domain.Answer{}, domain.AnswerStats{}, nil, domain.ErrInvalidOption
	}

	answer := domain.Answer{
		ParticipantID:  participantID,
		QuestionID:     questionID,
		SelectedOption: option,
		Correct:        option == s.window.question.CorrectOption,
		SubmittedAt:    s.now(),
	}
	s.answers[key] = answer

	s.window.stats.TotalAnswers++
	if answer.Correct {
		s.window.stats.CorrectAnswers++
	}
	s.window.answered = append(s.window.answered, participant.Name)

	names := make([]string, len(s.window.answered))
	copy(names, s.window.answered)
	return answer, s.window.stats, names, nil
}

// reveal closes the window and awards one point to each participant that
// answered correctly. The window is cleared before scoring, so a second
// reveal finds no open window and cannot award twice.
func (s *Session) reveal() (domain.RevealResult, []domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.window == nil {
		return domain.RevealResult{}, nil, domain.ErrNoActiveQuestion
	}
	window := s.window
	s.window = nil

	result := domain.RevealResult{
		QuestionID:    window.question.ID,
		CorrectOption: window.question.CorrectOption,
		TotalAnswers:  window.stats.TotalAnswers,
		CorrectCount:  window.stats.CorrectAnswers,
	}
	for _, p := range s.participants {
		answer, ok := s.answers[answerKey{participantID: p.ID, questionID: window.question.ID}]
		if !ok || !answer.Correct {
			continue
		}
		p.Score++
		result.CorrectParticipants = append(result.CorrectParticipants, p.Name)
	}
	sort.Strings(result.CorrectParticipants)

	return result, s.leaderboardLocked(), nil
}

// end transitions the session to its terminal state and freezes the
// ledger. It reports whether the session was already ended.
func (s *Session) end() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == domain.StatusEnded {
		return true
	}
	s.status = domain.StatusEnded
	s.window = nil
	return false
}

func (s *Session) addFeedback(participantID int64, rating int, comment string) (domain.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusEnded {
		return domain.Feedback{}, domain.ErrSessionNotEnded
	}
	participant, ok := s.participants[participantID]
	if !ok {
		return domain.Feedback{}, domain.ErrParticipantNotFound
	}
	if rating < 1 || rating > 5 {
		return domain.Feedback{}, domain.ErrInvalidRating
	}
	fb := domain.Feedback{
		ParticipantID: participantID,
		Name:          participant.Name,
		Rating:        rating,
		Comment:       comment,
		SubmittedAt:   s.now(),
	}
	s.feedback = append(s.feedback, fb)
	return fb, nil
}

// Leaderboard returns participants ordered by score descending, ties
// broken by earliest join, then by ID.
func (s *Session) Leaderboard() []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaderboardLocked()
}

func (s *Session) leaderboardLocked() []domain.Participant {
	entries := make([]domain.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		entries = append(entries, *p)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].JoinedAt.Equal(entries[j].JoinedAt) {
			return entries[i].JoinedAt.Before(entries[j].JoinedAt)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}

func (s *Session) hostSummary() (domain.HostSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.status != domain.StatusEnded {
		return domain.HostSummary{}, domain.ErrSessionNotEnded
	}
	feedback := make([]domain.Feedback, len(s.feedback))
	copy(feedback, s.feedback)
	return domain.HostSummary{
		QuizTitle:    s.quiz.Title,
		SessionCode:  s.code,
		Participants: s.leaderboardLocked(),
		Feedback:     feedback,
	}, nil
}

func (s *Session) participantSummary(participantID int64) (domain.ParticipantSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participant, ok := s.participants[participantID]
	if !ok {
		return domain.ParticipantSummary{}, domain.ErrParticipantNotFound
	}
	summary := domain.ParticipantSummary{
		ParticipantID:  participant.ID,
		Name:           participant.Name,
		Score:          participant.Score,
		TotalQuestions: len(s.quiz.Questions),
	}
	for key, answer := range s.answers {
		if key.participantID != participantID {
			continue
		}
		summary.TotalAnswers++
		if answer.Correct {
			summary.CorrectAnswers++
		}
	}
	if summary.TotalAnswers > 0 {
		summary.Accuracy = int(math.Round(100 * float64(summary.CorrectAnswers) / float64(summary.TotalAnswers)))
	}
	return summary, nil
}

func (s *Session) results(participantID int64) (domain.SessionResults, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participant, ok := s.participants[participantID]
	if !ok {
		return domain.SessionResults{}, domain.ErrParticipantNotFound
	}
	leaderboard := s.leaderboardLocked()
	rank := 0
	for i, entry := range leaderboard {
		if entry.ID == participantID {
			rank = i + 1
			break
		}
	}
	return domain.SessionResults{
		SessionCode: s.code,
		Participant: *participant,
		Rank:        rank,
		Leaderboard: leaderboard,
	}, nil
}
