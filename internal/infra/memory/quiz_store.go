package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sessq-service/internal/domain"
	"github.com/google/uuid"
)

// QuizStore is an in-memory quiz-authoring store: hosts, quizzes, and
// questions. It doubles as a QuizLoader, so it can back the session cache
// directly when no Postgres is configured.
type QuizStore struct {
	mu        sync.RWMutex
	hosts     map[string]domain.Host     // by ID
	usernames map[string]string          // username -> host ID
	quizzes   map[string]domain.Quiz     // without questions
	questions map[string]domain.Question // by ID
}

func NewQuizStore() *QuizStore {
	return &QuizStore{
		hosts:     make(map[string]domain.Host),
		usernames: make(map[string]string),
		quizzes:   make(map[string]domain.Quiz),
		questions: make(map[string]domain.Question),
	}
}

func (s *QuizStore) CreateHost(_ context.Context, username, passwordHash string) (domain.Host, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	host := domain.Host{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.hosts[host.ID] = host
	s.usernames[username] = host.ID
	return host, nil
}

func (s *QuizStore) HostByUsername(_ context.Context, username string) (domain.Host, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernames[username]
	if !ok {
		return domain.Host{}, domain.ErrHostNotFound
	}
	return s.hosts[id], nil
}

func (s *QuizStore) CreateQuiz(_ context.Context, hostID, title string) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz := domain.Quiz{
		ID:        uuid.NewString(),
		HostID:    hostID,
		Title:     title,
		CreatedAt: time.Now(),
	}
	s.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (s *QuizStore) ListQuizzes(_ context.Context, hostID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quizzes := make([]domain.Quiz, 0)
	for _, quiz := range s.quizzes {
		if quiz.HostID != hostID {
			continue
		}
		quiz.Questions = s.questionsLocked(quiz.ID)
		quizzes = append(quizzes, quiz)
	}
	sort.Slice(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt.Before(quizzes[j].CreatedAt)
	})
	return quizzes, nil
}

func (s *QuizStore) GetQuiz(_ context.Context, hostID, id string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	if !ok || quiz.HostID != hostID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz.Questions = s.questionsLocked(id)
	return quiz, nil
}

func (s *QuizStore) UpdateQuizTitle(_ context.Context, hostID, id, title string) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[id]
	if !ok || quiz.HostID != hostID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz.Title = title
	s.quizzes[id] = quiz
	quiz.Questions = s.questionsLocked(id)
	return quiz, nil
}

func (s *QuizStore) DeleteQuiz(_ context.Context, hostID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[id]
	if !ok || quiz.HostID != hostID {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	for qid, question := range s.questions {
		if question.QuizID == id {
			delete(s.questions, qid)
		}
	}
	return nil
}

func (s *QuizStore) CreateQuestion(_ context.Context, hostID string, question domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[question.QuizID]
	if !ok || quiz.HostID != hostID {
		return domain.Question{}, domain.ErrQuizNotFound
	}
	question.ID = uuid.NewString()
	question.Position = len(s.questionsLocked(question.QuizID)) + 1
	question.CreatedAt = time.Now()
	s.questions[question.ID] = question
	return question, nil
}

func (s *QuizStore) UpdateQuestion(_ context.Context, hostID string, question domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.questions[question.ID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	quiz := s.quizzes[existing.QuizID]
	if quiz.HostID != hostID {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	question.QuizID = existing.QuizID
	question.Position = existing.Position
	question.CreatedAt = existing.CreatedAt
	s.questions[question.ID] = question
	return question, nil
}

func (s *QuizStore) DeleteQuestion(_ context.Context, hostID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	question, ok := s.questions[id]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	quiz := s.quizzes[question.QuizID]
	if quiz.HostID != hostID {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, id)
	return nil
}

func (s *QuizStore) Questions(_ context.Context, hostID, quizID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok || quiz.HostID != hostID {
		return nil, domain.ErrQuizNotFound
	}
	return s.questionsLocked(quizID), nil
}

// LoadQuiz implements QuizLoader for the session-side cache.
func (s *QuizStore) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz.Questions = s.questionsLocked(quizID)
	return quiz, nil
}

func (s *QuizStore) questionsLocked(quizID string) []domain.Question {
	questions := make([]domain.Question, 0)
	for _, question := range s.questions {
		if question.QuizID == quizID {
			questions = append(questions, question)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].Position < questions[j].Position
	})
	return questions
}
