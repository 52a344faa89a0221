package postgres

import (
	"context"
	"errors"
	"fmt"

	"sessq-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizStore persists hosts, quizzes, and questions in Postgres. It also
// implements QuizLoader for the session-side cache.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) CreateHost(ctx context.Context, username, passwordHash string) (domain.Host, error) {
	host := domain.Host{ID: uuid.NewString(), Username: username, PasswordHash: passwordHash}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO hosts (id, username, password_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		host.ID, host.Username, host.PasswordHash,
	).Scan(&host.CreatedAt)
	if err != nil {
		return domain.Host{}, fmt.Errorf("create host: %w", err)
	}
	return host, nil
}

func (s *QuizStore) HostByUsername(ctx context.Context, username string) (domain.Host, error) {
	var host domain.Host
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM hosts WHERE username=$1`,
		username,
	).Scan(&host.ID, &host.Username, &host.PasswordHash, &host.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Host{}, domain.ErrHostNotFound
	}
	if err != nil {
		return domain.Host{}, fmt.Errorf("host by username: %w", err)
	}
	return host, nil
}

func (s *QuizStore) CreateQuiz(ctx context.Context, hostID, title string) (domain.Quiz, error) {
	quiz := domain.Quiz{ID: uuid.NewString(), HostID: hostID, Title: title}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO quizzes (id, host_id, title) VALUES ($1, $2, $3) RETURNING created_at`,
		quiz.ID, quiz.HostID, quiz.Title,
	).Scan(&quiz.CreatedAt)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

func (s *QuizStore) ListQuizzes(ctx context.Context, hostID string) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, host_id, title, created_at FROM quizzes WHERE host_id=$1 ORDER BY created_at`,
		hostID,
	)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		var quiz domain.Quiz
		if err := rows.Scan(&quiz.ID, &quiz.HostID, &quiz.Title, &quiz.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range quizzes {
		questions, err := s.questions(ctx, quizzes[i].ID)
		if err != nil {
			return nil, err
		}
		quizzes[i].Questions = questions
	}
	return quizzes, nil
}

func (s *QuizStore) GetQuiz(ctx context.Context, hostID, id string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.pool.QueryRow(ctx,
		`SELECT id, host_id, title, created_at FROM quizzes WHERE id=$1 AND host_id=$2`,
		id, hostID,
	).Scan(&quiz.ID, &quiz.HostID, &quiz.Title, &quiz.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	quiz.Questions, err = s.questions(ctx, quiz.ID)
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *QuizStore) UpdateQuizTitle(ctx context.Context, hostID, id, title string) (domain.Quiz, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE quizzes SET title=$1 WHERE id=$2 AND host_id=$3`,
		title, id, hostID,
	)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.GetQuiz(ctx, hostID, id)
}

func (s *QuizStore) DeleteQuiz(ctx context.Context, hostID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id=$1 AND host_id=$2`, id, hostID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *QuizStore) CreateQuestion(ctx context.Context, hostID string, question domain.Question) (domain.Question, error) {
	if _, err := s.GetQuiz(ctx, hostID, question.QuizID); err != nil {
		return domain.Question{}, err
	}
	question.ID = uuid.NewString()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO questions (id, quiz_id, position, text, option_a, option_b, option_c, option_d, correct_option)
		 VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0)+1 FROM questions WHERE quiz_id=$2), $3, $4, $5, $6, $7, $8)
		 RETURNING position, created_at`,
		question.ID, question.QuizID, question.Text,
		question.OptionA, question.OptionB, question.OptionC, question.OptionD,
		question.CorrectOption,
	).Scan(&question.Position, &question.CreatedAt)
	if err != nil {
		return domain.Question{}, fmt.Errorf("create question: %w", err)
	}
	return question, nil
}

func (s *QuizStore) UpdateQuestion(ctx context.Context, hostID string, question domain.Question) (domain.Question, error) {
	err := s.pool.QueryRow(ctx,
		`UPDATE questions q SET text=$2, option_a=$3, option_b=$4, option_c=$5, option_d=$6, correct_option=$7
		 FROM quizzes z
		 WHERE q.id=$1 AND z.id=q.quiz_id AND z.host_id=$8
		 RETURNING q.quiz_id, q.position, q.created_at`,
		question.ID, question.Text,
		question.OptionA, question.OptionB, question.OptionC, question.OptionD,
		question.CorrectOption, hostID,
	).Scan(&question.QuizID, &question.Position, &question.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("update question: %w", err)
	}
	return question, nil
}

func (s *QuizStore) DeleteQuestion(ctx context.Context, hostID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM questions q USING quizzes z WHERE q.id=$1 AND z.id=q.quiz_id AND z.host_id=$2`,
		id, hostID,
	)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *QuizStore) Questions(ctx context.Context, hostID, quizID string) ([]domain.Question, error) {
	if _, err := s.GetQuiz(ctx, hostID, quizID); err != nil {
		return nil, err
	}
	return s.questions(ctx, quizID)
}

// LoadQuiz implements QuizLoader for the session-side cache.
func (s *QuizStore) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.pool.QueryRow(ctx,
		`SELECT id, host_id, title, created_at FROM quizzes WHERE id=$1`,
		quizID,
	).Scan(&quiz.ID, &quiz.HostID, &quiz.Title, &quiz.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz.Questions, err = s.questions(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *QuizStore) questions(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, position, text, option_a, option_b, option_c, option_d, correct_option, created_at
		 FROM questions WHERE quiz_id=$1 ORDER BY position`,
		quizID,
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Position, &q.Text,
			&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.CorrectOption, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
