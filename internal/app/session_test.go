package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"sessq-service/internal/domain"
)

func sampleQuiz() domain.Quiz {
	three := "3"
	five := "5"
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Arithmetic",
		Questions: []domain.Question{
			{ID: "q1", QuizID: "quiz-1", Text: "What is 2 + 2?", OptionA: "22", OptionB: "4", OptionC: &three, OptionD: &five, CorrectOption: "B", Position: 1},
			{ID: "q2", QuizID: "quiz-1", Text: "What is 3 * 3?", OptionA: "9", OptionB: "6", CorrectOption: "A", Position: 2},
		},
	}
}

func activeSession(t *testing.T) *Session {
	t.Helper()
	session := newSession("ABC234", sampleQuiz())
	if err := session.start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return session
}

func TestSessionLifecycle(t *testing.T) {
	session := newSession("ABC234", sampleQuiz())
	if got := session.Status(); got != domain.StatusPending {
		t.Fatalf("expected PENDING, got %s", got)
	}

	if err := session.start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := session.Status(); got != domain.StatusActive {
		t.Fatalf("expected ACTIVE, got %s", got)
	}

	// Starting again is a no-op.
	if err := session.start(); err != nil {
		t.Fatalf("restart: %v", err)
	}

	if already := session.end(); already {
		t.Fatalf("expected first end to report not already ended")
	}
	if already := session.end(); !already {
		t.Fatalf("expected second end to report already ended")
	}
	if err := session.start(); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded after end, got %v", err)
	}
}

func TestPushQuestionGuards(t *testing.T) {
	session := newSession("ABC234", sampleQuiz())

	if _, _, _, err := session.pushQuestion("q1", 30); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive before start, got %v", err)
	}

	if err := session.start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, _, err := session.pushQuestion("missing", 30); !errors.Is(err, domain.ErrInvalidQuestion) {
		t.Fatalf("expected ErrInvalidQuestion, got %v", err)
	}

	question, window, _, err := session.pushQuestion("q1", 30)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if question.CorrectOption != "B" {
		t.Fatalf("expected host copy to keep correct option, got %q", question.CorrectOption)
	}
	if window.Duration != 30 || window.StartTime <= 0 {
		t.Fatalf("unexpected window %+v", window)
	}

	if _, _, _, err := session.pushQuestion("q2", 30); !errors.Is(err, domain.ErrQuestionAlreadyActive) {
		t.Fatalf("expected ErrQuestionAlreadyActive, got %v", err)
	}

	if _, _, err := session.reveal(); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if _, _, _, err := session.pushQuestion("q1", 30); !errors.Is(err, domain.ErrQuestionAlreadyPushed) {
		t.Fatalf("expected ErrQuestionAlreadyPushed on re-push, got %v", err)
	}

	session.end()
	if _, _, _, err := session.pushQuestion("q2", 30); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	session := activeSession(t)
	if _, err := session.join(1, "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, _, _, err := session.submitAnswer(1, "q1", "B"); !errors.Is(err, domain.ErrQuestionNotActive) {
		t.Fatalf("expected ErrQuestionNotActive before push, got %v", err)
	}

	if _, _, _, err := session.pushQuestion("q1", 30); err != nil {
		t.Fatalf("push: %v", err)
	}

	if _, _, _, err := session.submitAnswer(99, "q1", "B"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
	if _, _, _, err := session.submitAnswer(1, "q2", "A"); !errors.Is(err, domain.ErrQuestionNotActive) {
		t.Fatalf("expected ErrQuestionNotActive for wrong question, got %v", err)
	}
	if _, _, _, err := session.submitAnswer(1, "q1", "E"); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}

	answer, stats, answered, err := session.submitAnswer(1, "q1", "B")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !answer.Correct {
		t.Fatalf("expected B to be correct")
	}
	if stats.TotalAnswers != 1 || stats.CorrectAnswers != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(answered) != 1 || answered[0] != "Alice" {
		t.Fatalf("unexpected answered roster %v", answered)
	}

	if _, _, _, err := session.submitAnswer(1, "q1", "A"); !errors.Is(err, domain.ErrDuplicateAnswer) {
		t.Fatalf("expected ErrDuplicateAnswer, got %v", err)
	}
}

func TestSubmitAnswerOptionalOptionMissing(t *testing.T) {
	session := activeSession(t)
	if _, err := session.join(1, "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	// q2 defines only A and B.
	if _, _, _, err := session.pushQuestion("q2", 30); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, _, _, err := session.submitAnswer(1, "q2", "D"); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption for undefined D, got %v", err)
	}
}

func TestRevealScoresOnceAndSorts(t *testing.T) {
	session := activeSession(t)
	for i, name := range []string{"Carol", "Alice", "Bob"} {
		if _, err := session.join(int64(i+1), name); err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
	}
	if _, _, _, err := session.pushQuestion("q1", 30); err != nil {
		t.Fatalf("push: %v", err)
	}
	for id, option := range map[int64]string{1: "B", 2: "B", 3: "A"} {
		if _, _, _, err := session.submitAnswer(id, "q1", option); err != nil {
			t.Fatalf("submit %d: %v", id, err)
		}
	}

	result, leaderboard, err := session.reveal()
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if result.CorrectOption != "B" || result.TotalAnswers != 3 || result.CorrectCount != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.CorrectParticipants) != 2 || result.CorrectParticipants[0] != "Alice" || result.CorrectParticipants[1] != "Carol" {
		t.Fatalf("expected sorted correct names, got %v", result.CorrectParticipants)
	}
	if leaderboard[0].Score != 1 || leaderboard[2].Score != 0 {
		t.Fatalf("unexpected leaderboard %+v", leaderboard)
	}

	// Second reveal finds no open window and cannot award twice.
	if _, _, err := session.reveal(); !errors.Is(err, domain.ErrNoActiveQuestion) {
		t.Fatalf("expected ErrNoActiveQuestion, got %v", err)
	}
	for _, p := range session.Leaderboard() {
		if p.Score > 1 {
			t.Fatalf("participant %s scored twice: %d", p.Name, p.Score)
		}
	}
}

func TestConcurrentDuplicateSubmissions(t *testing.T) {
	session := activeSession(t)
	if _, err := session.join(1, "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, _, _, err := session.pushQuestion("q1", 30); err != nil {
		t.Fatalf("push: %v", err)
	}

	const n = 32
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _, err := session.submitAnswer(1, "q1", "B")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for err := range results {
		if err == nil {
			accepted++
		} else if !errors.Is(err, domain.ErrDuplicateAnswer) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted submission, got %d", accepted)
	}
}

func TestLeaderboardTieBreak(t *testing.T) {
	base := time.Date(2025, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := base
	session := newSessionWithClock("ABC234", sampleQuiz(), func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	if err := session.start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i, name := range []string{"Alice", "Bob", "Carol"} {
		if _, err := session.join(int64(i+1), name); err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
	}

	leaderboard := session.Leaderboard()
	// All scores zero: earliest join wins.
	if leaderboard[0].Name != "Alice" || leaderboard[1].Name != "Bob" || leaderboard[2].Name != "Carol" {
		t.Fatalf("unexpected tie-break order %+v", leaderboard)
	}
}

func TestFeedbackRequiresEndedSession(t *testing.T) {
	session := activeSession(t)
	if _, err := session.join(1, "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := session.addFeedback(1, 5, "great"); !errors.Is(err, domain.ErrSessionNotEnded) {
		t.Fatalf("expected ErrSessionNotEnded, got %v", err)
	}

	session.end()
	if _, err := session.addFeedback(1, 0, ""); !errors.Is(err, domain.ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating for 0, got %v", err)
	}
	if _, err := session.addFeedback(1, 6, ""); !errors.Is(err, domain.ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating for 6, got %v", err)
	}
	fb, err := session.addFeedback(1, 4, "fun quiz")
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if fb.Name != "Alice" || fb.Rating != 4 {
		t.Fatalf("unexpected feedback %+v", fb)
	}
}

func TestSummaries(t *testing.T) {
	session := activeSession(t)
	for i, name := range []string{"Alice", "Bob"} {
		if _, err := session.join(int64(i+1), name); err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
	}
	if _, _, _, err := session.pushQuestion("q1", 30); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, _, _, err := session.submitAnswer(1, "q1", "B"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := session.reveal(); err != nil {
		t.Fatalf("reveal: %v", err)
	}

	if _, err := session.hostSummary(); !errors.Is(err, domain.ErrSessionNotEnded) {
		t.Fatalf("expected ErrSessionNotEnded before end, got %v", err)
	}
	session.end()

	summary, err := session.hostSummary()
	if err != nil {
		t.Fatalf("host summary: %v", err)
	}
	if summary.QuizTitle != "Arithmetic" || len(summary.Participants) != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Participants[0].Name != "Alice" {
		t.Fatalf("expected Alice on top, got %s", summary.Participants[0].Name)
	}

	ps, err := session.participantSummary(1)
	if err != nil {
		t.Fatalf("participant summary: %v", err)
	}
	if ps.Score != 1 || ps.Accuracy != 100 || ps.TotalQuestions != 2 || ps.TotalAnswers != 1 {
		t.Fatalf("unexpected participant summary %+v", ps)
	}

	// Bob never answered: accuracy defined as zero.
	ps, err = session.participantSummary(2)
	if err != nil {
		t.Fatalf("participant summary: %v", err)
	}
	if ps.Accuracy != 0 || ps.TotalAnswers != 0 {
		t.Fatalf("expected zero accuracy with no submissions, got %+v", ps)
	}

	results, err := session.results(2)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.Rank != 2 || len(results.Leaderboard) != 2 {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestSubmitAfterEndRejected(t *testing.T) {
	session := activeSession(t)
	if _, err := session.join(1, "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, _, _, err := session.pushQuestion("q1", 30); err != nil {
		t.Fatalf("push: %v", err)
	}
	session.end()
	if _, _, _, err := session.submitAnswer(1, "q1", "B"); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
	if _, err := session.join(2, "Bob"); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded on late join, got %v", err)
	}
}
