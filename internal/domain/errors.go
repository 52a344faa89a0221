package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for a code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionEnded is returned when mutating a session that reached its terminal state.
	ErrSessionEnded = errors.New("session has ended")
	// ErrSessionNotActive is returned when dispatching to a session that has not started.
	ErrSessionNotActive = errors.New("session is not active")
	// ErrSessionNotEnded is returned when reading a summary or posting feedback before session end.
	ErrSessionNotEnded = errors.New("session has not ended")
	// ErrParticipantNotFound is returned when a participant ID is unknown.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a question ID is unknown.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidQuestion is returned when pushing a question that does not belong to the session's quiz.
	ErrInvalidQuestion = errors.New("question does not belong to this session")
	// ErrQuestionAlreadyActive is returned when pushing while a window is open.
	ErrQuestionAlreadyActive = errors.New("a question is already active")
	// ErrQuestionAlreadyPushed is returned when re-pushing a question in the same session.
	ErrQuestionAlreadyPushed = errors.New("question was already pushed in this session")
	// ErrQuestionNotActive is returned when answering a question with no open window.
	ErrQuestionNotActive = errors.New("question is not active")
	// ErrNoActiveQuestion is returned when revealing with no open window.
	ErrNoActiveQuestion = errors.New("no active question to reveal")
	// ErrDuplicateAnswer is returned when a participant answers the same question twice.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")
	// ErrInvalidOption is returned when the selected option is not defined by the question.
	ErrInvalidOption = errors.New("selected option is not defined for this question")
	// ErrInvalidRating is returned when feedback rating is outside 1-5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrHostNotFound is returned when host credentials reference an unknown username.
	ErrHostNotFound = errors.New("host not found")
	// ErrInvalidCredentials is returned on a failed login or token check.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
