package domain

import "time"

// SessionStatus is the lifecycle state of a live quiz session.
type SessionStatus string

const (
	StatusPending SessionStatus = "PENDING"
	StatusActive  SessionStatus = "ACTIVE"
	StatusEnded   SessionStatus = "ENDED"
)

// Host is a quiz author who can run sessions.
type Host struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Question is a multiple-choice question. Options A and B are mandatory,
// C and D are optional. CorrectOption names one of the defined tags.
type Question struct {
	ID            string    `json:"id"`
	QuizID        string    `json:"quiz_id"`
	Text          string    `json:"text"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       *string   `json:"option_c"`
	OptionD       *string   `json:"option_d"`
	CorrectOption string    `json:"correct_option,omitempty"`
	Position      int       `json:"position"`
	CreatedAt     time.Time `json:"created_at"`
}

// OptionTags returns the tags this question defines, in A..D order.
func (q Question) OptionTags() []string {
	tags := []string{"A", "B"}
	if q.OptionC != nil {
		tags = append(tags, "C")
	}
	if q.OptionD != nil {
		tags = append(tags, "D")
	}
	return tags
}

// HasOption reports whether tag is one of the question's defined options.
func (q Question) HasOption(tag string) bool {
	switch tag {
	case "A", "B":
		return true
	case "C":
		return q.OptionC != nil
	case "D":
		return q.OptionD != nil
	}
	return false
}

// Redacted returns a copy safe to send to participants: the correct option
// is withheld until reveal.
func (q Question) Redacted() Question {
	q.CorrectOption = ""
	return q
}

// Quiz is an ordered collection of questions owned by a host.
type Quiz struct {
	ID        string     `json:"id"`
	HostID    string     `json:"host_id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"created_at"`
}

// QuestionByID finds a question in the quiz.
func (q Quiz) QuestionByID(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// Participant is a joined player, identified within one session.
type Participant struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

// Answer records one participant's accepted submission for a question.
// At most one Answer exists per (participant, question) pair.
type Answer struct {
	ParticipantID  int64     `json:"participant"`
	QuestionID     string    `json:"question"`
	SelectedOption string    `json:"selected_option"`
	Correct        bool      `json:"correct"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// ActiveQuestionWindow is the open interval during which exactly one
// question accepts answers. StartTime is server-authoritative epoch
// seconds; receivers derive their own countdown from it.
type ActiveQuestionWindow struct {
	QuestionID string  `json:"question_id"`
	StartTime  float64 `json:"start_time"`
	Duration   int     `json:"duration"`
}

// Feedback is a post-session rating from a participant.
type Feedback struct {
	ParticipantID int64     `json:"participant"`
	Name          string    `json:"name"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comments"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// AnswerStats is the session-wide running aggregate for the active window.
type AnswerStats struct {
	TotalAnswers   int `json:"total_answers"`
	CorrectAnswers int `json:"correct_answers"`
}

// RevealResult is the outcome of closing a question window.
type RevealResult struct {
	QuestionID          string   `json:"question_id"`
	CorrectOption       string   `json:"correct_option"`
	CorrectParticipants []string `json:"correct_participants"`
	TotalAnswers        int      `json:"total_answers"`
	CorrectCount        int      `json:"correct_count"`
}

// HostSummary is the end-of-session view for the host.
type HostSummary struct {
	QuizTitle    string        `json:"quiz_title"`
	SessionCode  string        `json:"session_code"`
	Participants []Participant `json:"participants"`
	Feedback     []Feedback    `json:"feedback"`
}

// ParticipantSummary is the end-of-session view for one participant.
// Accuracy is round(100 * correct / submitted), defined as 0 when nothing
// was submitted. The result page reads the display name from the
// "participant" key.
type ParticipantSummary struct {
	ParticipantID  int64  `json:"participant_id"`
	Name           string `json:"participant"`
	Score          int    `json:"score"`
	Accuracy       int    `json:"accuracy"`
	TotalQuestions int    `json:"total_questions"`
	TotalAnswers   int    `json:"total_answers"`
	CorrectAnswers int    `json:"correct_answers"`
}

// SessionResults is the final standing shown on the participant result page.
type SessionResults struct {
	SessionCode string        `json:"session_code"`
	Participant Participant   `json:"participant"`
	Rank        int           `json:"rank"`
	Leaderboard []Participant `json:"leaderboard"`
}
