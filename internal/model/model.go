package model

import "time"

// Role represents a conversation turn role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Label returns the capitalized role name used in prompt transcripts.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// SessionStatus represents the status of a tutoring session.
type SessionStatus string

const (
	StatusActive SessionStatus = "active"
	StatusClosed SessionStatus = "closed"
)

// Difficulty levels. Only the session default is enforced; other values pass through.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Turn is a single message in a session's conversation history.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a tutoring session owned by a user.
type Session struct {
	ID                 string        `json:"session_id"`
	UserID             string        `json:"user_id"`
	Topic              string        `json:"topic"`
	History            []Turn        `json:"conversation_history"`
	LearningObjectives []string      `json:"learning_objectives"`
	ConceptsCovered    []string      `json:"concepts_covered"`
	DifficultyLevel    string        `json:"difficulty_level"`
	CreatedAt          time.Time     `json:"created_at"`
	Status             SessionStatus `json:"status"`
}

// Profile aggregates a user's sessions. Progress, strengths and weaknesses
// are carried but not populated yet.
type Profile struct {
	UserID           string             `json:"user_id"`
	SessionIDs       []string           `json:"sessions"`
	LearningProgress map[string]float64 `json:"learning_progress"`
	Strengths        []string           `json:"strengths"`
	Weaknesses       []string           `json:"weaknesses"`
	CreatedAt        time.Time          `json:"created_at"`
}

// Question is a multiple choice exam question including its answer key.
type Question struct {
	ID            int      `json:"question_id"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// StudentQuestion is a question with the answer key removed.
type StudentQuestion struct {
	ID      int      `json:"question_id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

// QuestionResult is the per-question outcome of grading.
type QuestionResult struct {
	QuestionID      int    `json:"question_id"`
	Question        string `json:"question"`
	SubmittedAnswer string `json:"submitted_answer"`
	CorrectAnswer   string `json:"correct_answer"`
	IsCorrect       bool   `json:"is_correct"`
	Explanation     string `json:"explanation"`
}

// Grading is recorded on an exam exactly once, when answers are submitted.
type Grading struct {
	SubmittedAnswers map[string]string `json:"submitted_answers"`
	Score            float64           `json:"score"`
	CorrectCount     int               `json:"correct_count"`
	TotalQuestions   int               `json:"total_questions"`
	DetailedResults  []QuestionResult  `json:"detailed_results"`
	GradedAt         time.Time         `json:"graded_at"`
}

// Exam is a generated exam with its server-side answer key.
type Exam struct {
	ID         string     `json:"exam_id"`
	SessionID  string     `json:"session_id"`
	Topic      string     `json:"topic"`
	Difficulty string     `json:"difficulty"`
	Questions  []Question `json:"questions"`
	CreatedAt  time.Time  `json:"created_at"`
	Grading    *Grading   `json:"grading,omitempty"`
}

// Graded reports whether answers have been submitted for the exam.
func (e *Exam) Graded() bool {
	return e.Grading != nil
}

// TutorConfig holds runtime service parameters set via CLI flags.
type TutorConfig struct {
	ContextTurns int // trailing turns sent as chat context; 0 means DefaultContextTurns
}

// DefaultContextTurns is the chat context window used when none is configured.
const DefaultContextTurns = 10
