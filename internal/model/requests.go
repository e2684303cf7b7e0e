package model

import "strings"

// Request defaults applied before validation.
const (
	DefaultUserID          = "default_user"
	DefaultNumQuestions    = 5
	DefaultExamDifficulty  = "medium"
	DefaultExplainLevel    = LevelIntermediate
	DefaultExplanationType = "comprehensive"
)

// StartSessionRequest starts a tutoring session.
type StartSessionRequest struct {
	UserID          string   `json:"user_id" validate:"required"`
	Topic           string   `json:"topic" validate:"required"`
	LearningGoals   []string `json:"learning_goals"`
	DifficultyLevel string   `json:"difficulty_level"`
}

// Normalize trims input and fills defaults.
func (r *StartSessionRequest) Normalize() {
	r.UserID = orDefault(r.UserID, DefaultUserID)
	r.Topic = strings.TrimSpace(r.Topic)
	r.DifficultyLevel = orDefault(r.DifficultyLevel, LevelBeginner)
	if r.LearningGoals == nil {
		r.LearningGoals = []string{}
	}
}

// ChatRequest continues a tutoring session.
type ChatRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

// Normalize trims the session id. The message is kept verbatim; a blank
// message is cleared so validation rejects it.
func (r *ChatRequest) Normalize() {
	r.SessionID = strings.TrimSpace(r.SessionID)
	r.Message = blankToEmpty(r.Message)
}

// GenerateExamRequest asks for an exam built from a session.
type GenerateExamRequest struct {
	SessionID    string `json:"session_id" validate:"required"`
	NumQuestions int    `json:"num_questions" validate:"min=1,max=50"`
	Difficulty   string `json:"difficulty"`
}

// Normalize trims input and fills defaults.
func (r *GenerateExamRequest) Normalize() {
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.NumQuestions == 0 {
		r.NumQuestions = DefaultNumQuestions
	}
	r.Difficulty = orDefault(r.Difficulty, DefaultExamDifficulty)
}

// SubmitExamRequest submits answers keyed by stringified question id.
type SubmitExamRequest struct {
	ExamID  string            `json:"exam_id" validate:"required"`
	Answers map[string]string `json:"answers" validate:"required,min=1"`
}

// Normalize trims input.
func (r *SubmitExamRequest) Normalize() {
	r.ExamID = strings.TrimSpace(r.ExamID)
}

// LearningPathRequest asks for a study plan.
type LearningPathRequest struct {
	UserID       string   `json:"user_id" validate:"required"`
	Subject      string   `json:"subject" validate:"required"`
	CurrentLevel string   `json:"current_level"`
	Goals        []string `json:"goals"`
}

// Normalize trims input and fills defaults.
func (r *LearningPathRequest) Normalize() {
	r.UserID = orDefault(r.UserID, DefaultUserID)
	r.Subject = strings.TrimSpace(r.Subject)
	r.CurrentLevel = orDefault(r.CurrentLevel, LevelBeginner)
}

// ExplainRequest asks for a concept explanation.
type ExplainRequest struct {
	Concept    string `json:"concept" validate:"required"`
	Context    string `json:"context"`
	Difficulty string `json:"difficulty"`
	Type       string `json:"type"`
}

// Normalize trims input and fills defaults.
func (r *ExplainRequest) Normalize() {
	r.Concept = strings.TrimSpace(r.Concept)
	r.Difficulty = orDefault(r.Difficulty, DefaultExplainLevel)
	r.Type = orDefault(r.Type, DefaultExplanationType)
}

// LegacyChatRequest is a single stateless message to a general assistant.
type LegacyChatRequest struct {
	Message string `json:"message" validate:"required"`
}

// Normalize clears a blank message and otherwise keeps it verbatim.
func (r *LegacyChatRequest) Normalize() {
	r.Message = blankToEmpty(r.Message)
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

func blankToEmpty(v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return v
}
