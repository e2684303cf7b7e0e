package model

import "time"

// StartSessionResult is returned when a tutoring session begins.
type StartSessionResult struct {
	SessionID          string   `json:"session_id"`
	Topic              string   `json:"topic"`
	Message            string   `json:"message"`
	LearningObjectives []string `json:"learning_objectives"`
	DifficultyLevel    string   `json:"difficulty_level"`
}

// ChatReply is the assistant's answer to a chat turn.
type ChatReply struct {
	SessionID       string   `json:"session_id"`
	Reply           string   `json:"reply"`
	ConceptsCovered []string `json:"concepts_covered"`
}

// ProgressView summarizes a single session.
type ProgressView struct {
	SessionID          string        `json:"session_id"`
	Topic              string        `json:"topic"`
	Status             SessionStatus `json:"status"`
	TotalMessages      int           `json:"total_messages"`
	ConceptsCovered    []string      `json:"concepts_covered"`
	ConceptsCount      int           `json:"concepts_count"`
	DifficultyLevel    string        `json:"difficulty_level"`
	CreatedAt          time.Time     `json:"created_at"`
	LearningObjectives []string      `json:"learning_objectives"`
}

// StudentExam is the exam payload returned to the student, without answer keys.
type StudentExam struct {
	ExamID     string            `json:"exam_id"`
	Topic      string            `json:"topic"`
	Difficulty string            `json:"difficulty"`
	Questions  []StudentQuestion `json:"questions"`
}

// GradedResult is the outcome of a submitted exam.
type GradedResult struct {
	ExamID          string           `json:"exam_id"`
	Topic           string           `json:"topic"`
	Score           float64          `json:"score"`
	Grade           string           `json:"grade"`
	CorrectCount    int              `json:"correct_count"`
	TotalQuestions  int              `json:"total_questions"`
	DetailedResults []QuestionResult `json:"detailed_results"`
	Feedback        string           `json:"feedback,omitempty"`
	FeedbackError   string           `json:"error,omitempty"`
	GradedAt        time.Time        `json:"graded_at"`
}

// SessionSummary is one entry of a profile's session list.
type SessionSummary struct {
	SessionID     string        `json:"session_id"`
	Topic         string        `json:"topic"`
	Status        SessionStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	ConceptsCount int           `json:"concepts_count"`
}

// ExamSummary is one entry of a profile's exam history.
type ExamSummary struct {
	ExamID   string    `json:"exam_id"`
	Topic    string    `json:"topic"`
	Score    float64   `json:"score"`
	GradedAt time.Time `json:"graded_at"`
}

// ProfileView aggregates a user's sessions and graded exams.
type ProfileView struct {
	UserID           string             `json:"user_id"`
	Sessions         []SessionSummary   `json:"sessions"`
	ExamHistory      []ExamSummary      `json:"exam_history"`
	LearningProgress map[string]float64 `json:"learning_progress"`
	Strengths        []string           `json:"strengths"`
	Weaknesses       []string           `json:"weaknesses"`
}

// PathModule is one module of a generated learning path.
type PathModule struct {
	Module            string   `json:"module"`
	Topics            []string `json:"topics"`
	EstimatedDuration string   `json:"estimated_duration"`
	Difficulty        string   `json:"difficulty"`
	Prerequisites     []string `json:"prerequisites"`
}

// LearningPath is a generated study plan. It is never persisted.
type LearningPath struct {
	Modules                []PathModule `json:"learning_path"`
	RecommendedNextSession string       `json:"recommended_next_session"`
	StudyTips              []string     `json:"study_tips"`
}

// Explanation is a generated concept explanation with the parameters echoed back.
type Explanation struct {
	Concept     string `json:"concept"`
	Explanation string `json:"explanation"`
	Difficulty  string `json:"difficulty"`
	Type        string `json:"type"`
}
