package model

import "time"

// Export is the top-level JSON structure written by the export command.
type Export struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Profiles    []ProfileExport `json:"profiles"`
}

// ProfileExport holds one user's sessions and exams.
type ProfileExport struct {
	UserID   string    `json:"user_id"`
	Sessions []Session `json:"sessions"`
	Exams    []Exam    `json:"exams"`
}
