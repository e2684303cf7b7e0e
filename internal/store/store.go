package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/tutor/internal/model"

	_ "modernc.org/sqlite"
)

// Store holds sessions, profiles and exams. Every accessor is atomic on its
// own and returns copies; lookups of unknown identifiers fail with
// model.ErrNotFound.
type Store interface {
	CreateSession(s model.Session) error
	GetSession(id string) (model.Session, error)
	AppendTurn(sessionID string, t model.Turn) error
	AddSessionConcepts(sessionID string, concepts []string) error

	CreateOrGetProfile(userID string) (model.Profile, error)
	AppendSessionToProfile(userID, sessionID string) error
	GetProfile(userID string) (model.Profile, error)
	ListProfiles() ([]model.Profile, error)

	CreateExam(e model.Exam) error
	GetExam(id string) (model.Exam, error)
	// UpdateExamGrading records the grading once. A second call fails with
	// model.ErrAlreadyGraded.
	UpdateExamGrading(examID string, g model.Grading) error
	ListExamsForSessions(sessionIDs []string) ([]model.Exam, error)

	Close() error
}

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens (or creates) the database at dbPath and applies the schema.
// Use ":memory:" for a throwaway database.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		learning_progress TEXT NOT NULL DEFAULT '{}',
		strengths TEXT NOT NULL DEFAULT '[]',
		weaknesses TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		learning_objectives TEXT NOT NULL DEFAULT '[]',
		concepts_covered TEXT NOT NULL DEFAULT '[]',
		difficulty_level TEXT NOT NULL DEFAULT 'beginner',
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profile_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES profiles(user_id)
	);

	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id);

	CREATE TABLE IF NOT EXISTS exams (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		questions TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		submitted_answers TEXT,
		score REAL,
		correct_count INTEGER,
		total_questions INTEGER,
		detailed_results TEXT,
		graded_at DATETIME,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	CREATE INDEX IF NOT EXISTS idx_exams_session ON exams(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJSON(raw string, v any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
