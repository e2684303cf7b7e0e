package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

// CreateSession inserts a session together with any initial turns.
func (s *SQLite) CreateSession(sess model.Session) error {
	objectives, err := encodeJSON(nonNil(sess.LearningObjectives))
	if err != nil {
		return err
	}
	concepts, err := encodeJSON(nonNil(sess.ConceptsCovered))
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sessions (id, user_id, topic, learning_objectives, concepts_covered, difficulty_level, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.Topic, objectives, concepts, sess.DifficultyLevel, sess.Status, sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sess.ID, err)
	}
	for _, t := range sess.History {
		if err := insertTurn(tx, sess.ID, t); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetSession returns a session with its full conversation history.
func (s *SQLite) GetSession(id string) (model.Session, error) {
	var (
		sess                 model.Session
		objectives, concepts string
	)
	err := s.db.QueryRow(
		`SELECT id, user_id, topic, learning_objectives, concepts_covered, difficulty_level, status, created_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.Topic, &objectives, &concepts, &sess.DifficultyLevel, &sess.Status, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, fmt.Errorf("%w: session %s", model.ErrNotFound, id)
	}
	if err != nil {
		return model.Session{}, err
	}
	if err := decodeJSON(objectives, &sess.LearningObjectives); err != nil {
		return model.Session{}, fmt.Errorf("decode objectives: %w", err)
	}
	if err := decodeJSON(concepts, &sess.ConceptsCovered); err != nil {
		return model.Session{}, fmt.Errorf("decode concepts: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT role, content, created_at FROM turns WHERE session_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return model.Session{}, err
	}
	defer rows.Close()
	sess.History = []model.Turn{}
	for rows.Next() {
		var t model.Turn
		if err := rows.Scan(&t.Role, &t.Content, &t.Timestamp); err != nil {
			return model.Session{}, err
		}
		sess.History = append(sess.History, t)
	}
	return sess, rows.Err()
}

// AppendTurn adds a turn to the end of a session's history.
func (s *SQLite) AppendTurn(sessionID string, t model.Turn) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := sessionExists(tx, sessionID); err != nil {
		return err
	}
	if err := insertTurn(tx, sessionID, t); err != nil {
		return err
	}
	return tx.Commit()
}

// AddSessionConcepts records concepts not yet covered by the session.
func (s *SQLite) AddSessionConcepts(sessionID string, concepts []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRow(`SELECT concepts_covered FROM sessions WHERE id = ?`, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: session %s", model.ErrNotFound, sessionID)
	}
	if err != nil {
		return err
	}
	var existing []string
	if err := decodeJSON(raw, &existing); err != nil {
		return fmt.Errorf("decode concepts: %w", err)
	}
	merged, err := encodeJSON(mergeConcepts(existing, concepts))
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE sessions SET concepts_covered = ? WHERE id = ?`, merged, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

func sessionExists(tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRow(`SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: session %s", model.ErrNotFound, id)
	}
	return err
}

func insertTurn(tx *sql.Tx, sessionID string, t model.Turn) error {
	ts := t.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := tx.Exec(
		`INSERT INTO turns (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, t.Role, t.Content, ts,
	)
	return err
}

// mergeConcepts appends concepts not already present, preserving order.
func mergeConcepts(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	out := nonNil(append([]string(nil), existing...))
	for _, c := range existing {
		seen[c] = true
	}
	for _, c := range add {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
