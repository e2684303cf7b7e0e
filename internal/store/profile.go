package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

// CreateOrGetProfile returns the user's profile, creating an empty one on first use.
func (s *SQLite) CreateOrGetProfile(userID string) (model.Profile, error) {
	res, err := s.db.Exec(
		`INSERT INTO profiles (user_id, created_at) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING`,
		userID, time.Now(),
	)
	if err != nil {
		slog.Error("failed to create profile", "user_id", userID, "error", err)
		return model.Profile{}, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("created profile", "user_id", userID)
	}
	return s.GetProfile(userID)
}

// AppendSessionToProfile links a session to an existing profile.
func (s *SQLite) AppendSessionToProfile(userID, sessionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRow(`SELECT 1 FROM profiles WHERE user_id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: profile %s", model.ErrNotFound, userID)
	}
	if err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO profile_sessions (user_id, session_id) VALUES (?, ?)`, userID, sessionID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// GetProfile returns a profile with its owned session ids in link order.
func (s *SQLite) GetProfile(userID string) (model.Profile, error) {
	var (
		p                               model.Profile
		progress, strengths, weaknesses string
	)
	err := s.db.QueryRow(
		`SELECT user_id, learning_progress, strengths, weaknesses, created_at FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &progress, &strengths, &weaknesses, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, fmt.Errorf("%w: profile %s", model.ErrNotFound, userID)
	}
	if err != nil {
		return model.Profile{}, err
	}
	p.LearningProgress = map[string]float64{}
	if err := decodeJSON(progress, &p.LearningProgress); err != nil {
		return model.Profile{}, fmt.Errorf("decode progress: %w", err)
	}
	if err := decodeJSON(strengths, &p.Strengths); err != nil {
		return model.Profile{}, fmt.Errorf("decode strengths: %w", err)
	}
	if err := decodeJSON(weaknesses, &p.Weaknesses); err != nil {
		return model.Profile{}, fmt.Errorf("decode weaknesses: %w", err)
	}
	p.Strengths = nonNil(p.Strengths)
	p.Weaknesses = nonNil(p.Weaknesses)

	rows, err := s.db.Query(`SELECT session_id FROM profile_sessions WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return model.Profile{}, err
	}
	defer rows.Close()
	p.SessionIDs = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return model.Profile{}, err
		}
		p.SessionIDs = append(p.SessionIDs, id)
	}
	return p, rows.Err()
}

// ListProfiles returns all profiles ordered by creation.
func (s *SQLite) ListProfiles() ([]model.Profile, error) {
	rows, err := s.db.Query(`SELECT user_id FROM profiles ORDER BY created_at, user_id`)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	profiles := make([]model.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProfile(id)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
