package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

const examColumns = `id, session_id, topic, difficulty, questions, created_at,
	submitted_answers, score, correct_count, total_questions, detailed_results, graded_at`

// CreateExam stores an exam including its answer key. Any grading on the
// argument is ignored; grading is only recorded through UpdateExamGrading.
func (s *SQLite) CreateExam(e model.Exam) error {
	questions, err := encodeJSON(e.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO exams (id, session_id, topic, difficulty, questions, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Topic, e.Difficulty, questions, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exam %s: %w", e.ID, err)
	}
	return nil
}

// GetExam returns an exam by ID.
func (s *SQLite) GetExam(id string) (model.Exam, error) {
	e, err := scanExam(s.db.QueryRow(`SELECT `+examColumns+` FROM exams WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Exam{}, fmt.Errorf("%w: exam %s", model.ErrNotFound, id)
	}
	return e, err
}

// UpdateExamGrading records the grading sub-record if none is present yet.
func (s *SQLite) UpdateExamGrading(examID string, g model.Grading) error {
	answers, err := encodeJSON(g.SubmittedAnswers)
	if err != nil {
		return err
	}
	details, err := encodeJSON(g.DetailedResults)
	if err != nil {
		return err
	}
	gradedAt := g.GradedAt
	if gradedAt.IsZero() {
		gradedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE exams SET submitted_answers = ?, score = ?, correct_count = ?, total_questions = ?,
		 detailed_results = ?, graded_at = ?
		 WHERE id = ? AND graded_at IS NULL`,
		answers, g.Score, g.CorrectCount, g.TotalQuestions, details, gradedAt, examID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		err := tx.QueryRow(`SELECT 1 FROM exams WHERE id = ?`, examID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: exam %s", model.ErrNotFound, examID)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: exam %s", model.ErrAlreadyGraded, examID)
	}
	return tx.Commit()
}

// ListExamsForSessions returns exams linked to any of the given sessions, oldest first.
func (s *SQLite) ListExamsForSessions(sessionIDs []string) ([]model.Exam, error) {
	exams := []model.Exam{}
	if len(sessionIDs) == 0 {
		return exams, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sessionIDs)), ",")
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		args[i] = id
	}
	rows, err := s.db.Query(
		`SELECT `+examColumns+` FROM exams WHERE session_id IN (`+placeholders+`) ORDER BY created_at, id`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExam(row rowScanner) (model.Exam, error) {
	var (
		e                model.Exam
		questions        string
		answers, details sql.NullString
		score            sql.NullFloat64
		correct, total   sql.NullInt64
		gradedAt         *time.Time
	)
	if err := row.Scan(&e.ID, &e.SessionID, &e.Topic, &e.Difficulty, &questions, &e.CreatedAt,
		&answers, &score, &correct, &total, &details, &gradedAt); err != nil {
		return model.Exam{}, err
	}
	if err := decodeJSON(questions, &e.Questions); err != nil {
		return model.Exam{}, fmt.Errorf("decode questions: %w", err)
	}
	if gradedAt == nil {
		return e, nil
	}
	g := &model.Grading{
		Score:          score.Float64,
		CorrectCount:   int(correct.Int64),
		TotalQuestions: int(total.Int64),
		GradedAt:       *gradedAt,
	}
	if err := decodeJSON(answers.String, &g.SubmittedAnswers); err != nil {
		return model.Exam{}, fmt.Errorf("decode answers: %w", err)
	}
	if err := decodeJSON(details.String, &g.DetailedResults); err != nil {
		return model.Exam{}, fmt.Errorf("decode results: %w", err)
	}
	e.Grading = g
	return e, nil
}
