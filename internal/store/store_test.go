package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("newTestSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	impls := []struct {
		name string
		open func(t *testing.T) Store
	}{
		{"memory", func(t *testing.T) Store { return NewMemory() }},
		{"sqlite", func(t *testing.T) Store { return newTestSQLite(t) }},
	}
	for _, impl := range impls {
		t.Run(impl.name, func(t *testing.T) {
			fn(t, impl.open(t))
		})
	}
}

func insertTestSession(t *testing.T, s Store, id, userID, topic string) {
	t.Helper()
	err := s.CreateSession(model.Session{
		ID:                 id,
		UserID:             userID,
		Topic:              topic,
		LearningObjectives: []string{"basics"},
		DifficultyLevel:    model.LevelBeginner,
		Status:             model.StatusActive,
		CreatedAt:          time.Now(),
	})
	if err != nil {
		t.Fatalf("insertTestSession: %v", err)
	}
}

func testExam(id, sessionID string, createdAt time.Time) model.Exam {
	return model.Exam{
		ID:         id,
		SessionID:  sessionID,
		Topic:      "Go",
		Difficulty: "medium",
		CreatedAt:  createdAt,
		Questions: []model.Question{
			{ID: 1, Text: "Q1?", Options: []string{"A) x", "B) y"}, CorrectAnswer: "A", Explanation: "because"},
			{ID: 2, Text: "Q2?", Options: []string{"A) x", "B) y"}, CorrectAnswer: "B", Explanation: "also"},
		},
	}
}

func TestSessionCRUD(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		insertTestSession(t, s, "s1", "u1", "Go")

		sess, err := s.GetSession("s1")
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if sess.Topic != "Go" {
			t.Errorf("expected topic 'Go', got %q", sess.Topic)
		}
		if sess.Status != model.StatusActive {
			t.Errorf("expected status active, got %q", sess.Status)
		}
		if len(sess.LearningObjectives) != 1 || sess.LearningObjectives[0] != "basics" {
			t.Errorf("unexpected objectives: %v", sess.LearningObjectives)
		}
		if len(sess.History) != 0 {
			t.Errorf("expected empty history, got %d turns", len(sess.History))
		}
		if sess.ConceptsCovered == nil {
			t.Error("expected non-nil concepts")
		}

		_, err = s.GetSession("missing")
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		if err := s.CreateSession(model.Session{ID: "s1", UserID: "u1", Topic: "dup", CreatedAt: time.Now()}); err == nil {
			t.Error("expected error for duplicate session id")
		}
	})
}

func TestAppendTurnOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		insertTestSession(t, s, "s1", "u1", "Go")

		for i := 0; i < 5; i++ {
			role := model.RoleUser
			if i%2 == 1 {
				role = model.RoleAssistant
			}
			if err := s.AppendTurn("s1", model.Turn{Role: role, Content: fmt.Sprintf("m%d", i)}); err != nil {
				t.Fatalf("AppendTurn: %v", err)
			}
		}

		sess, err := s.GetSession("s1")
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if len(sess.History) != 5 {
			t.Fatalf("expected 5 turns, got %d", len(sess.History))
		}
		for i, turn := range sess.History {
			if want := fmt.Sprintf("m%d", i); turn.Content != want {
				t.Errorf("turn %d: expected %q, got %q", i, want, turn.Content)
			}
			if turn.Timestamp.IsZero() {
				t.Errorf("turn %d: expected timestamp", i)
			}
		}
		if sess.History[1].Role != model.RoleAssistant {
			t.Errorf("expected assistant role, got %q", sess.History[1].Role)
		}

		err = s.AppendTurn("missing", model.Turn{Role: model.RoleUser, Content: "x"})
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestReturnedSessionIsCopy(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		insertTestSession(t, s, "s1", "u1", "Go")
		if err := s.AppendTurn("s1", model.Turn{Role: model.RoleUser, Content: "hi"}); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}

		sess, _ := s.GetSession("s1")
		sess.History[0].Content = "changed"
		sess.LearningObjectives[0] = "changed"

		again, _ := s.GetSession("s1")
		if again.History[0].Content != "hi" {
			t.Errorf("history mutated through copy: %q", again.History[0].Content)
		}
		if again.LearningObjectives[0] != "basics" {
			t.Errorf("objectives mutated through copy: %q", again.LearningObjectives[0])
		}
	})
}

func TestAddSessionConcepts(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		insertTestSession(t, s, "s1", "u1", "Go")

		if err := s.AddSessionConcepts("s1", []string{"goroutines", "channels"}); err != nil {
			t.Fatalf("AddSessionConcepts: %v", err)
		}
		if err := s.AddSessionConcepts("s1", []string{"channels", "", "select"}); err != nil {
			t.Fatalf("AddSessionConcepts: %v", err)
		}
		sess, _ := s.GetSession("s1")
		want := []string{"goroutines", "channels", "select"}
		if fmt.Sprint(sess.ConceptsCovered) != fmt.Sprint(want) {
			t.Errorf("expected %v, got %v", want, sess.ConceptsCovered)
		}

		if err := s.AddSessionConcepts("missing", []string{"x"}); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestProfileLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, err := s.GetProfile("u1")
		if !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound before creation, got %v", err)
		}

		if err := s.AppendSessionToProfile("u1", "s1"); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound linking to missing profile, got %v", err)
		}

		p, err := s.CreateOrGetProfile("u1")
		if err != nil {
			t.Fatalf("CreateOrGetProfile: %v", err)
		}
		if p.UserID != "u1" || len(p.SessionIDs) != 0 {
			t.Errorf("unexpected new profile: %+v", p)
		}
		if p.LearningProgress == nil || p.Strengths == nil || p.Weaknesses == nil {
			t.Error("expected empty, non-nil progress fields")
		}

		for _, id := range []string{"s1", "s2", "s3"} {
			if err := s.AppendSessionToProfile("u1", id); err != nil {
				t.Fatalf("AppendSessionToProfile: %v", err)
			}
		}

		// Second call returns the existing profile untouched.
		p, err = s.CreateOrGetProfile("u1")
		if err != nil {
			t.Fatalf("CreateOrGetProfile again: %v", err)
		}
		if fmt.Sprint(p.SessionIDs) != "[s1 s2 s3]" {
			t.Errorf("expected [s1 s2 s3], got %v", p.SessionIDs)
		}

		if _, err := s.CreateOrGetProfile("u2"); err != nil {
			t.Fatalf("CreateOrGetProfile u2: %v", err)
		}
		profiles, err := s.ListProfiles()
		if err != nil {
			t.Fatalf("ListProfiles: %v", err)
		}
		if len(profiles) != 2 {
			t.Errorf("expected 2 profiles, got %d", len(profiles))
		}
	})
}

func TestExamGradingTransition(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		insertTestSession(t, s, "s1", "u1", "Go")
		if err := s.CreateExam(testExam("e1", "s1", time.Now())); err != nil {
			t.Fatalf("CreateExam: %v", err)
		}

		e, err := s.GetExam("e1")
		if err != nil {
			t.Fatalf("GetExam: %v", err)
		}
		if e.Graded() {
			t.Fatal("new exam should not be graded")
		}
		if len(e.Questions) != 2 || e.Questions[1].CorrectAnswer != "B" {
			t.Errorf("answer key not stored: %+v", e.Questions)
		}

		g := model.Grading{
			SubmittedAnswers: map[string]string{"1": "A", "2": "A"},
			Score:            50,
			CorrectCount:     1,
			TotalQuestions:   2,
			DetailedResults: []model.QuestionResult{
				{QuestionID: 1, SubmittedAnswer: "A", CorrectAnswer: "A", IsCorrect: true},
				{QuestionID: 2, SubmittedAnswer: "A", CorrectAnswer: "B"},
			},
			GradedAt: time.Now(),
		}
		if err := s.UpdateExamGrading("e1", g); err != nil {
			t.Fatalf("UpdateExamGrading: %v", err)
		}

		e, _ = s.GetExam("e1")
		if !e.Graded() {
			t.Fatal("expected exam to be graded")
		}
		if e.Grading.Score != 50 || e.Grading.CorrectCount != 1 || e.Grading.TotalQuestions != 2 {
			t.Errorf("unexpected grading: %+v", e.Grading)
		}
		if e.Grading.SubmittedAnswers["2"] != "A" {
			t.Errorf("submitted answers not stored: %v", e.Grading.SubmittedAnswers)
		}
		if len(e.Grading.DetailedResults) != 2 || !e.Grading.DetailedResults[0].IsCorrect {
			t.Errorf("detailed results not stored: %+v", e.Grading.DetailedResults)
		}

		g.Score = 100
		if err := s.UpdateExamGrading("e1", g); !errors.Is(err, model.ErrAlreadyGraded) {
			t.Errorf("expected ErrAlreadyGraded, got %v", err)
		}
		e, _ = s.GetExam("e1")
		if e.Grading.Score != 50 {
			t.Errorf("second grading overwrote the first: %v", e.Grading.Score)
		}

		if err := s.UpdateExamGrading("missing", g); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.GetExam("missing"); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestListExamsForSessions(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		base := time.Now()
		insertTestSession(t, s, "s1", "u1", "Go")
		insertTestSession(t, s, "s2", "u1", "Rust")
		insertTestSession(t, s, "s3", "u2", "C")

		exams := []model.Exam{
			testExam("e2", "s2", base.Add(2*time.Second)),
			testExam("e1", "s1", base.Add(time.Second)),
			testExam("e3", "s3", base.Add(3*time.Second)),
		}
		for _, e := range exams {
			if err := s.CreateExam(e); err != nil {
				t.Fatalf("CreateExam: %v", err)
			}
		}

		tests := []struct {
			name     string
			sessions []string
			want     string
		}{
			{"none", nil, "[]"},
			{"one", []string{"s3"}, "[e3]"},
			{"ordered by creation", []string{"s2", "s1"}, "[e1 e2]"},
			{"unknown session", []string{"nope"}, "[]"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := s.ListExamsForSessions(tt.sessions)
				if err != nil {
					t.Fatalf("ListExamsForSessions: %v", err)
				}
				ids := []string{}
				for _, e := range got {
					ids = append(ids, e.ID)
				}
				if fmt.Sprint(ids) != tt.want {
					t.Errorf("expected %s, got %v", tt.want, ids)
				}
			})
		}
	})
}

func TestExport(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		if _, err := s.CreateOrGetProfile("u1"); err != nil {
			t.Fatalf("CreateOrGetProfile: %v", err)
		}
		insertTestSession(t, s, "s1", "u1", "Go")
		if err := s.AppendSessionToProfile("u1", "s1"); err != nil {
			t.Fatalf("AppendSessionToProfile: %v", err)
		}
		// Dangling link is skipped, not fatal.
		if err := s.AppendSessionToProfile("u1", "gone"); err != nil {
			t.Fatalf("AppendSessionToProfile: %v", err)
		}
		if err := s.CreateExam(testExam("e1", "s1", time.Now())); err != nil {
			t.Fatalf("CreateExam: %v", err)
		}

		exp, err := Export(s)
		if err != nil {
			t.Fatalf("Export: %v", err)
		}
		if len(exp.Profiles) != 1 {
			t.Fatalf("expected 1 profile, got %d", len(exp.Profiles))
		}
		pe := exp.Profiles[0]
		if len(pe.Sessions) != 1 || pe.Sessions[0].ID != "s1" {
			t.Errorf("unexpected sessions: %+v", pe.Sessions)
		}
		if len(pe.Exams) != 1 || pe.Exams[0].ID != "e1" {
			t.Errorf("unexpected exams: %+v", pe.Exams)
		}
	})
}
