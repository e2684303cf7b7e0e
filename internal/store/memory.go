package store

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

// Memory is a process-local Store. It is the default when no database path
// is configured.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	profiles map[string]*model.Profile
	exams    map[string]*model.Exam
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*model.Session),
		profiles: make(map[string]*model.Profile),
		exams:    make(map[string]*model.Exam),
	}
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func (m *Memory) CreateSession(s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	c := copySession(s)
	m.sessions[s.ID] = &c
	return nil
}

func (m *Memory) GetSession(id string) (model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return model.Session{}, fmt.Errorf("%w: session %s", model.ErrNotFound, id)
	}
	return copySession(*s), nil
}

func (m *Memory) AppendTurn(sessionID string, t model.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: session %s", model.ErrNotFound, sessionID)
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	s.History = append(s.History, t)
	return nil
}

func (m *Memory) AddSessionConcepts(sessionID string, concepts []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: session %s", model.ErrNotFound, sessionID)
	}
	s.ConceptsCovered = mergeConcepts(s.ConceptsCovered, concepts)
	return nil
}

func (m *Memory) CreateOrGetProfile(userID string) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		p = &model.Profile{
			UserID:           userID,
			SessionIDs:       []string{},
			LearningProgress: map[string]float64{},
			Strengths:        []string{},
			Weaknesses:       []string{},
			CreatedAt:        time.Now(),
		}
		m.profiles[userID] = p
		slog.Info("created profile", "user_id", userID)
	}
	return copyProfile(*p), nil
}

func (m *Memory) AppendSessionToProfile(userID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return fmt.Errorf("%w: profile %s", model.ErrNotFound, userID)
	}
	p.SessionIDs = append(p.SessionIDs, sessionID)
	return nil
}

func (m *Memory) GetProfile(userID string) (model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return model.Profile{}, fmt.Errorf("%w: profile %s", model.ErrNotFound, userID)
	}
	return copyProfile(*p), nil
}

func (m *Memory) ListProfiles() ([]model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, copyProfile(*p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (m *Memory) CreateExam(e model.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[e.ID]; ok {
		return fmt.Errorf("exam %s already exists", e.ID)
	}
	c := copyExam(e)
	c.Grading = nil
	m.exams[e.ID] = &c
	return nil
}

func (m *Memory) GetExam(id string) (model.Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return model.Exam{}, fmt.Errorf("%w: exam %s", model.ErrNotFound, id)
	}
	return copyExam(*e), nil
}

func (m *Memory) UpdateExamGrading(examID string, g model.Grading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[examID]
	if !ok {
		return fmt.Errorf("%w: exam %s", model.ErrNotFound, examID)
	}
	if e.Grading != nil {
		return fmt.Errorf("%w: exam %s", model.ErrAlreadyGraded, examID)
	}
	if g.GradedAt.IsZero() {
		g.GradedAt = time.Now()
	}
	c := copyGrading(g)
	e.Grading = &c
	return nil
}

func (m *Memory) ListExamsForSessions(sessionIDs []string) ([]model.Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		wanted[id] = true
	}
	out := []model.Exam{}
	for _, e := range m.exams {
		if wanted[e.SessionID] {
			out = append(out, copyExam(*e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func copySession(s model.Session) model.Session {
	s.History = append([]model.Turn{}, s.History...)
	s.LearningObjectives = nonNil(slices.Clone(s.LearningObjectives))
	s.ConceptsCovered = nonNil(slices.Clone(s.ConceptsCovered))
	return s
}

func copyProfile(p model.Profile) model.Profile {
	p.SessionIDs = nonNil(slices.Clone(p.SessionIDs))
	p.LearningProgress = maps.Clone(p.LearningProgress)
	if p.LearningProgress == nil {
		p.LearningProgress = map[string]float64{}
	}
	p.Strengths = nonNil(slices.Clone(p.Strengths))
	p.Weaknesses = nonNil(slices.Clone(p.Weaknesses))
	return p
}

func copyExam(e model.Exam) model.Exam {
	qs := make([]model.Question, len(e.Questions))
	for i, q := range e.Questions {
		q.Options = slices.Clone(q.Options)
		qs[i] = q
	}
	e.Questions = qs
	if e.Grading != nil {
		g := copyGrading(*e.Grading)
		e.Grading = &g
	}
	return e
}

func copyGrading(g model.Grading) model.Grading {
	g.SubmittedAnswers = maps.Clone(g.SubmittedAnswers)
	g.DetailedResults = slices.Clone(g.DetailedResults)
	return g
}
