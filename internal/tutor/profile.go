package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/tutor/internal/llm"
	"github.com/pavelanni/tutor/internal/llm/prompts"
	"github.com/pavelanni/tutor/internal/model"
)

// GetProfile aggregates a user's sessions and graded exams. It does not
// consume request budget.
func (s *Service) GetProfile(userID string) (model.ProfileView, error) {
	prof, err := s.store.GetProfile(userID)
	if err != nil {
		return model.ProfileView{}, err
	}

	view := model.ProfileView{
		UserID:           prof.UserID,
		Sessions:         []model.SessionSummary{},
		ExamHistory:      []model.ExamSummary{},
		LearningProgress: prof.LearningProgress,
		Strengths:        prof.Strengths,
		Weaknesses:       prof.Weaknesses,
	}

	for _, id := range prof.SessionIDs {
		sess, err := s.store.GetSession(id)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return model.ProfileView{}, err
		}
		view.Sessions = append(view.Sessions, model.SessionSummary{
			SessionID:     sess.ID,
			Topic:         sess.Topic,
			Status:        sess.Status,
			CreatedAt:     sess.CreatedAt,
			ConceptsCount: len(sess.ConceptsCovered),
		})
	}

	exams, err := s.store.ListExamsForSessions(prof.SessionIDs)
	if err != nil {
		return model.ProfileView{}, fmt.Errorf("list exams: %w", err)
	}
	for _, e := range exams {
		if !e.Graded() {
			continue
		}
		view.ExamHistory = append(view.ExamHistory, model.ExamSummary{
			ExamID:   e.ID,
			Topic:    e.Topic,
			Score:    e.Grading.Score,
			GradedAt: e.Grading.GradedAt,
		})
	}
	return view, nil
}

// GetLearningPath asks the backend for a study plan. Nothing is persisted.
func (s *Service) GetLearningPath(ctx context.Context, req model.LearningPathRequest) (res model.LearningPath, err error) {
	defer func() { s.observe("learning_path", err) }()

	if err := s.admit("learning_path"); err != nil {
		return res, err
	}
	req.Normalize()
	if err := s.check(req); err != nil {
		return res, err
	}

	past, err := s.pastSessions(req.UserID)
	if err != nil {
		return res, err
	}

	p, err := prompts.LearningPath(prompts.LearningPathData{
		Subject:      req.Subject,
		CurrentLevel: req.CurrentLevel,
		Goals:        req.Goals,
		PastSessions: past,
	})
	if err != nil {
		return res, err
	}
	raw, err := s.llm.Generate(ctx, llm.Request{
		SystemInstruction: p.System,
		Content:           p.Content,
		Temperature:       tempLearningPath,
		JSON:              true,
	})
	if err != nil {
		slog.Error("learning path generation failed", "user_id", req.UserID, "error", err)
		return res, err
	}
	if err := llm.ExtractJSON(raw, &res); err != nil {
		slog.Error("learning path generation returned malformed output", "user_id", req.UserID, "error", err)
		return model.LearningPath{}, fmt.Errorf("%w: %w", model.ErrGenerationFailed, err)
	}
	if res.Modules == nil {
		res.Modules = []model.PathModule{}
	}
	if res.StudyTips == nil {
		res.StudyTips = []string{}
	}
	return res, nil
}

// pastSessions counts the user's sessions still present in the store. An
// unknown user has none.
func (s *Service) pastSessions(userID string) (int, error) {
	prof, err := s.store.GetProfile(userID)
	if errors.Is(err, model.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range prof.SessionIDs {
		if _, err := s.store.GetSession(id); err == nil {
			n++
		}
	}
	return n, nil
}
