package tutor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelanni/tutor/internal/llm"
	"github.com/pavelanni/tutor/internal/llm/prompts"
	"github.com/pavelanni/tutor/internal/model"
)

// StartSession creates a session for the user, creating the profile first if
// needed, and generates the introductory assistant turn. The session is kept
// even if the introduction cannot be generated.
func (s *Service) StartSession(ctx context.Context, req model.StartSessionRequest) (res model.StartSessionResult, err error) {
	defer func() { s.observe("start_session", err) }()

	if err := s.admit("start_session"); err != nil {
		return res, err
	}
	req.Normalize()
	if err := s.check(req); err != nil {
		return res, err
	}

	if _, err := s.store.CreateOrGetProfile(req.UserID); err != nil {
		return res, fmt.Errorf("ensure profile: %w", err)
	}
	sess := model.Session{
		ID:                 s.newID(),
		UserID:             req.UserID,
		Topic:              req.Topic,
		LearningObjectives: req.LearningGoals,
		ConceptsCovered:    []string{},
		DifficultyLevel:    req.DifficultyLevel,
		CreatedAt:          s.timestamp(),
		Status:             model.StatusActive,
	}
	if err := s.store.CreateSession(sess); err != nil {
		return res, fmt.Errorf("create session: %w", err)
	}
	if err := s.store.AppendSessionToProfile(req.UserID, sess.ID); err != nil {
		return res, fmt.Errorf("link session: %w", err)
	}
	slog.Info("session started", "session_id", sess.ID, "user_id", req.UserID, "topic", req.Topic)

	p, err := prompts.Intro(prompts.IntroData{
		Topic:      req.Topic,
		Difficulty: req.DifficultyLevel,
		Goals:      req.LearningGoals,
	})
	if err != nil {
		return res, err
	}
	intro, err := s.llm.Generate(ctx, llm.Request{
		SystemInstruction: p.System,
		Content:           p.Content,
		Temperature:       tempConversation,
	})
	if err != nil {
		slog.Error("introduction generation failed", "session_id", sess.ID, "error", err)
		return res, err
	}
	if err := s.store.AppendTurn(sess.ID, model.Turn{
		Role:      model.RoleAssistant,
		Content:   intro,
		Timestamp: s.timestamp(),
	}); err != nil {
		return res, fmt.Errorf("append introduction: %w", err)
	}

	return model.StartSessionResult{
		SessionID:          sess.ID,
		Topic:              sess.Topic,
		Message:            intro,
		LearningObjectives: sess.LearningObjectives,
		DifficultyLevel:    sess.DifficultyLevel,
	}, nil
}

// ContinueChat appends the user's message and the generated reply. Turns of
// one session are serialized so history order matches arrival order.
func (s *Service) ContinueChat(ctx context.Context, req model.ChatRequest) (res model.ChatReply, err error) {
	defer func() { s.observe("chat", err) }()

	if err := s.admit("chat"); err != nil {
		return res, err
	}
	req.Normalize()
	if err := s.check(req); err != nil {
		return res, err
	}

	unlock := s.sessionLocks.Lock(req.SessionID)
	defer unlock()

	sess, err := s.store.GetSession(req.SessionID)
	if err != nil {
		return res, err
	}
	userTurn := model.Turn{Role: model.RoleUser, Content: req.Message, Timestamp: s.timestamp()}
	if err := s.store.AppendTurn(sess.ID, userTurn); err != nil {
		return res, fmt.Errorf("append user turn: %w", err)
	}
	sess.History = append(sess.History, userTurn)

	p, err := prompts.Tutor(prompts.TutorData{
		Topic:      sess.Topic,
		Difficulty: sess.DifficultyLevel,
		Objectives: sess.LearningObjectives,
		Concepts:   sess.ConceptsCovered,
	}, prompts.Window(sess.History, s.cfg.ContextTurns))
	if err != nil {
		return res, err
	}
	reply, err := s.llm.Generate(ctx, llm.Request{
		SystemInstruction: p.System,
		Content:           p.Content,
		Temperature:       tempConversation,
	})
	if err != nil {
		slog.Error("chat generation failed", "session_id", sess.ID, "error", err)
		return res, err
	}
	if err := s.store.AppendTurn(sess.ID, model.Turn{
		Role:      model.RoleAssistant,
		Content:   reply,
		Timestamp: s.timestamp(),
	}); err != nil {
		return res, fmt.Errorf("append assistant turn: %w", err)
	}

	concepts := sess.ConceptsCovered
	if found := s.concepts.Extract(sess, reply); len(found) > 0 {
		if err := s.store.AddSessionConcepts(sess.ID, found); err != nil {
			return res, fmt.Errorf("record concepts: %w", err)
		}
		updated, err := s.store.GetSession(sess.ID)
		if err != nil {
			return res, err
		}
		concepts = updated.ConceptsCovered
	}

	return model.ChatReply{
		SessionID:       sess.ID,
		Reply:           reply,
		ConceptsCovered: concepts,
	}, nil
}

// GetProgress summarizes a session. It does not consume request budget.
func (s *Service) GetProgress(sessionID string) (model.ProgressView, error) {
	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		return model.ProgressView{}, err
	}
	return model.ProgressView{
		SessionID:          sess.ID,
		Topic:              sess.Topic,
		Status:             sess.Status,
		TotalMessages:      len(sess.History),
		ConceptsCovered:    sess.ConceptsCovered,
		ConceptsCount:      len(sess.ConceptsCovered),
		DifficultyLevel:    sess.DifficultyLevel,
		CreatedAt:          sess.CreatedAt,
		LearningObjectives: sess.LearningObjectives,
	}, nil
}
