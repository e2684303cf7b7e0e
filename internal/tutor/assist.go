package tutor

import (
	"context"

	"github.com/pavelanni/tutor/internal/llm"
	"github.com/pavelanni/tutor/internal/llm/prompts"
	"github.com/pavelanni/tutor/internal/model"
)

// ExplainConcept generates a standalone explanation of a concept.
func (s *Service) ExplainConcept(ctx context.Context, req model.ExplainRequest) (res model.Explanation, err error) {
	defer func() { s.observe("explain", err) }()

	if err := s.admit("explain"); err != nil {
		return res, err
	}
	req.Normalize()
	if err := s.check(req); err != nil {
		return res, err
	}

	p, err := prompts.Explain(prompts.ExplainData{
		Concept:    req.Concept,
		Context:    req.Context,
		Difficulty: req.Difficulty,
		Type:       req.Type,
	})
	if err != nil {
		return res, err
	}
	text, err := s.llm.Generate(ctx, llm.Request{
		SystemInstruction: p.System,
		Content:           p.Content,
		Temperature:       tempExplain,
	})
	if err != nil {
		return res, err
	}
	return model.Explanation{
		Concept:     req.Concept,
		Explanation: text,
		Difficulty:  req.Difficulty,
		Type:        req.Type,
	}, nil
}

// LegacyChat answers a single message with no session state.
func (s *Service) LegacyChat(ctx context.Context, req model.LegacyChatRequest) (reply string, err error) {
	defer func() { s.observe("legacy_chat", err) }()

	if err := s.admit("legacy_chat"); err != nil {
		return "", err
	}
	req.Normalize()
	if err := s.check(req); err != nil {
		return "", err
	}

	p := prompts.Assistant(req.Message)
	return s.llm.Generate(ctx, llm.Request{
		SystemInstruction: p.System,
		Content:           p.Content,
		Temperature:       tempConversation,
	})
}
