package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pavelanni/tutor/internal/llm"
	"github.com/pavelanni/tutor/internal/llm/prompts"
	"github.com/pavelanni/tutor/internal/model"
)

// FeedbackFallback replaces the narrative feedback when it cannot be generated.
const FeedbackFallback = "Exam graded successfully, but feedback generation failed."

// generatedExam is the structure the backend is asked to return.
type generatedExam struct {
	Topic      string           `json:"topic"`
	Difficulty string           `json:"difficulty"`
	Questions  []model.Question `json:"questions"`
}

// GenerateExam asks the backend for a multiple choice exam covering the
// session, stores it with its answer key and returns the student copy.
func (s *Service) GenerateExam(ctx context.Context, req model.GenerateExamRequest) (res model.StudentExam, err error) {
	defer func() { s.observe("generate_exam", err) }()

	if err := s.admit("generate_exam"); err != nil {
		return res, err
	}
	req.Normalize()
	if err := s.check(req); err != nil {
		return res, err
	}

	sess, err := s.store.GetSession(req.SessionID)
	if err != nil {
		return res, err
	}

	p, err := prompts.Exam(prompts.ExamData{
		Topic:             sess.Topic,
		NumQuestions:      req.NumQuestions,
		Difficulty:        req.Difficulty,
		SessionDifficulty: sess.DifficultyLevel,
		Concepts:          sess.ConceptsCovered,
		Summary:           prompts.AssistantSummary(sess.History),
	})
	if err != nil {
		return res, err
	}
	raw, err := s.llm.Generate(ctx, llm.Request{
		SystemInstruction: p.System,
		Content:           p.Content,
		Temperature:       tempExam,
		JSON:              true,
	})
	if err != nil {
		slog.Error("exam generation failed", "session_id", sess.ID, "error", err)
		return res, err
	}

	var gen generatedExam
	if err := llm.ExtractJSON(raw, &gen); err != nil {
		slog.Error("exam generation returned malformed output", "session_id", sess.ID, "error", err)
		return res, err
	}
	if err := checkQuestions(gen.Questions); err != nil {
		slog.Error("exam generation returned unusable questions", "session_id", sess.ID, "error", err)
		return res, err
	}

	exam := model.Exam{
		ID:         s.newID(),
		SessionID:  sess.ID,
		Topic:      sess.Topic,
		Difficulty: req.Difficulty,
		Questions:  gen.Questions,
		CreatedAt:  s.timestamp(),
	}
	if err := s.store.CreateExam(exam); err != nil {
		return res, fmt.Errorf("store exam: %w", err)
	}
	slog.Info("exam generated", "exam_id", exam.ID, "session_id", sess.ID, "questions", len(exam.Questions))

	return studentCopy(exam), nil
}

// checkQuestions rejects exams that could not be graded.
func checkQuestions(qs []model.Question) error {
	if len(qs) == 0 {
		return fmt.Errorf("%w: exam has no questions", model.ErrMalformedGeneration)
	}
	seen := make(map[int]bool, len(qs))
	for _, q := range qs {
		if seen[q.ID] {
			return fmt.Errorf("%w: duplicate question_id %d", model.ErrMalformedGeneration, q.ID)
		}
		seen[q.ID] = true
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: question %d has no options", model.ErrMalformedGeneration, q.ID)
		}
	}
	return nil
}

func studentCopy(e model.Exam) model.StudentExam {
	out := model.StudentExam{
		ExamID:     e.ID,
		Topic:      e.Topic,
		Difficulty: e.Difficulty,
		Questions:  make([]model.StudentQuestion, 0, len(e.Questions)),
	}
	for _, q := range e.Questions {
		out.Questions = append(out.Questions, model.StudentQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Options: append([]string(nil), q.Options...),
		})
	}
	return out
}

// SubmitExam grades the answers against the stored key, records the grading
// once and asks for narrative feedback. A feedback failure never fails the
// submission.
func (s *Service) SubmitExam(ctx context.Context, req model.SubmitExamRequest) (res model.GradedResult, err error) {
	defer func() { s.observe("submit_exam", err) }()

	if err := s.admit("submit_exam"); err != nil {
		return res, err
	}
	req.Normalize()
	if err := s.check(req); err != nil {
		return res, err
	}

	exam, g, err := s.gradeOnce(req)
	if err != nil {
		return res, err
	}
	s.metrics.ExamGraded(g.Score)
	slog.Info("exam graded", "exam_id", exam.ID, "score", g.Score, "correct", g.CorrectCount, "total", g.TotalQuestions)

	res = gradedResult(exam.ID, exam.Topic, g)
	feedback, ferr := s.feedback(ctx, exam.Topic, g)
	if ferr != nil {
		slog.Warn("feedback generation failed", "exam_id", exam.ID, "error", ferr)
		res.Feedback = FeedbackFallback
		res.FeedbackError = ferr.Error()
		return res, nil
	}
	res.Feedback = feedback
	return res, nil
}

// gradeOnce grades and persists under the exam's lock.
func (s *Service) gradeOnce(req model.SubmitExamRequest) (model.Exam, model.Grading, error) {
	unlock := s.examLocks.Lock(req.ExamID)
	defer unlock()

	exam, err := s.store.GetExam(req.ExamID)
	if err != nil {
		return model.Exam{}, model.Grading{}, err
	}
	if exam.Graded() {
		return model.Exam{}, model.Grading{}, fmt.Errorf("%w: %s", model.ErrAlreadyGraded, exam.ID)
	}

	g := Grade(exam.Questions, req.Answers)
	g.GradedAt = s.timestamp()
	if err := s.store.UpdateExamGrading(exam.ID, g); err != nil {
		return model.Exam{}, model.Grading{}, err
	}
	return exam, g, nil
}

func (s *Service) feedback(ctx context.Context, topic string, g model.Grading) (string, error) {
	p, err := prompts.Feedback(topic, g)
	if err != nil {
		return "", err
	}
	return s.llm.Generate(ctx, llm.Request{
		SystemInstruction: p.System,
		Content:           p.Content,
		Temperature:       tempFeedback,
	})
}

// Grade scores answers keyed by stringified question id against the answer
// key. Missing answers count as wrong. qs must not be empty.
func Grade(qs []model.Question, answers map[string]string) model.Grading {
	g := model.Grading{
		SubmittedAnswers: make(map[string]string, len(answers)),
		TotalQuestions:   len(qs),
		DetailedResults:  make([]model.QuestionResult, 0, len(qs)),
	}
	for k, v := range answers {
		g.SubmittedAnswers[k] = v
	}

	for _, q := range qs {
		submitted := answers[strconv.Itoa(q.ID)]
		correct := submitted == q.CorrectAnswer
		if correct {
			g.CorrectCount++
		}
		g.DetailedResults = append(g.DetailedResults, model.QuestionResult{
			QuestionID:      q.ID,
			Question:        q.Text,
			SubmittedAnswer: submitted,
			CorrectAnswer:   q.CorrectAnswer,
			IsCorrect:       correct,
			Explanation:     q.Explanation,
		})
	}
	if g.TotalQuestions > 0 {
		g.Score = 100 * float64(g.CorrectCount) / float64(g.TotalQuestions)
	}
	return g
}

// GetResults returns the stored grading of an exam. It does not consume
// request budget.
func (s *Service) GetResults(examID string) (model.GradedResult, error) {
	exam, err := s.store.GetExam(strings.TrimSpace(examID))
	if err != nil {
		return model.GradedResult{}, err
	}
	if !exam.Graded() {
		return model.GradedResult{}, fmt.Errorf("%w: %s", model.ErrNotYetGraded, exam.ID)
	}
	return gradedResult(exam.ID, exam.Topic, *exam.Grading), nil
}

func gradedResult(examID, topic string, g model.Grading) model.GradedResult {
	return model.GradedResult{
		ExamID:          examID,
		Topic:           topic,
		Score:           g.Score,
		Grade:           LetterGrade(g.Score),
		CorrectCount:    g.CorrectCount,
		TotalQuestions:  g.TotalQuestions,
		DetailedResults: g.DetailedResults,
		GradedAt:        g.GradedAt,
	}
}

// LetterGrade maps a percentage to A-F. Boundaries belong to the higher grade.
func LetterGrade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
