// Package tutor implements tutoring sessions, exam generation and grading,
// profile aggregation and concept explanations on top of a Store and a
// language backend.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pavelanni/tutor/internal/admission"
	"github.com/pavelanni/tutor/internal/llm"
	"github.com/pavelanni/tutor/internal/metrics"
	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/store"
)

// Sampling temperatures per generation call.
const (
	tempConversation = 0.7
	tempExam         = 0.3
	tempLearningPath = 0.4
	tempFeedback     = 0.6
	tempExplain      = 0.6
)

// Generator produces text for a request. *llm.Client satisfies it and
// reports every failure as model.ErrGenerationFailed.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (string, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Store     store.Store
	LLM       Generator
	Gate      *admission.Gate
	Metrics   *metrics.Metrics
	Concepts  ConceptExtractor
	Config    model.TutorConfig
	Now       func() time.Time
	NewID     func() string
	Validator *validator.Validate
}

// Service implements every tutoring operation.
type Service struct {
	store    store.Store
	llm      Generator
	gate     *admission.Gate
	metrics  *metrics.Metrics
	concepts ConceptExtractor
	cfg      model.TutorConfig
	now      func() time.Time
	newID    func() string
	validate *validator.Validate

	sessionLocks *keyedMutex
	examLocks    *keyedMutex
}

// New creates a Service. Store, LLM and Gate are required.
func New(d Deps) *Service {
	if d.Concepts == nil {
		d.Concepts = NopExtractor{}
	}
	if d.Config.ContextTurns <= 0 {
		d.Config.ContextTurns = model.DefaultContextTurns
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Validator == nil {
		d.Validator = NewValidator()
	}
	return &Service{
		store:        d.Store,
		llm:          d.LLM,
		gate:         d.Gate,
		metrics:      d.Metrics,
		concepts:     d.Concepts,
		cfg:          d.Config,
		now:          d.Now,
		newID:        d.NewID,
		validate:     d.Validator,
		sessionLocks: newKeyedMutex(),
		examLocks:    newKeyedMutex(),
	}
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// admit consumes one unit of the global request budget.
func (s *Service) admit(op string) error {
	if err := s.gate.Admit(); err != nil {
		s.metrics.AdmissionDenied()
		slog.Warn("request denied", "operation", op, "limit", s.gate.Limit())
		return err
	}
	return nil
}

// check validates a normalized request payload.
func (s *Service) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return fmt.Errorf("%w: %s", model.ErrValidation, strings.Join(msgs, "; "))
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

// observe records the outcome of an operation.
func (s *Service) observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, model.ErrAdmissionDenied):
		result = "denied"
	case errors.Is(err, model.ErrValidation):
		result = "invalid"
	case errors.Is(err, model.ErrNotFound):
		result = "not_found"
	case isGenerationError(err):
		result = "generation_failed"
	default:
		result = "error"
	}
	s.metrics.Operation(op, result)
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

// isGenerationError reports whether err came from the backend or its output.
func isGenerationError(err error) bool {
	return errors.Is(err, model.ErrGenerationFailed) || errors.Is(err, model.ErrMalformedGeneration)
}
