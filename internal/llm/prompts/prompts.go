package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/tutor/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Fixed system instructions for calls whose user content carries the task.
const (
	ExamSystem         = "You are an expert exam creator. Return only valid JSON."
	FeedbackSystem     = "You are an encouraging tutor providing personalized feedback."
	LearningPathSystem = "You are an educational planning expert. Return only valid JSON."
	ExplainSystem      = "You are an expert educator providing clear, structured explanations."
	AssistantSystem    = "You are a helpful assistant."
)

const maxInputRunes = 10000

var (
	controlTagRegex = regexp.MustCompile(`(?i)</?\s*(system-instructions|session-summary)\b[^>]*>`)
)

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[string]*template.Template
)

var funcs = template.FuncMap{
	"join": func(items []string, fallback string) string {
		if len(items) == 0 {
			return fallback
		}
		return strings.Join(items, ", ")
	},
}

// Prompt is a system instruction plus the content sent to the backend.
type Prompt struct {
	System  string
	Content string
}

// IntroData holds template data for a session introduction.
type IntroData struct {
	Topic      string
	Difficulty string
	Goals      []string
}

// TutorData holds template data for the ongoing tutoring instruction.
type TutorData struct {
	Topic      string
	Difficulty string
	Objectives []string
	Concepts   []string
}

// ExamData holds template data for exam generation.
type ExamData struct {
	Topic             string
	NumQuestions      int
	Difficulty        string
	SessionDifficulty string
	Concepts          []string
	Summary           string
}

// FeedbackData holds template data for exam feedback.
type FeedbackData struct {
	Topic          string
	Score          float64
	CorrectCount   int
	TotalQuestions int
	Results        string
}

// LearningPathData holds template data for learning path generation.
type LearningPathData struct {
	Subject      string
	CurrentLevel string
	Goals        []string
	PastSessions int
}

// ExplainData holds template data for concept explanations.
type ExplainData struct {
	Concept    string
	Context    string
	Difficulty string
	Type       string
}

// Load parses the embedded templates. It is safe to call repeatedly.
func Load() error {
	loadOnce.Do(func() {
		templates = make(map[string]*template.Template)
		for _, name := range []string{"intro", "tutor", "exam", "feedback", "learning_path", "explain"} {
			file := "templates/" + name + ".tmpl"
			content, err := templateFS.ReadFile(file)
			if err != nil {
				loadErr = errors.New("failed to read prompt file " + file + ": " + err.Error())
				return
			}
			tmpl, err := template.New(name).Funcs(funcs).Parse(string(content))
			if err != nil {
				loadErr = errors.New("failed to parse prompt template " + file + ": " + err.Error())
				return
			}
			templates[name] = tmpl
		}
	})
	return loadErr
}

func render(name string, data any) (string, error) {
	if err := Load(); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	var buf bytes.Buffer
	if err := templates[name].Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Intro builds the prompt for a session's first assistant turn.
func Intro(data IntroData) (Prompt, error) {
	system, err := render("intro", data)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{
		System:  system,
		Content: "Start a tutoring session for " + data.Topic,
	}, nil
}

// Tutor builds the prompt for a chat turn from the trailing history window.
func Tutor(data TutorData, window []model.Turn) (Prompt, error) {
	system, err := render("tutor", data)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: system, Content: Transcript(window)}, nil
}

// Exam builds the exam generation prompt.
func Exam(data ExamData) (Prompt, error) {
	data.Summary = stripTags(data.Summary)
	content, err := render("exam", data)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: ExamSystem, Content: content}, nil
}

// Feedback builds the prompt for narrative feedback on a graded exam.
func Feedback(topic string, g model.Grading) (Prompt, error) {
	results, err := json.MarshalIndent(g.DetailedResults, "", "  ")
	if err != nil {
		return Prompt{}, fmt.Errorf("marshal detailed results: %w", err)
	}
	content, err := render("feedback", FeedbackData{
		Topic:          topic,
		Score:          g.Score,
		CorrectCount:   g.CorrectCount,
		TotalQuestions: g.TotalQuestions,
		Results:        string(results),
	})
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: FeedbackSystem, Content: content}, nil
}

// LearningPath builds the learning path prompt.
func LearningPath(data LearningPathData) (Prompt, error) {
	content, err := render("learning_path", data)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: LearningPathSystem, Content: content}, nil
}

// Explain builds the concept explanation prompt.
func Explain(data ExplainData) (Prompt, error) {
	data.Concept = sanitize(data.Concept)
	data.Context = sanitize(data.Context)
	content, err := render("explain", data)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: ExplainSystem, Content: content}, nil
}

// Assistant builds the stateless general assistant prompt.
func Assistant(message string) Prompt {
	return Prompt{System: AssistantSystem, Content: message}
}

// Transcript renders turns as "{Role}: {content}" lines in order.
func Transcript(turns []model.Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString(t.Role.Label() + ": " + t.Content + "\n")
	}
	return sb.String()
}

// Window returns the last n turns, or all of them if n <= 0.
func Window(turns []model.Turn, n int) []model.Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// AssistantSummary joins the assistant turns of a conversation.
func AssistantSummary(turns []model.Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		if t.Role == model.RoleAssistant {
			sb.WriteString(t.Content + "\n")
		}
	}
	return sb.String()
}

// stripTags removes the tags that delimit prompt sections so embedded text
// cannot close them.
func stripTags(s string) string {
	return controlTagRegex.ReplaceAllString(s, "")
}

// sanitize strips section tags and caps free-form request fields.
func sanitize(s string) string {
	s = strings.TrimSpace(stripTags(s))

	if utf8.RuneCountInString(s) > maxInputRunes {
		runes := []rune(s)
		s = string(runes[:maxInputRunes]) + "\n\n[Input truncated due to length]"
	}
	return s
}
