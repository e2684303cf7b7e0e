package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/tutor/internal/admission"
	"github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/llm"
	"github.com/pavelanni/tutor/internal/metrics"
	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/store"
	"github.com/pavelanni/tutor/internal/tutor"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// stubBackend answers exam prompts with a fixed exam and everything else
// with a canned reply.
type stubBackend struct {
	mu   sync.Mutex
	fail error
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Generate(ctx context.Context, req llm.Request) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return "", b.fail
	}
	switch {
	case req.JSON && strings.Contains(req.Content, "multiple choice"):
		return `{"questions":[{"question_id":1,"question":"Q1?","options":["A) x","B) y"],"correct_answer":"A","explanation":"x is right"},{"question_id":2,"question":"Q2?","options":["A) x","B) y"],"correct_answer":"B","explanation":"y is right"}]}`, nil
	case req.JSON:
		return `{"learning_path":[],"recommended_next_session":"basics","study_tips":["practice"]}`, nil
	default:
		return "Hello from the tutor.", nil
	}
}

func (b *stubBackend) setFail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = err
}

type testServer struct {
	srv     *httptest.Server
	backend *stubBackend
}

func newTestServer(t *testing.T, limit int) *testServer {
	t.Helper()
	be := &stubBackend{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	gate := admission.New(limit, 0)
	client := llm.New(be, llm.Options{Metrics: m})
	svc := tutor.New(tutor.Deps{
		Store:   store.NewMemory(),
		LLM:     client,
		Gate:    gate,
		Metrics: m,
	})

	r := chi.NewRouter()
	r.Use(i18n.Middleware("en"))
	New(svc, gate, client.Name(), reg).Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, backend: be}
}

func (ts *testServer) post(t *testing.T, path string, body any) (int, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.srv.URL+path, "application/json", strings.NewReader(string(data)))
	require.NoError(t, err)
	return decodeResponse(t, resp)
}

func (ts *testServer) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(ts.srv.URL + path)
	require.NoError(t, err)
	return decodeResponse(t, resp)
}

func decodeResponse(t *testing.T, resp *http.Response) (int, map[string]any) {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestTutoringFlow(t *testing.T) {
	ts := newTestServer(t, 100)

	status, start := ts.post(t, "/tutoring/start/", map[string]any{
		"user_id":        "alice",
		"topic":          "Go",
		"learning_goals": []string{"interfaces"},
	})
	require.Equal(t, http.StatusOK, status, start)
	sessionID, _ := start["session_id"].(string)
	require.NotEmpty(t, sessionID)
	assert.Equal(t, "Hello from the tutor.", start["message"])
	assert.Equal(t, "beginner", start["difficulty_level"])

	status, chat := ts.post(t, "/tutoring/chat/", map[string]any{"session_id": sessionID, "message": "What is an interface?"})
	require.Equal(t, http.StatusOK, status, chat)
	assert.Equal(t, "Hello from the tutor.", chat["reply"])

	status, progress := ts.get(t, "/tutoring/session/"+sessionID+"/progress/")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, progress["total_messages"])

	status, exam := ts.post(t, "/exam/generate/", map[string]any{"session_id": sessionID, "num_questions": 2})
	require.Equal(t, http.StatusOK, status, exam)
	examID, _ := exam["exam_id"].(string)
	require.NotEmpty(t, examID)
	questions, _ := exam["questions"].([]any)
	require.Len(t, questions, 2)
	for _, q := range questions {
		qm, _ := q.(map[string]any)
		assert.NotContains(t, qm, "correct_answer")
		assert.NotContains(t, qm, "explanation")
	}

	status, body := ts.get(t, "/exam/"+examID+"/results/")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "This exam has not been graded yet.", body["error"])

	status, graded := ts.post(t, "/exam/submit/", map[string]any{
		"exam_id": examID,
		"answers": map[string]string{"1": "A", "2": "A"},
	})
	require.Equal(t, http.StatusOK, status, graded)
	assert.EqualValues(t, 50, graded["score"])
	assert.Equal(t, "F", graded["grade"])
	assert.Equal(t, "Hello from the tutor.", graded["feedback"])

	status, results := ts.get(t, "/exam/"+examID+"/results/")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, results["correct_count"])
	assert.NotContains(t, results, "feedback")

	status, body = ts.post(t, "/exam/submit/", map[string]any{"exam_id": examID, "answers": map[string]string{"1": "A"}})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Answers for this exam were already submitted.", body["error"])

	status, profile := ts.get(t, "/user/alice/profile/")
	require.Equal(t, http.StatusOK, status)
	sessions, _ := profile["sessions"].([]any)
	history, _ := profile["exam_history"].([]any)
	assert.Len(t, sessions, 1)
	assert.Len(t, history, 1)
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t, 100)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantError  string
	}{
		{"missing topic", http.MethodPost, "/tutoring/start/", map[string]any{"topic": ""}, http.StatusBadRequest, "The request is missing a required field or has an invalid value."},
		{"unknown session chat", http.MethodPost, "/tutoring/chat/", map[string]any{"session_id": "nope", "message": "hi"}, http.StatusNotFound, "The requested session was not found."},
		{"unknown session progress", http.MethodGet, "/tutoring/session/nope/progress/", nil, http.StatusNotFound, "The requested session was not found."},
		{"unknown exam", http.MethodGet, "/exam/nope/results/", nil, http.StatusNotFound, "The requested exam was not found."},
		{"unknown user", http.MethodGet, "/user/nobody/profile/", nil, http.StatusNotFound, "The requested user was not found."},
		{"empty answers", http.MethodPost, "/exam/submit/", map[string]any{"exam_id": "x", "answers": map[string]string{}}, http.StatusBadRequest, "The request is missing a required field or has an invalid value."},
		{"bad explanation type", http.MethodPost, "/learning/explain/", map[string]any{"concept": "x", "type": "poem"}, http.StatusBadRequest, "The request is missing a required field or has an invalid value."},
		{"empty legacy message", http.MethodPost, "/chat/", map[string]any{"message": ""}, http.StatusBadRequest, "The request is missing a required field or has an invalid value."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var status int
			var body map[string]any
			if tt.method == http.MethodGet {
				status, body = ts.get(t, tt.path)
			} else {
				status, body = ts.post(t, tt.path, tt.body)
			}
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantError, body["error"])
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestBadJSONBody(t *testing.T) {
	ts := newTestServer(t, 100)
	resp, err := http.Post(ts.srv.URL+"/tutoring/start/", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	status, body := decodeResponse(t, resp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "The request body is not valid JSON.", body["error"])
}

func TestAdmissionDeniedStatus(t *testing.T) {
	ts := newTestServer(t, 1)

	status, _ := ts.post(t, "/chat/", map[string]any{"message": "hi"})
	require.Equal(t, http.StatusOK, status)

	status, body := ts.post(t, "/chat/", map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "Request limit of 1 reached. Please try again later.", body["error"])

	status, health := ts.get(t, "/healthz")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, health["requests_remaining"])
	assert.Equal(t, "0 requests remaining", health["message"])
}

func TestGenerationFailureStatus(t *testing.T) {
	ts := newTestServer(t, 100)
	ts.backend.setFail(errors.New("model overloaded"))

	status, body := ts.post(t, "/learning/explain/", map[string]any{"concept": "recursion"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "The language model could not produce a response.", body["error"])
	assert.Contains(t, body["detail"], "model overloaded")
}

func TestLearningPathAndLegacyChat(t *testing.T) {
	ts := newTestServer(t, 100)

	status, path := ts.post(t, "/learning/path/", map[string]any{"subject": "Go"})
	require.Equal(t, http.StatusOK, status, path)
	assert.Equal(t, "basics", path["recommended_next_session"])
	assert.Equal(t, []any{}, path["learning_path"])

	status, reply := ts.post(t, "/chat/", map[string]any{"message": "hi"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Hello from the tutor.", reply["reply"])
}

func TestLocalizedErrors(t *testing.T) {
	ts := newTestServer(t, 100)

	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/exam/nope/results/", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "ru")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	status, body := decodeResponse(t, resp)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Запрошенный объект (экзамен) не найден.", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, 100)
	ts.post(t, "/chat/", map[string]any{"message": "hi"})

	resp, err := http.Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `tutor_operations_total{operation="legacy_chat",result="ok"} 1`)
	assert.Contains(t, string(data), `tutor_llm_requests_total{backend="stub",result="ok"} 1`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: x", model.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: x", model.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: x", model.ErrAdmissionDenied), http.StatusTooManyRequests},
		{fmt.Errorf("%w: x", model.ErrGenerationFailed), http.StatusInternalServerError},
		{fmt.Errorf("%w: x", model.ErrMalformedGeneration), http.StatusInternalServerError},
		{fmt.Errorf("%w: x", model.ErrNotYetGraded), http.StatusConflict},
		{fmt.Errorf("%w: x", model.ErrAlreadyGraded), http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := statusFor(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
	}
}
