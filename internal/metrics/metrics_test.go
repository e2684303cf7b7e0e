package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Operation("start_session", "ok")
	m.Operation("start_session", "ok")
	m.Operation("start_session", "validation")
	m.AdmissionDenied()
	m.LLMRequest("gemini", time.Second, nil)
	m.LLMRequest("gemini", time.Second, errors.New("boom"))
	m.ExamGraded(50)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("start_session", "ok")); got != 2 {
		t.Errorf("ok operations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("start_session", "validation")); got != 1 {
		t.Errorf("validation operations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.admissionDenied); got != 1 {
		t.Errorf("admission denied = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.llmRequests.WithLabelValues("gemini", "error")); got != 1 {
		t.Errorf("llm errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.examsGraded); got != 1 {
		t.Errorf("exams graded = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Operation("x", "ok")
	m.AdmissionDenied()
	m.LLMRequest("x", time.Second, nil)
	m.ExamGraded(10)
}
