package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	operations      *prometheus.CounterVec
	admissionDenied prometheus.Counter
	llmRequests     *prometheus.CounterVec
	llmLatency      *prometheus.HistogramVec
	examsGraded     prometheus.Counter
	examScore       prometheus.Histogram
}

// New registers collectors with reg. Pass prometheus.NewRegistry() in tests
// to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_operations_total",
			Help: "Operations handled by result",
		}, []string{"operation", "result"}),
		admissionDenied: f.NewCounter(prometheus.CounterOpts{
			Name: "tutor_admission_denied_total",
			Help: "Operations rejected by the global request limit",
		}),
		llmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_llm_requests_total",
			Help: "Language backend calls by backend and result",
		}, []string{"backend", "result"}),
		llmLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tutor_llm_request_duration_seconds",
			Help:    "Language backend call duration including retries",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"backend"}),
		examsGraded: f.NewCounter(prometheus.CounterOpts{
			Name: "tutor_exams_graded_total",
			Help: "Exams graded",
		}),
		examScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tutor_exam_score_percent",
			Help:    "Distribution of exam scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
	}
}

// Operation records the outcome of a service operation.
func (m *Metrics) Operation(op, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
}

// AdmissionDenied records a rejected operation.
func (m *Metrics) AdmissionDenied() {
	if m == nil {
		return
	}
	m.admissionDenied.Inc()
}

// LLMRequest records one backend call.
func (m *Metrics) LLMRequest(backend string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.llmRequests.WithLabelValues(backend, result).Inc()
	m.llmLatency.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// ExamGraded records a graded exam's score.
func (m *Metrics) ExamGraded(score float64) {
	if m == nil {
		return
	}
	m.examsGraded.Inc()
	m.examScore.Observe(score)
}
