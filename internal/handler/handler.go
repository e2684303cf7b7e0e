package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pavelanni/tutor/internal/admission"
	"github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/tutor"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	svc      *tutor.Service
	gate     *admission.Gate
	backend  string
	gatherer prometheus.Gatherer
}

// New creates a new Handler. backend names the language backend in /healthz.
func New(svc *tutor.Service, gate *admission.Gate, backend string, gatherer prometheus.Gatherer) *Handler {
	return &Handler{svc: svc, gate: gate, backend: backend, gatherer: gatherer}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/chat/", h.handleLegacyChat)

	r.Route("/tutoring", func(r chi.Router) {
		r.Post("/start/", h.handleStartSession)
		r.Post("/chat/", h.handleChat)
		r.Get("/session/{sessionID}/progress/", h.handleProgress)
	})

	r.Route("/exam", func(r chi.Router) {
		r.Post("/generate/", h.handleGenerateExam)
		r.Post("/submit/", h.handleSubmitExam)
		r.Get("/{examID}/results/", h.handleExamResults)
	})

	r.Route("/learning", func(r chi.Router) {
		r.Post("/path/", h.handleLearningPath)
		r.Post("/explain/", h.handleExplain)
	})

	r.Get("/user/{userID}/profile/", h.handleProfile)

	r.Get("/healthz", h.handleHealth)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
}

func (h *Handler) handleLegacyChat(w http.ResponseWriter, r *http.Request) {
	var req model.LegacyChatRequest
	if !decode(w, r, &req) {
		return
	}
	reply, err := h.svc.LegacyChat(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "ResourceItem")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req model.StartSessionRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.StartSession(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "ResourceSession")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.ContinueChat(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "ResourceSession")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetProgress(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err, "ResourceSession")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleGenerateExam(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateExamRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.GenerateExam(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "ResourceSession")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleSubmitExam(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitExamRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.SubmitExam(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "ResourceExam")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleExamResults(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetResults(chi.URLParam(r, "examID"))
	if err != nil {
		h.writeError(w, r, err, "ResourceExam")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleLearningPath(w http.ResponseWriter, r *http.Request) {
	var req model.LearningPathRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.GetLearningPath(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "ResourceUser")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req model.ExplainRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.ExplainConcept(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "ResourceItem")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetProfile(chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, r, err, "ResourceUser")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	remaining := h.gate.Remaining()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"backend":            h.backend,
		"request_limit":      h.gate.Limit(),
		"requests_remaining": remaining,
		"message":            i18n.Tp(r.Context(), "RequestsRemaining", remaining),
	})
}

// decode reads a JSON request body into v. On failure it writes a 400
// response and returns false.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:  i18n.T(r.Context(), "ErrBadRequestBody"),
			Detail: err.Error(),
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
