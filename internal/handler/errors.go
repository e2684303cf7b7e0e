package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/model"
)

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// statusFor maps service errors to an HTTP status and a message ID.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "ErrValidation"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "ErrNotFound"
	case errors.Is(err, model.ErrAdmissionDenied):
		return http.StatusTooManyRequests, "ErrAdmissionDenied"
	case errors.Is(err, model.ErrMalformedGeneration) && !errors.Is(err, model.ErrGenerationFailed):
		return http.StatusInternalServerError, "ErrMalformedGeneration"
	case errors.Is(err, model.ErrGenerationFailed):
		return http.StatusInternalServerError, "ErrGenerationFailed"
	case errors.Is(err, model.ErrNotYetGraded):
		return http.StatusConflict, "ErrNotYetGraded"
	case errors.Is(err, model.ErrAlreadyGraded):
		return http.StatusConflict, "ErrAlreadyGraded"
	default:
		return http.StatusInternalServerError, "ErrInternal"
	}
}

// writeError writes a localized error body. resource names the entity kind
// for not-found messages.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	status, msgID := statusFor(err)

	var msg string
	switch msgID {
	case "ErrNotFound":
		msg = i18n.Td(r.Context(), msgID, map[string]any{"Resource": i18n.T(r.Context(), resource)})
	case "ErrAdmissionDenied":
		msg = i18n.Td(r.Context(), msgID, map[string]any{"Limit": h.gate.Limit()})
	default:
		msg = i18n.T(r.Context(), msgID)
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: msg, Detail: err.Error()})
}
