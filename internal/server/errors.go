package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskdeck/taskdeck/internal/resolver"
	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/tasks"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeMappedError translates a pipeline error into a deterministic HTTP
// status and code. A resolution failure is never converted into a 200, and
// infrastructure failures reach the client as a generic message only; the
// full error is logged server-side.
func (s *Server) writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound  *resolver.NotFoundError
		ambiguous *resolver.AmbiguousMatchError
		notSeeded *resolver.TemplateNotSeededError
	)

	switch {
	case errors.As(err, &notFound):
		s.writeError(w, http.StatusNotFound, "TASK_NOT_FOUND", notFound.Error())

	case errors.As(err, &ambiguous):
		// More than one row shares a sourceId: a data-integrity defect.
		s.logger.Printf("DATA INTEGRITY: %s %s: %v", r.Method, r.URL.Path, err)
		s.writeError(w, http.StatusConflict, "AMBIGUOUS_TASK_ID", ambiguous.Error())

	case errors.As(err, &notSeeded):
		s.writeError(w, http.StatusNotFound, "TEMPLATE_NOT_SEEDED", notSeeded.Error())

	case errors.Is(err, tasks.ErrNotDeletable):
		s.writeError(w, http.StatusForbidden, "TASK_NOT_DELETABLE", err.Error())

	case errors.Is(err, tasks.ErrValidation):
		s.writeError(w, http.StatusUnprocessableEntity, "INVALID_TASK_PAYLOAD", err.Error())

	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "TASK_NOT_FOUND", err.Error())

	case errors.Is(err, storage.ErrConflict):
		s.writeError(w, http.StatusConflict, "DUPLICATE_TASK", err.Error())

	default:
		s.logger.Printf("internal error: %s %s: %v", r.Method, r.URL.Path, err)
		s.writeError(w, http.StatusInternalServerError, "STORAGE_UNAVAILABLE", "internal error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Success: false, Error: code, Message: message})
}
