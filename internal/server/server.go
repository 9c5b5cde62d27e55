// Package server exposes the task pipeline over HTTP. Every response,
// including every error, is JSON with a correct content type: clients treat
// any non-JSON body as a protocol violation, so an HTML fallback page must
// never escape this layer.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/taskdeck/taskdeck/internal/tasks"
	"github.com/taskdeck/taskdeck/internal/types"
)

// DefaultBodyLimit caps request bodies at 1MB; task payloads are small.
const DefaultBodyLimit = 1 << 20

// Server wraps the task service with HTTP endpoints.
type Server struct {
	svc        *tasks.Service
	metrics    *tasks.Metrics
	logger     *log.Logger
	httpServer *http.Server
	listener   net.Listener
	addr       string
	bodyLimit  int64
	mu         sync.RWMutex
}

// New creates an HTTP server around a task service. logger must not be nil;
// infrastructure failures are logged there in full while clients get a
// generic message.
func New(svc *tasks.Service, metrics *tasks.Metrics, logger *log.Logger, addr string) *Server {
	return &Server{
		svc:       svc,
		metrics:   metrics,
		logger:    logger,
		addr:      addr,
		bodyLimit: DefaultBodyLimit,
	}
}

// Start listens and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Handler returns the route table as an http.Handler. Exposed separately
// from Start so tests can drive it with httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("POST /projects/{projectID}/tasks", s.handleCreate)
	mux.HandleFunc("GET /projects/{projectID}/tasks", s.handleList)
	mux.HandleFunc("POST /projects/{projectID}/tasks/seed", s.handleSeed)
	mux.HandleFunc("PUT /projects/{projectID}/tasks/{taskID}", s.handleUpdate)
	mux.HandleFunc("DELETE /projects/{projectID}/tasks/{taskID}", s.handleDelete)
	return mux
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")

	body, err := s.readBody(w, r)
	if err != nil {
		return
	}
	var req tasks.CreateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "INVALID_TASK_PAYLOAD", err.Error())
		return
	}

	task, err := s.svc.Create(r.Context(), projectID, req)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")

	list, err := s.svc.List(r.Context(), projectID)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	if list == nil {
		list = []*types.Task{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	taskID := r.PathValue("taskID")

	body, err := s.readBody(w, r)
	if err != nil {
		return
	}

	task, _, err := s.svc.Update(r.Context(), projectID, taskID, body)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	taskID := r.PathValue("taskID")

	if _, err := s.svc.Delete(r.Context(), projectID, taskID); err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")

	inserted, err := s.svc.Seed(r.Context(), projectID)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"inserted": inserted})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.bodyLimit))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_TASK_PAYLOAD", "failed to read request body")
		return nil, err
	}
	return body, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
