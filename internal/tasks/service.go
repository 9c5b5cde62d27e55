// Package tasks implements the task mutation pipeline: create, partial
// update, delete and canonical seeding, all funneled through the resolver so
// that every caller-supplied identifier goes through the same lookup chain.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck/internal/resolver"
	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/templates"
	"github.com/taskdeck/taskdeck/internal/types"
)

// ErrValidation is wrapped by every malformed-payload failure.
var ErrValidation = errors.New("invalid task payload")

// ErrNotDeletable is returned when deletion is attempted on a task whose
// origin forbids it. Success-factor tasks are permanently non-deletable.
var ErrNotDeletable = errors.New("task is not deletable")

// Service applies task mutations against a store, enforcing field-level write
// rules and the provenance invariants.
type Service struct {
	store    storage.Storage
	catalog  *templates.Cache
	resolver *resolver.Resolver
	metrics  *Metrics
	logger   *log.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger attaches a logger for resolution records. Every resolve emits
// one line naming the strategy that fired.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a task service over the given store and template catalog.
func NewService(store storage.Storage, catalog *templates.Cache, opts ...Option) *Service {
	s := &Service{
		store:    store,
		catalog:  catalog,
		resolver: resolver.New(store, catalog),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest carries the fields accepted when creating a task. Source is
// parsed but never honored: it is always forced equal to Origin.
type CreateRequest struct {
	Text      string          `json:"text"`
	Stage     types.Stage     `json:"stage"`
	Completed bool            `json:"completed"`
	Notes     string          `json:"notes"`
	Priority  *types.Priority `json:"priority"`
	DueDate   *time.Time      `json:"dueDate"`
	Origin    types.Origin    `json:"origin"`
	Source    types.Origin    `json:"source"`
	SourceID  *string         `json:"sourceId"`
}

// Create inserts a new task. Origin defaults to custom when absent; source
// always mirrors origin regardless of what the caller sent; canonical origins
// must reference an existing catalog item.
func (s *Service) Create(ctx context.Context, projectID string, req CreateRequest) (*types.Task, error) {
	origin := req.Origin
	if origin == "" {
		origin = types.OriginCustom
	}
	if !origin.IsValid() {
		return nil, fmt.Errorf("%w: invalid origin %q", ErrValidation, req.Origin)
	}

	task := &types.Task{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Text:      req.Text,
		Stage:     req.Stage,
		Completed: req.Completed,
		Notes:     req.Notes,
		Priority:  req.Priority,
		DueDate:   req.DueDate,
		Origin:    origin,
		Source:    origin,
		SourceID:  req.SourceID,
	}
	if origin == types.OriginCustom {
		// Custom tasks never reference a template, whatever the caller sent.
		task.SourceID = nil
	} else {
		if task.SourceID == nil || *task.SourceID == "" {
			return nil, fmt.Errorf("%w: origin %q requires a sourceId", ErrValidation, origin)
		}
		if _, ok, err := s.catalog.Lookup(*task.SourceID); err != nil {
			return nil, fmt.Errorf("template catalog unavailable: %w", err)
		} else if !ok {
			return nil, fmt.Errorf("%w: sourceId %q is not a known template", ErrValidation, *task.SourceID)
		}
	}

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		s.metrics.RecordOperation("create", err)
		return nil, err
	}
	s.metrics.RecordOperation("create", nil)
	return task, nil
}

// Get resolves rawID and returns the matching task.
func (s *Service) Get(ctx context.Context, projectID, rawID string) (*types.Task, resolver.Resolution, error) {
	return s.resolve(ctx, projectID, rawID)
}

// List returns all tasks in a project, ordered by stage then creation time.
func (s *Service) List(ctx context.Context, projectID string) ([]*types.Task, error) {
	tasks, err := s.store.ListTasks(ctx, projectID)
	s.metrics.RecordOperation("list", err)
	return tasks, err
}

// Update resolves rawID and applies the partial update carried in patch.
//
// Only fields explicitly present in the payload are touched. Explicit null
// clears dueDate and priority. Identity and provenance keys (id, projectId,
// origin, source, sourceId, status, createdAt, updatedAt) are ignored, never
// applied; the result's identity fields are guaranteed identical to the
// pre-update row no matter which resolver strategy matched.
func (s *Service) Update(ctx context.Context, projectID, rawID string, patch json.RawMessage) (*types.Task, resolver.Resolution, error) {
	updates, err := parsePatch(patch)
	if err != nil {
		return nil, resolver.Resolution{RawID: rawID}, err
	}

	task, res, err := s.resolve(ctx, projectID, rawID)
	if err != nil {
		return nil, res, err
	}

	updated, err := s.store.UpdateTask(ctx, projectID, task.ID, updates)
	if err != nil {
		s.metrics.RecordOperation("update", err)
		return nil, res, err
	}
	if err := verifyIdentityPreserved(task, updated); err != nil {
		s.metrics.RecordOperation("update", err)
		return nil, res, err
	}
	s.metrics.RecordOperation("update", nil)
	return updated, res, nil
}

// Delete resolves rawID and removes the row, unless its origin forbids
// deletion. The guard runs before storage is touched.
func (s *Service) Delete(ctx context.Context, projectID, rawID string) (resolver.Resolution, error) {
	task, res, err := s.resolve(ctx, projectID, rawID)
	if err != nil {
		return res, err
	}
	if task.Origin == types.OriginFactor {
		s.metrics.RecordOperation("delete", ErrNotDeletable)
		return res, fmt.Errorf("%w: success-factor task %s", ErrNotDeletable, task.ID)
	}
	if err := s.store.DeleteTask(ctx, projectID, task.ID); err != nil {
		s.metrics.RecordOperation("delete", err)
		return res, err
	}
	s.metrics.RecordOperation("delete", nil)
	return res, nil
}

// Seed clones every catalog template not already represented in the project
// (by sourceId) into a new task row. Idempotent: repeated and concurrent
// calls insert each template at most once, enforced by the storage-level
// unique constraint rather than by lookups.
func (s *Service) Seed(ctx context.Context, projectID string) (int, error) {
	if projectID == "" {
		return 0, fmt.Errorf("%w: projectId is required", ErrValidation)
	}
	items, err := s.catalog.Items()
	if err != nil {
		s.metrics.RecordOperation("seed", err)
		return 0, fmt.Errorf("template catalog unavailable: %w", err)
	}

	inserted := 0
	for _, item := range items {
		sourceID := item.ID
		task := &types.Task{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			Text:      item.Text,
			Stage:     item.Stage,
			Completed: false,
			Origin:    item.Category,
			Source:    item.Category,
			SourceID:  &sourceID,
		}
		ok, err := s.store.CreateTaskIfAbsent(ctx, task)
		if err != nil {
			s.metrics.RecordOperation("seed", err)
			return inserted, fmt.Errorf("seed template %s: %w", item.ID, err)
		}
		if ok {
			inserted++
		}
	}
	s.metrics.RecordOperation("seed", nil)
	return inserted, nil
}

func (s *Service) resolve(ctx context.Context, projectID, rawID string) (*types.Task, resolver.Resolution, error) {
	task, res, err := s.resolver.Resolve(ctx, projectID, rawID)
	s.metrics.RecordResolution(res, err)
	if s.logger != nil {
		if err != nil {
			s.logger.Printf("resolve project=%s rawId=%q failed: %v", projectID, rawID, err)
		} else {
			s.logger.Printf("resolve project=%s rawId=%q matchedId=%s via=%s", projectID, rawID, res.MatchedID, res.MatchedVia)
		}
	}
	return task, res, err
}

// verifyIdentityPreserved fails loudly if an update changed identity or
// provenance fields. This should be unreachable; tripping it means a write
// path regressed.
func verifyIdentityPreserved(before, after *types.Task) error {
	if after.ID != before.ID || after.Origin != before.Origin || after.Source != before.Source {
		return fmt.Errorf("identity fields changed during update of %s", before.ID)
	}
	switch {
	case before.SourceID == nil && after.SourceID != nil,
		before.SourceID != nil && after.SourceID == nil,
		before.SourceID != nil && after.SourceID != nil && *before.SourceID != *after.SourceID:
		return fmt.Errorf("sourceId changed during update of %s", before.ID)
	}
	return nil
}
