// Package storage provides shared types for task storage.
//
// The concrete storage implementation lives in the sqlite sub-package. This
// package holds the interface and sentinel errors referenced by both the
// implementation and its consumers (resolver, tasks service, cmd/taskdeck).
package storage

import (
	"context"
	"errors"

	"github.com/taskdeck/taskdeck/internal/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned on a unique constraint violation, e.g. inserting a
// second row for the same (projectId, sourceId) pair.
var ErrConflict = errors.New("conflict")

// IsNotFound checks if an error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is or wraps ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// Storage is the interface satisfied by *sqlite.Store. Consumers depend on
// this interface rather than the concrete type so that mocks and alternative
// backends can be substituted.
type Storage interface {
	// CreateTask inserts a validated task row. Fails with ErrConflict if the
	// row id or the (projectId, sourceId) pair already exists.
	CreateTask(ctx context.Context, task *types.Task) error

	// CreateTaskIfAbsent inserts a task row unless its (projectId, sourceId)
	// pair is already present. Returns true when a row was inserted. This is
	// the idempotent primitive canonical seeding is built on.
	CreateTaskIfAbsent(ctx context.Context, task *types.Task) (bool, error)

	// GetTask fetches a row by exact id within a project scope.
	GetTask(ctx context.Context, projectID, id string) (*types.Task, error)

	// GetTasksBySourceID fetches all rows in a project carrying the given
	// sourceId. More than one result indicates a provenance invariant
	// violation; callers decide how loudly to fail.
	GetTasksBySourceID(ctx context.Context, projectID, sourceID string) ([]*types.Task, error)

	// ListTasks returns every task in a project, ordered by stage then
	// creation time.
	ListTasks(ctx context.Context, projectID string) ([]*types.Task, error)

	// UpdateTask applies a whitelisted partial update to a row and returns
	// the updated row. Provenance columns are not updatable through this
	// path under any key.
	UpdateTask(ctx context.Context, projectID, id string, updates map[string]interface{}) (*types.Task, error)

	// DeleteTask removes a row by exact id.
	DeleteTask(ctx context.Context, projectID, id string) error

	// Close releases the underlying database handle.
	Close() error
}
