package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/types"
)

const testProject = "11111111-2222-3333-4444-555555555555"

// newTestStore opens a file-backed store in a temp dir. File-backed rather
// than :memory: because the shared-cache memory database is process-global
// and would leak state between tests.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTask(projectID string, origin types.Origin, sourceID *string) *types.Task {
	return &types.Task{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Text:      "a task",
		Stage:     types.StageIdentification,
		Origin:    origin,
		Source:    origin,
		SourceID:  sourceID,
	}
}

func strptr(s string) *string { return &s }

func TestCreateAndGetTask(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	prio := types.PriorityHigh
	task := newTask(testProject, types.OriginFactor, strptr("identification-1.1"))
	task.Notes = "some notes"
	task.Priority = &prio
	task.DueDate = &due

	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	got, err := store.GetTask(ctx, testProject, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Text != "a task" || got.Notes != "some notes" {
		t.Errorf("unexpected fields: text=%q notes=%q", got.Text, got.Notes)
	}
	if got.Priority == nil || *got.Priority != types.PriorityHigh {
		t.Errorf("priority not round-tripped: %v", got.Priority)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("dueDate not round-tripped: %v", got.DueDate)
	}
	if got.SourceID == nil || *got.SourceID != "identification-1.1" {
		t.Errorf("sourceId not round-tripped: %v", got.SourceID)
	}
	if got.Source != got.Origin {
		t.Errorf("source %q diverges from origin %q", got.Source, got.Origin)
	}
	if got.Status != types.StatusPending {
		t.Errorf("derived status = %q, want %q", got.Status, types.StatusPending)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestGetTaskNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetTask(context.Background(), testProject, uuid.NewString())
	if !storage.IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateTaskDuplicateSourceIDConflicts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateTask(ctx, newTask(testProject, types.OriginFactor, strptr("closure-4.1"))); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	err := store.CreateTask(ctx, newTask(testProject, types.OriginFactor, strptr("closure-4.1")))
	if !storage.IsConflict(err) {
		t.Errorf("expected ErrConflict for duplicate (project, sourceId), got %v", err)
	}

	// Same sourceId in a different project is fine.
	other := uuid.NewString()
	if err := store.CreateTask(ctx, newTask(other, types.OriginFactor, strptr("closure-4.1"))); err != nil {
		t.Errorf("same sourceId in another project should not conflict: %v", err)
	}
}

func TestCustomTasksExemptFromSourceConstraint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// source_id is NULL for custom tasks; the partial unique index must not
	// collapse them.
	for i := 0; i < 3; i++ {
		if err := store.CreateTask(ctx, newTask(testProject, types.OriginCustom, nil)); err != nil {
			t.Fatalf("custom task %d failed: %v", i, err)
		}
	}
}

func TestCreateTaskIfAbsentIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := newTask(testProject, types.OriginFactor, strptr("definition-2.1"))
	inserted, err := store.CreateTaskIfAbsent(ctx, first)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}

	second := newTask(testProject, types.OriginFactor, strptr("definition-2.1"))
	inserted, err = store.CreateTaskIfAbsent(ctx, second)
	if err != nil {
		t.Fatalf("second insert errored: %v", err)
	}
	if inserted {
		t.Error("second insert for the same (project, sourceId) must be a no-op")
	}

	tasks, err := store.ListTasks(ctx, testProject)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("expected 1 row, got %d", len(tasks))
	}
}

func TestCreateTaskIfAbsentConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Two concurrent first-load seeding attempts must not duplicate rows.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := newTask(testProject, types.OriginFactor, strptr("delivery-3.1"))
			if _, err := store.CreateTaskIfAbsent(ctx, task); err != nil {
				t.Errorf("concurrent insert failed: %v", err)
			}
		}()
	}
	wg.Wait()

	tasks, err := store.ListTasks(ctx, testProject)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("expected 1 row after concurrent inserts, got %d", len(tasks))
	}
}

func TestUpdateTask(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	prio := types.PriorityLow
	task := newTask(testProject, types.OriginFactor, strptr("identification-1.2"))
	task.Priority = &prio
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	updated, err := store.UpdateTask(ctx, testProject, task.ID, map[string]interface{}{
		"completed": true,
		"notes":     "done early",
	})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if !updated.Completed || updated.Notes != "done early" {
		t.Errorf("update not applied: completed=%v notes=%q", updated.Completed, updated.Notes)
	}
	if updated.Status != types.StatusCompleted {
		t.Errorf("derived status = %q, want %q", updated.Status, types.StatusCompleted)
	}
	// Untouched fields survive.
	if updated.Priority == nil || *updated.Priority != types.PriorityLow {
		t.Errorf("priority changed by unrelated update: %v", updated.Priority)
	}
	// Identity fields survive.
	if updated.ID != task.ID || updated.Origin != task.Origin || *updated.SourceID != *task.SourceID {
		t.Error("identity fields changed by update")
	}
}

func TestUpdateTaskClearsNullableFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	prio := types.PriorityMedium
	task := newTask(testProject, types.OriginCustom, nil)
	task.Priority = &prio
	task.DueDate = &due
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	updated, err := store.UpdateTask(ctx, testProject, task.ID, map[string]interface{}{
		"priority": nil,
		"dueDate":  nil,
	})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated.Priority != nil {
		t.Errorf("priority not cleared: %v", *updated.Priority)
	}
	if updated.DueDate != nil {
		t.Errorf("dueDate not cleared: %v", *updated.DueDate)
	}
}

func TestUpdateTaskRejectsUnknownAndProvenanceFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := newTask(testProject, types.OriginCustom, nil)
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	for _, field := range []string{"origin", "source", "sourceId", "source_id", "id", "bogus"} {
		if _, err := store.UpdateTask(ctx, testProject, task.ID, map[string]interface{}{field: "x"}); err == nil {
			t.Errorf("update through field %q should be rejected", field)
		}
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.UpdateTask(context.Background(), testProject, uuid.NewString(), map[string]interface{}{"completed": true})
	if !storage.IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := newTask(testProject, types.OriginCustom, nil)
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if err := store.DeleteTask(ctx, testProject, task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := store.GetTask(ctx, testProject, task.ID); !storage.IsNotFound(err) {
		t.Errorf("row still present after delete: %v", err)
	}
	if err := store.DeleteTask(ctx, testProject, task.ID); !storage.IsNotFound(err) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestListTasksStageOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stages := []types.Stage{types.StageClosure, types.StageIdentification, types.StageDelivery, types.StageDefinition}
	for _, st := range stages {
		task := newTask(testProject, types.OriginCustom, nil)
		task.Stage = st
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	tasks, err := store.ListTasks(ctx, testProject)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	want := []types.Stage{types.StageIdentification, types.StageDefinition, types.StageDelivery, types.StageClosure}
	for i, task := range tasks {
		if task.Stage != want[i] {
			t.Errorf("position %d: stage = %q, want %q", i, task.Stage, want[i])
		}
	}
}

func TestSourceOriginCheckConstraint(t *testing.T) {
	store := newTestStore(t)

	// The schema-level CHECK backs up construction-time validation: a row
	// with diverging source and origin must not be storable at all.
	_, err := store.UnderlyingDB().Exec(`
		INSERT INTO project_tasks (id, project_id, text, stage, completed, notes, origin, source, source_id, created_at, updated_at)
		VALUES (?, ?, 'x', 'Identification', 0, '', 'factor', 'custom', 'identification-1.1', ?, ?)`,
		uuid.NewString(), testProject, time.Now(), time.Now(),
	)
	if err == nil {
		t.Error("insert with source != origin should violate the CHECK constraint")
	}
}
