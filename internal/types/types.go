// Package types defines core data structures for the taskdeck checklist service.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Origin describes what produced a task row.
type Origin string

const (
	OriginHeuristic Origin = "heuristic"
	OriginFactor    Origin = "factor"
	OriginPolicy    Origin = "policy"
	OriginFramework Origin = "framework"
	OriginCustom    Origin = "custom"
)

// IsValid returns true if the origin is one of the known provenance categories.
func (o Origin) IsValid() bool {
	switch o {
	case OriginHeuristic, OriginFactor, OriginPolicy, OriginFramework, OriginCustom:
		return true
	}
	return false
}

// IsCanonical returns true for origins that must reference a canonical
// template item (everything except custom).
func (o Origin) IsCanonical() bool {
	return o.IsValid() && o != OriginCustom
}

// Stage is the project lifecycle stage a task belongs to.
type Stage string

const (
	StageIdentification Stage = "Identification"
	StageDefinition     Stage = "Definition"
	StageDelivery       Stage = "Delivery"
	StageClosure        Stage = "Closure"
)

// Stages lists all stages in lifecycle order.
var Stages = []Stage{StageIdentification, StageDefinition, StageDelivery, StageClosure}

// IsValid returns true if the stage is one of the four lifecycle stages.
func (s Stage) IsValid() bool {
	switch s {
	case StageIdentification, StageDefinition, StageDelivery, StageClosure:
		return true
	}
	return false
}

// Ordinal returns the position of the stage in lifecycle order, used for
// stable list ordering. Unknown stages sort last.
func (s Stage) Ordinal() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return len(Stages)
}

// Priority is an optional task priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid returns true if the priority is one of low/medium/high.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Display status values derived from Completed. Status is never authoritative
// on its own; it is recomputed from Completed on every read and write.
const (
	StatusCompleted = "Completed"
	StatusPending   = "Pending"
)

// Task is a single checklist row owned by a project.
//
// Provenance fields (Origin, Source, SourceID) are write-once: they are set at
// creation and no mutation path may change them afterward. Source mirrors
// Origin at all times; the two exist separately for historical reasons and
// their equality is enforced at construction.
type Task struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"projectId"`
	Text      string     `json:"text"`
	Stage     Stage      `json:"stage"`
	Completed bool       `json:"completed"`
	Notes     string     `json:"notes,omitempty"`
	Priority  *Priority  `json:"priority,omitempty"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	Status    string     `json:"status"`
	Origin    Origin     `json:"origin"`
	Source    Origin     `json:"source"`
	SourceID  *string    `json:"sourceId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// SyncStatus recomputes the derived Status field from Completed.
func (t *Task) SyncStatus() {
	if t.Completed {
		t.Status = StatusCompleted
	} else {
		t.Status = StatusPending
	}
}

// Validate checks field values and the provenance invariants.
func (t *Task) Validate() error {
	if t.ProjectID == "" {
		return fmt.Errorf("projectId is required")
	}
	if _, err := uuid.Parse(t.ID); err != nil {
		return fmt.Errorf("task id %q is not a well-formed UUID: %w", t.ID, err)
	}
	if t.Text == "" {
		return fmt.Errorf("text is required")
	}
	if len(t.Text) > 1000 {
		return fmt.Errorf("text must be 1000 characters or less (got %d)", len(t.Text))
	}
	if !t.Stage.IsValid() {
		return fmt.Errorf("invalid stage: %q", t.Stage)
	}
	if t.Priority != nil && !t.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %q", *t.Priority)
	}
	if !t.Origin.IsValid() {
		return fmt.Errorf("invalid origin: %q", t.Origin)
	}
	if t.Source != t.Origin {
		return fmt.Errorf("source %q diverges from origin %q", t.Source, t.Origin)
	}
	if t.Origin.IsCanonical() && (t.SourceID == nil || *t.SourceID == "") {
		return fmt.Errorf("origin %q requires a sourceId", t.Origin)
	}
	if t.Origin == OriginCustom && t.SourceID != nil {
		return fmt.Errorf("custom tasks must not carry a sourceId")
	}
	return nil
}
