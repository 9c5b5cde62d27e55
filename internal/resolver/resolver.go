// Package resolver locates the single authoritative task row for a caller
// supplied identifier within a project scope.
//
// Callers reference tasks by three kinds of identifier: the row UUID, a
// legacy compound id (UUID plus suffix), or a canonical template id when they
// only know a task's framework origin. The resolver tries an explicit chain
// of strategies in priority order and short-circuits on the first hit; it
// never uses error handling as inter-strategy control flow.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/taskdeck/taskdeck/internal/idnorm"
	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/templates"
	"github.com/taskdeck/taskdeck/internal/types"
)

// Via names the strategy that produced a match.
type Via string

const (
	ViaExact    Via = "exact"
	ViaSourceID Via = "source_id"
	ViaPrefix   Via = "prefix"
)

// Resolution records how a raw identifier was resolved. It is a contract
// output of every Resolve call, not an optional log line: knowing which
// strategy fired is essential when diagnosing persistence issues.
type Resolution struct {
	RawID      string `json:"rawId"`
	MatchedID  string `json:"matchedId,omitempty"`
	MatchedVia Via    `json:"matchedVia,omitempty"`
}

// NotFoundError is returned when no strategy resolved the identifier.
type NotFoundError struct {
	RawID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no task found matching %q", e.RawID)
}

// AmbiguousMatchError is returned when more than one row shares a sourceId.
// This is a provenance invariant violation; resolution must fail loudly
// rather than pick a row arbitrarily.
type AmbiguousMatchError struct {
	RawID      string
	MatchedIDs []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous id %q matches %d tasks: %s", e.RawID, len(e.MatchedIDs), strings.Join(e.MatchedIDs, ", "))
}

// TemplateNotSeededError is returned when the identifier names a canonical
// template that has no row in the project. Distinct from NotFoundError to
// guide the caller toward seeding.
type TemplateNotSeededError struct {
	RawID string
}

func (e *TemplateNotSeededError) Error() string {
	return fmt.Sprintf("template %q has no task in this project; seed the project first", e.RawID)
}

// Resolver resolves raw task identifiers against a project's stored tasks.
type Resolver struct {
	store   storage.Storage
	catalog *templates.Cache
}

// New creates a Resolver. The catalog may be nil, in which case the
// template-id distinction of the final strategy degrades to a shape check.
func New(store storage.Storage, catalog *templates.Cache) *Resolver {
	return &Resolver{store: store, catalog: catalog}
}

// Resolve locates the task row for rawID within projectID.
//
// Strategies, first success wins:
//  1. exact row id match
//  2. sourceId match (ambiguity is an error, never silently resolved)
//  3. prefix match against normalized ids (legacy compound rows), with a
//     well-formed-partial-UUID guard and earliest-createdAt tie-break
//
// The returned Resolution is populated on success and carries the raw id on
// failure so callers can log it alongside the error.
func (r *Resolver) Resolve(ctx context.Context, projectID, rawID string) (*types.Task, Resolution, error) {
	res := Resolution{RawID: rawID}
	if rawID == "" {
		return nil, res, &NotFoundError{RawID: rawID}
	}

	// Strategy 1: exact id match. Unambiguous, highest priority.
	task, err := r.byExactID(ctx, projectID, rawID)
	if err != nil {
		return nil, res, err
	}
	if task != nil {
		res.MatchedID = task.ID
		res.MatchedVia = ViaExact
		return task, res, nil
	}

	// Strategy 2: sourceId match, for callers that only know the canonical
	// template origin of a task.
	task, err = r.bySourceID(ctx, projectID, rawID)
	if err != nil {
		return nil, res, err
	}
	if task != nil {
		res.MatchedID = task.ID
		res.MatchedVia = ViaSourceID
		return task, res, nil
	}

	// Strategy 3: prefix match over the project's tasks. O(n) scan; fine at
	// tens to low hundreds of tasks per project.
	task, err = r.byPrefix(ctx, projectID, rawID)
	if err != nil {
		return nil, res, err
	}
	if task != nil {
		res.MatchedID = task.ID
		res.MatchedVia = ViaPrefix
		return task, res, nil
	}

	// No strategy fired. If the identifier names a canonical template, the
	// project was likely never seeded; report that distinctly.
	if r.isTemplateID(rawID) {
		return nil, res, &TemplateNotSeededError{RawID: rawID}
	}
	return nil, res, &NotFoundError{RawID: rawID}
}

func (r *Resolver) byExactID(ctx context.Context, projectID, rawID string) (*types.Task, error) {
	task, err := r.store.GetTask(ctx, projectID, rawID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("exact id lookup: %w", err)
	}
	return task, nil
}

func (r *Resolver) bySourceID(ctx context.Context, projectID, rawID string) (*types.Task, error) {
	matches, err := r.store.GetTasksBySourceID(ctx, projectID, rawID)
	if err != nil {
		return nil, fmt.Errorf("source id lookup: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return nil, &AmbiguousMatchError{RawID: rawID, MatchedIDs: ids}
	}
}

func (r *Resolver) byPrefix(ctx context.Context, projectID, rawID string) (*types.Task, error) {
	norm := idnorm.Normalize(rawID)
	prefixOK := idnorm.IsPartialUUID(rawID)

	tasks, err := r.store.ListTasks(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("prefix scan: %w", err)
	}

	var candidates []*types.Task
	for _, t := range tasks {
		// Legacy compound rows: the stored id reduces to the same UUID as
		// the query.
		if idnorm.Normalize(t.ID) == norm {
			candidates = append(candidates, t)
			continue
		}
		// Partial-UUID prefix. The well-formedness guard keeps a short hex
		// fragment from matching half the project.
		if prefixOK && strings.HasPrefix(t.ID, rawID) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Earliest createdAt wins, id as final tie-break, for determinism.
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0], nil
}

// isTemplateID prefers an authoritative catalog lookup and falls back to the
// shape check when no catalog is wired or the catalog cannot be loaded.
func (r *Resolver) isTemplateID(rawID string) bool {
	if r.catalog != nil {
		if _, ok, err := r.catalog.Lookup(rawID); err == nil {
			if ok {
				return true
			}
		}
	}
	return idnorm.LooksLikeTemplateID(rawID)
}
