package tasks

import (
	"errors"
	"sync"
	"time"

	"github.com/taskdeck/taskdeck/internal/resolver"
)

// Metrics holds in-process telemetry for the task pipeline: how often each
// resolver strategy fires, how resolutions fail, and per-operation counts.
// All methods are nil-safe so wiring metrics stays optional.
type Metrics struct {
	mu sync.Mutex

	resolutionsByVia   map[resolver.Via]int64
	resolutionFailures map[string]int64
	operationCounts    map[string]int64
	operationErrors    map[string]int64

	startTime time.Time
}

// NewMetrics creates an empty metrics recorder.
func NewMetrics() *Metrics {
	return &Metrics{
		resolutionsByVia:   make(map[resolver.Via]int64),
		resolutionFailures: make(map[string]int64),
		operationCounts:    make(map[string]int64),
		operationErrors:    make(map[string]int64),
		startTime:          time.Now(),
	}
}

// RecordResolution counts one resolver call by outcome.
func (m *Metrics) RecordResolution(res resolver.Resolution, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		m.resolutionsByVia[res.MatchedVia]++
		return
	}
	m.resolutionFailures[failureKind(err)]++
}

// RecordOperation counts one mutation pipeline operation.
func (m *Metrics) RecordOperation(op string, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operationCounts[op]++
	if err != nil {
		m.operationErrors[op]++
	}
}

// Snapshot is a point-in-time copy of all counters, shaped for JSON.
type Snapshot struct {
	UptimeSeconds      float64          `json:"uptime_seconds"`
	ResolutionsByVia   map[string]int64 `json:"resolutions_by_via"`
	ResolutionFailures map[string]int64 `json:"resolution_failures"`
	OperationCounts    map[string]int64 `json:"operation_counts"`
	OperationErrors    map[string]int64 `json:"operation_errors"`
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		ResolutionsByVia:   make(map[string]int64),
		ResolutionFailures: make(map[string]int64),
		OperationCounts:    make(map[string]int64),
		OperationErrors:    make(map[string]int64),
	}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	for k, v := range m.resolutionsByVia {
		snap.ResolutionsByVia[string(k)] = v
	}
	for k, v := range m.resolutionFailures {
		snap.ResolutionFailures[k] = v
	}
	for k, v := range m.operationCounts {
		snap.OperationCounts[k] = v
	}
	for k, v := range m.operationErrors {
		snap.OperationErrors[k] = v
	}
	return snap
}

func failureKind(err error) string {
	var (
		notFound  *resolver.NotFoundError
		ambiguous *resolver.AmbiguousMatchError
		notSeeded *resolver.TemplateNotSeededError
	)
	switch {
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &ambiguous):
		return "ambiguous"
	case errors.As(err, &notSeeded):
		return "template_not_seeded"
	default:
		return "storage"
	}
}
