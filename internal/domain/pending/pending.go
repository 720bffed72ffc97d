// Package pending coalesces duplicate refresh requests per team.
package pending

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker records teams with an in-flight refresh so repeated triggers for
// the same team collapse into one queued update.
type Tracker interface {
	// MarkPending atomically checks whether teamID already has a refresh
	// in flight and marks it if not. Returns true if the team was newly
	// marked and a refresh should be enqueued, false if one is already
	// pending.
	MarkPending(ctx context.Context, teamID string) bool

	// Clear removes the pending mark after a refresh completes or fails,
	// allowing the next trigger to enqueue again.
	Clear(ctx context.Context, teamID string)

	Size() int64
}

// inMemoryTracker implements Tracker with a mutex-guarded set. The set is
// bounded by the number of teams in a session, so no eviction is needed.
type inMemoryTracker struct {
	mu      sync.Mutex
	pending map[string]struct{}
	size    atomic.Int64
}

// NewInMemoryTracker creates a new in-memory tracker.
func NewInMemoryTracker() Tracker {
	return &inMemoryTracker{pending: make(map[string]struct{})}
}

// MarkPending atomically checks and marks teamID.
func (t *inMemoryTracker) MarkPending(_ context.Context, teamID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.pending[teamID]; exists {
		return false
	}
	t.pending[teamID] = struct{}{}
	t.size.Add(1)
	return true
}

// Clear removes the pending mark for teamID.
func (t *inMemoryTracker) Clear(_ context.Context, teamID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.pending[teamID]; exists {
		delete(t.pending, teamID)
		t.size.Add(-1)
	}
}

// Size returns the number of teams with a refresh in flight.
func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
