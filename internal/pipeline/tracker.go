package pipeline

import (
	"context"
	"sync"
)

// FailureTracker counts consecutive failed validations per agent. An entry is
// created on the first failure and removed entirely on the next success.
//
// Racing calls for one agent are last-write-wins; implementations only need
// to converge, not linearize.
type FailureTracker interface {
	// Failures returns the agent's current consecutive-failure count
	Failures(ctx context.Context, agentID string) (int, error)
	// RecordFailure increments the count, remembers the payload hash and
	// returns the new count
	RecordFailure(ctx context.Context, agentID, payloadHash string) (int, error)
	// Reset removes the agent's entry
	Reset(ctx context.Context, agentID string) error
}

type failureEntry struct {
	count           int
	lastPayloadHash string
}

// MemoryFailureTracker is the process-local FailureTracker. Separate service
// instances each keep their own counts.
type MemoryFailureTracker struct {
	mu      sync.Mutex
	entries map[string]*failureEntry
}

// NewMemoryFailureTracker creates an empty in-memory tracker
func NewMemoryFailureTracker() *MemoryFailureTracker {
	return &MemoryFailureTracker{entries: make(map[string]*failureEntry)}
}

// Failures implements FailureTracker
func (t *MemoryFailureTracker) Failures(_ context.Context, agentID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[agentID]; ok {
		return e.count, nil
	}
	return 0, nil
}

// RecordFailure implements FailureTracker
func (t *MemoryFailureTracker) RecordFailure(_ context.Context, agentID, payloadHash string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[agentID]
	if !ok {
		e = &failureEntry{}
		t.entries[agentID] = e
	}
	e.count++
	e.lastPayloadHash = payloadHash
	return e.count, nil
}

// Reset implements FailureTracker
func (t *MemoryFailureTracker) Reset(_ context.Context, agentID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, agentID)
	return nil
}

// LastPayloadHash returns the hash recorded with the agent's latest failure
func (t *MemoryFailureTracker) LastPayloadHash(agentID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[agentID]
	if !ok {
		return "", false
	}
	return e.lastPayloadHash, true
}

// Len returns the number of agents with a tracked failure streak
func (t *MemoryFailureTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
