// Package testutil provides test doubles shared across packages: an
// in-memory catalog datastore and a mock Twitch Helix server.
package testutil

import (
	"context"
	"sync"

	"github.com/onnwee/chatkeeper/catalog"
)

// MemStore is an in-memory catalog.Datastore for tests. It records every
// committed snapshot so tests can assert on persistence behavior.
type MemStore struct {
	mu      sync.Mutex
	Initial catalog.Snapshot
	Commits []catalog.Snapshot
	// FailCommits makes Commit return this error when non-nil.
	FailCommits error
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load returns the last committed snapshot, or Initial before any commit.
func (m *MemStore) Load(_ context.Context) (catalog.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commits) > 0 {
		return m.Commits[len(m.Commits)-1], nil
	}
	return m.Initial, nil
}

// Commit records the snapshot.
func (m *MemStore) Commit(_ context.Context, snap catalog.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCommits != nil {
		return m.FailCommits
	}
	m.Commits = append(m.Commits, snap)
	return nil
}

// LastCommit returns the most recent committed snapshot.
func (m *MemStore) LastCommit() (catalog.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commits) == 0 {
		return catalog.Snapshot{}, false
	}
	return m.Commits[len(m.Commits)-1], true
}
