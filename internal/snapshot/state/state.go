// Package state holds the previous-snapshot baselines the alert engine
// diffs against. The interface keeps the backing store swappable without
// touching alert logic.
package state

import (
	"context"
	"sync"

	"github.com/dmehra/oddsradar/internal/snapshot"
)

// PreviousSnapshotStore is keyed by event id. Single writer (the alert
// cycle); read-only elsewhere.
type PreviousSnapshotStore interface {
	Get(ctx context.Context, eventID string) (*snapshot.Snapshot, bool, error)
	Set(ctx context.Context, snap snapshot.Snapshot) error
	Close() error
}

type memoryStore struct {
	mu    sync.RWMutex
	snaps map[string]snapshot.Snapshot
}

// NewMemoryStore builds the default in-process baseline store. It is rebuilt
// on every process start, so the first sighting of an event never alerts.
func NewMemoryStore() PreviousSnapshotStore {
	return &memoryStore{snaps: make(map[string]snapshot.Snapshot)}
}

func (m *memoryStore) Get(_ context.Context, eventID string) (*snapshot.Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[eventID]
	if !ok {
		return nil, false, nil
	}
	return &snap, true, nil
}

func (m *memoryStore) Set(_ context.Context, snap snapshot.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.EventID] = snap
	return nil
}

func (m *memoryStore) Close() error {
	return nil
}
