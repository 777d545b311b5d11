// Package lock serializes work on named resources. Multi-resource
// acquisitions take locks in sorted order, so callers with overlapping sets
// cannot deadlock.
package lock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Manager hands out per-resource locks. Waiters on a resource are served in
// arrival order.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

// NewManager creates an empty lock table.
func NewManager() *Manager {
	return &Manager{locks: make(map[string]*semaphore.Weighted)}
}

// Acquire locks every id in ascending order and returns a function that
// releases them in reverse order. Duplicate ids are locked once. If ctx ends
// while waiting, locks taken so far are released and the context error is
// returned.
func (m *Manager) Acquire(ctx context.Context, ids ...string) (func(), error) {
	sorted := normalize(ids)

	held := make([]*semaphore.Weighted, 0, len(sorted))
	for _, id := range sorted {
		sem := m.semaphore(id)
		if err := sem.Acquire(ctx, 1); err != nil {
			releaseReverse(held)
			return nil, fmt.Errorf("acquire lock %q: %w", id, err)
		}
		held = append(held, sem)
	}

	var once sync.Once
	return func() {
		once.Do(func() { releaseReverse(held) })
	}, nil
}

// ReleaseAll forgets every lock. It exists for test isolation and must not be
// called while any lock is held.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = make(map[string]*semaphore.Weighted)
}

func (m *Manager) semaphore(id string) *semaphore.Weighted {
	m.mu.Lock()
	defer m.mu.Unlock()
	sem, ok := m.locks[id]
	if !ok {
		sem = semaphore.NewWeighted(1)
		m.locks[id] = sem
	}
	return sem
}

func normalize(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func releaseReverse(held []*semaphore.Weighted) {
	for i := len(held) - 1; i >= 0; i-- {
		held[i].Release(1)
	}
}
