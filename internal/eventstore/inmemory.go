package eventstore

import (
	"context"
	"sync"

	"github.com/eventledger/eventledger/internal/account"
)

type inMemoryStore struct {
	mu      sync.RWMutex
	streams map[account.ID][]account.Event
	global  []account.Event
}

// NewInMemory creates a concurrency-safe in-memory event store.
func NewInMemory() Store {
	return &inMemoryStore{streams: make(map[account.ID][]account.Event)}
}

func (s *inMemoryStore) Append(_ context.Context, id account.ID, expectedVersion int64, events []account.Event) error {
	if _, err := account.ParseID(id.String()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[id]
	var actual int64
	if n := len(stream); n > 0 {
		actual = stream[n-1].Version()
	}
	if actual != expectedVersion {
		return &ConcurrencyError{AggregateID: id, Expected: expectedVersion, Actual: actual}
	}
	if err := validateBatch(id, expectedVersion, events); err != nil {
		return err
	}

	next := make([]account.Event, 0, len(stream)+len(events))
	next = append(next, stream...)
	next = append(next, events...)
	s.streams[id] = next
	s.global = append(s.global, events...)
	return nil
}

func (s *inMemoryStore) Load(_ context.Context, id account.ID) ([]account.Event, error) {
	if _, err := account.ParseID(id.String()); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[id]
	out := make([]account.Event, len(stream))
	copy(out, stream)
	return out, nil
}

func (s *inMemoryStore) ReadAll(_ context.Context) ([]account.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]account.Event, len(s.global))
	copy(out, s.global)
	return out, nil
}
