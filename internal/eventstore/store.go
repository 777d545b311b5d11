// Package eventstore persists account event streams with optimistic
// concurrency control.
package eventstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/eventledger/eventledger/internal/account"
)

var (
	// ErrConcurrency matches every *ConcurrencyError via errors.Is.
	ErrConcurrency = errors.New("concurrency conflict")

	// ErrNoEvents indicates an append with an empty batch.
	ErrNoEvents = errors.New("no events to append")

	// ErrInvalidEvents indicates a batch whose aggregate ids or versions do not
	// continue the target stream.
	ErrInvalidEvents = errors.New("invalid event batch")
)

// ConcurrencyError reports an expected version that did not match the stream.
type ConcurrencyError struct {
	AggregateID account.ID
	Expected    int64
	Actual      int64
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("concurrency error: expected version %d but found %d for aggregate %s", e.Expected, e.Actual, e.AggregateID)
}

// Is lets callers test with errors.Is(err, ErrConcurrency).
func (e *ConcurrencyError) Is(target error) bool {
	return target == ErrConcurrency
}

// IsRetryable reports whether err is a lost version race the caller may retry
// after reloading state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrency)
}

// Store defines the contract implemented by event store backends. Ids that
// are not UUIDs are rejected by every method with account.ErrInvalidID.
type Store interface {
	// Append adds events to the stream of id if its last version equals
	// expectedVersion (0 for an empty stream). All or nothing.
	Append(ctx context.Context, id account.ID, expectedVersion int64, events []account.Event) error
	// Load returns the stream of id in version order, empty for unknown ids.
	Load(ctx context.Context, id account.ID) ([]account.Event, error)
	// ReadAll returns every stored event in global append order.
	ReadAll(ctx context.Context) ([]account.Event, error)
}

// validateBatch checks that events belong to id and continue expectedVersion.
func validateBatch(id account.ID, expectedVersion int64, events []account.Event) error {
	if len(events) == 0 {
		return ErrNoEvents
	}
	for i, e := range events {
		if e == nil {
			return fmt.Errorf("%w: event %d is nil", ErrInvalidEvents, i)
		}
		if e.AggregateID() != id {
			return fmt.Errorf("%w: event %d belongs to %s, not %s", ErrInvalidEvents, i, e.AggregateID(), id)
		}
		if want := expectedVersion + int64(i) + 1; e.Version() != want {
			return fmt.Errorf("%w: event %d has version %d, want %d", ErrInvalidEvents, i, e.Version(), want)
		}
	}
	return nil
}
