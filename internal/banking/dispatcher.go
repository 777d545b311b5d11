// Package banking runs account commands against the event store and exposes
// the projected read side.
package banking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eventledger/eventledger/internal/account"
	"github.com/eventledger/eventledger/internal/eventbus"
	"github.com/eventledger/eventledger/internal/eventstore"
	"github.com/eventledger/eventledger/internal/lock"
)

// ErrLockTimeout is returned when the account locks a command needs could not
// be taken before the lock deadline or the caller's context ended.
var ErrLockTimeout = errors.New("timed out waiting for account lock")

// Dispatcher executes commands one aggregate at a time: lock, load, fold,
// decide, append, publish, unlock.
type Dispatcher struct {
	store       eventstore.Store
	locks       *lock.Manager
	bus         *eventbus.Bus
	lockTimeout time.Duration
}

// NewDispatcher wires a dispatcher. A zero lockTimeout waits for locks until
// the caller's context ends.
func NewDispatcher(store eventstore.Store, locks *lock.Manager, bus *eventbus.Bus, lockTimeout time.Duration) *Dispatcher {
	return &Dispatcher{store: store, locks: locks, bus: bus, lockTimeout: lockTimeout}
}

// Dispatch runs cmd to completion. Events are published before the locks are
// released, so subscribers see each account's events in version order.
// Subscribers run inside the lock; anything that does network I/O must hand
// the event off, as eventbus.RedisRelay does.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd account.Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", account.ErrInvalidOperation)
	}

	release, err := d.acquire(ctx, lockIDs(cmd)...)
	if err != nil {
		return err
	}
	defer release()

	id := cmd.Target()
	state := account.Fold(nil)
	if _, fresh := cmd.(account.CreateAccount); !fresh {
		history, err := d.store.Load(ctx, id)
		if err != nil {
			return fmt.Errorf("load account %s: %w", id, err)
		}
		state = account.Fold(history)
	}

	events, err := account.Execute(state, cmd)
	if err != nil {
		return err
	}
	if err := d.store.Append(ctx, id, state.Version, events); err != nil {
		return fmt.Errorf("append to account %s: %w", id, err)
	}

	d.bus.Publish(ctx, events...)
	return nil
}

func (d *Dispatcher) acquire(ctx context.Context, ids ...string) (func(), error) {
	lockCtx := ctx
	if d.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, d.lockTimeout)
		defer cancel()
	}
	release, err := d.locks.Acquire(lockCtx, ids...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockTimeout, err)
	}
	return release, nil
}

func lockIDs(cmd account.Command) []string {
	if t, ok := cmd.(account.Transfer); ok {
		return []string{t.AccountID.String(), t.To.String()}
	}
	return []string{cmd.Target().String()}
}
