// Package eventbus fans recorded account events out to in-process
// subscribers.
package eventbus

import (
	"context"
	"sync"

	"github.com/eventledger/eventledger/internal/account"
)

// Handler reacts to a published event. Handlers run synchronously on the
// publisher's goroutine.
type Handler func(ctx context.Context, e account.Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events to the handlers subscribed to their kind, in publish
// order. A new subscriber only sees events published after it subscribed.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[account.Kind][]subscription
}

// New creates a bus with no subscribers.
func New() *Bus {
	return &Bus{subs: make(map[account.Kind][]subscription)}
}

// Subscribe registers handler for events of kind and returns a function that
// removes it. Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(kind account.Kind, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(kind, id) })
	}
}

// Publish delivers each event, in order, to a snapshot of the handlers
// registered for its kind at the time of the call.
func (b *Bus) Publish(ctx context.Context, events ...account.Event) {
	for _, e := range events {
		if e == nil {
			continue
		}
		for _, h := range b.handlers(e.Kind()) {
			h(ctx, e)
		}
	}
}

// Reset drops every subscription.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[account.Kind][]subscription)
}

func (b *Bus) handlers(kind account.Kind) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	subs := b.subs[kind]
	out := make([]Handler, len(subs))
	for i, s := range subs {
		out[i] = s.handler
	}
	return out
}

func (b *Bus) unsubscribe(kind account.Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[kind]
	for i, s := range subs {
		if s.id == id {
			b.subs[kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}
