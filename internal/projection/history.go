package projection

import (
	"context"
	"sort"
	"sync"

	"github.com/eventledger/eventledger/internal/account"
	"github.com/eventledger/eventledger/internal/eventbus"
	"github.com/eventledger/eventledger/internal/money"
)

// Entry types.
const (
	EntryDeposit  = "deposit"
	EntryWithdraw = "withdraw"
	EntryTransfer = "transfer"
)

// Entry is one line of an account's transaction history.
type Entry struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Amount      money.Money `json:"amount"`
	OccurredAt  int64       `json:"occurredAt"`
	ToAccountID account.ID  `json:"toAccountId,omitempty"`
	Version     int64       `json:"version"`
}

// Query narrows a history listing. A zero Limit returns every entry; a nil
// Since applies no time filter.
type Query struct {
	Limit int
	Since *int64
}

// History records deposits, withdrawals and outgoing transfers per account.
type History struct {
	mu      sync.RWMutex
	entries map[account.ID]map[string]Entry
	cancels []func()
}

// NewHistory creates an empty history view.
func NewHistory() *History {
	return &History{entries: make(map[account.ID]map[string]Entry)}
}

// Start subscribes the view to the money movement kinds.
func (p *History) Start(bus *eventbus.Bus) {
	handler := func(_ context.Context, e account.Event) { p.Apply(e) }
	for _, kind := range []account.Kind{
		account.KindMoneyDeposited,
		account.KindMoneyWithdrawn,
		account.KindMoneyTransferred,
	} {
		p.cancels = append(p.cancels, bus.Subscribe(kind, handler))
	}
}

// Stop removes the view's subscriptions.
func (p *History) Stop() {
	for _, cancel := range p.cancels {
		cancel()
	}
	p.cancels = nil
}

// Apply upserts the entry for e. Events other than money movements are
// ignored.
func (p *History) Apply(e account.Event) {
	var entry Entry
	switch ev := e.(type) {
	case account.MoneyDeposited:
		entry = Entry{Type: EntryDeposit, Amount: ev.Amount}
	case account.MoneyWithdrawn:
		entry = Entry{Type: EntryWithdraw, Amount: ev.Amount}
	case account.MoneyTransferred:
		entry = Entry{Type: EntryTransfer, Amount: ev.Amount, ToAccountID: ev.To}
	default:
		return
	}
	entry.ID = account.EntryKey(e.AggregateID(), e.Version(), entry.Type)
	entry.OccurredAt = e.OccurredAt()
	entry.Version = e.Version()

	p.mu.Lock()
	defer p.mu.Unlock()
	stream, ok := p.entries[e.AggregateID()]
	if !ok {
		stream = make(map[string]Entry)
		p.entries[e.AggregateID()] = stream
	}
	stream[entry.ID] = entry
}

// Entries lists the history of id newest first. Entries at or before
// q.Since are dropped before q.Limit is applied.
func (p *History) Entries(id account.ID, q Query) []Entry {
	p.mu.RLock()
	stream := p.entries[id]
	out := make([]Entry, 0, len(stream))
	for _, entry := range stream {
		if q.Since != nil && entry.OccurredAt <= *q.Since {
			continue
		}
		out = append(out, entry)
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAt != out[j].OccurredAt {
			return out[i].OccurredAt > out[j].OccurredAt
		}
		return out[i].Version > out[j].Version
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
