// Package projection maintains read models derived from published account
// events.
package projection

import (
	"context"
	"sort"
	"sync"

	"github.com/eventledger/eventledger/internal/account"
	"github.com/eventledger/eventledger/internal/eventbus"
	"github.com/eventledger/eventledger/internal/money"
)

// AccountDetails is the balances view of one account.
type AccountDetails struct {
	ID        account.ID  `json:"id"`
	Name      string      `json:"name"`
	Balance   money.Money `json:"balance"`
	CreatedAt int64       `json:"createdAt"`
	UpdatedAt int64       `json:"updatedAt"`
}

// Balances tracks the current balance of every known account. It is inert
// until Start is called.
type Balances struct {
	mu       sync.RWMutex
	accounts map[account.ID]*AccountDetails
	applied  map[string]struct{}
	cancels  []func()
}

// NewBalances creates an empty balances view.
func NewBalances() *Balances {
	return &Balances{
		accounts: make(map[account.ID]*AccountDetails),
		applied:  make(map[string]struct{}),
	}
}

// Start subscribes the view to every event kind it folds.
func (p *Balances) Start(bus *eventbus.Bus) {
	handler := func(_ context.Context, e account.Event) { p.Apply(e) }
	for _, kind := range account.Kinds {
		p.cancels = append(p.cancels, bus.Subscribe(kind, handler))
	}
}

// Stop removes the view's subscriptions. The data already folded is kept.
func (p *Balances) Stop() {
	for _, cancel := range p.cancels {
		cancel()
	}
	p.cancels = nil
}

// Apply folds one event into the view. Delivering the same event twice has
// no further effect.
func (p *Balances) Apply(e account.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := account.EventKey(e)
	if _, seen := p.applied[key]; seen {
		return
	}
	p.applied[key] = struct{}{}

	switch ev := e.(type) {
	case account.AccountCreated:
		p.accounts[ev.AggregateID()] = &AccountDetails{
			ID:        ev.AggregateID(),
			Name:      ev.Name,
			Balance:   ev.InitialBalance,
			CreatedAt: ev.OccurredAt(),
			UpdatedAt: ev.OccurredAt(),
		}
	case account.MoneyDeposited:
		p.credit(ev.AggregateID(), ev.Amount, ev.OccurredAt())
	case account.MoneyWithdrawn:
		p.debit(ev.AggregateID(), ev.Amount, ev.OccurredAt())
	case account.MoneyTransferred:
		p.debit(ev.AggregateID(), ev.Amount, ev.OccurredAt())
		p.credit(ev.To, ev.Amount, ev.OccurredAt())
	}
}

// Balance returns the projected balance of id.
func (p *Balances) Balance(id account.ID) (money.Money, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	acc, ok := p.accounts[id]
	if !ok {
		return money.Zero(), false
	}
	return acc.Balance, true
}

// Account returns a copy of the projected details of id.
func (p *Balances) Account(id account.ID) (AccountDetails, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	acc, ok := p.accounts[id]
	if !ok {
		return AccountDetails{}, false
	}
	return *acc, true
}

// Accounts lists every known account, oldest first.
func (p *Balances) Accounts() []AccountDetails {
	p.mu.RLock()
	out := make([]AccountDetails, 0, len(p.accounts))
	for _, acc := range p.accounts {
		out = append(out, *acc)
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// credit and debit ignore accounts the view has not seen created.
func (p *Balances) credit(id account.ID, amount money.Money, at int64) {
	acc, ok := p.accounts[id]
	if !ok {
		return
	}
	acc.Balance = acc.Balance.Add(amount)
	acc.UpdatedAt = at
}

func (p *Balances) debit(id account.ID, amount money.Money, at int64) {
	acc, ok := p.accounts[id]
	if !ok {
		return
	}
	next, err := acc.Balance.Sub(amount)
	if err != nil {
		next = money.Zero()
	}
	acc.Balance = next
	acc.UpdatedAt = at
}
