package account

import "github.com/eventledger/eventledger/internal/money"

// State is the current view of one account, derived by folding its events.
type State struct {
	Name    string
	Balance money.Money
	Version int64
}

// Fold replays events in the order given onto the zero state.
func Fold(events []Event) State {
	state := State{Balance: money.Zero()}
	for _, e := range events {
		state.Apply(e)
	}
	return state
}

// Apply folds a single event into the state. Version is taken from the event.
func (s *State) Apply(e Event) {
	switch ev := e.(type) {
	case AccountCreated:
		s.Name = ev.Name
		s.Balance = ev.InitialBalance
	case MoneyDeposited:
		s.Balance = s.Balance.Add(ev.Amount)
	case MoneyWithdrawn:
		s.Balance = debit(s.Balance, ev.Amount)
	case MoneyTransferred:
		s.Balance = debit(s.Balance, ev.Amount)
	}
	s.Version = e.Version()
}

// debit saturates at zero. Stored streams never overdraw because Execute
// rejects such commands before an event exists.
func debit(balance, amount money.Money) money.Money {
	next, err := balance.Sub(amount)
	if err != nil {
		return money.Zero()
	}
	return next
}
