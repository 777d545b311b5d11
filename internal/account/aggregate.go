package account

import (
	"fmt"

	"github.com/eventledger/eventledger/internal/money"
)

// Execute validates cmd against state and returns the events it produces.
// It performs no I/O; locking and persistence belong to the caller.
func Execute(state State, cmd Command) ([]Event, error) {
	next := state.Version + 1

	switch c := cmd.(type) {
	case CreateAccount:
		return []Event{AccountCreated{
			Meta:           Meta{AccountID: c.AccountID, Seq: next, At: c.IssuedAt},
			Name:           c.Name,
			InitialBalance: c.InitialBalance,
		}}, nil
	case Deposit:
		return []Event{MoneyDeposited{
			Meta:   Meta{AccountID: c.AccountID, Seq: next, At: c.IssuedAt},
			Amount: c.Amount,
		}}, nil
	case Withdraw:
		if err := guardFunds(state, c.Amount); err != nil {
			return nil, err
		}
		return []Event{MoneyWithdrawn{
			Meta:   Meta{AccountID: c.AccountID, Seq: next, At: c.IssuedAt},
			Amount: c.Amount,
		}}, nil
	case Transfer:
		if err := guardFunds(state, c.Amount); err != nil {
			return nil, err
		}
		return []Event{MoneyTransferred{
			Meta:   Meta{AccountID: c.AccountID, Seq: next, At: c.IssuedAt},
			To:     c.To,
			Amount: c.Amount,
		}}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported command %T", ErrInvalidOperation, cmd)
	}
}

func guardFunds(state State, amount money.Money) error {
	if state.Balance.LessThan(amount) {
		return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, state.Balance, amount)
	}
	return nil
}
