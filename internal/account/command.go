package account

import (
	"time"

	"github.com/eventledger/eventledger/internal/money"
)

// Command is an intent to change an account. The set of commands is closed:
// only types in this package implement it.
type Command interface {
	Target() ID
	command()
}

// CreateAccount opens a new account with a name and initial balance.
type CreateAccount struct {
	AccountID      ID
	Name           string
	InitialBalance money.Money
	IssuedAt       int64
}

// Deposit adds funds to an account.
type Deposit struct {
	AccountID ID
	Amount    money.Money
	IssuedAt  int64
}

// Withdraw removes funds from an account.
type Withdraw struct {
	AccountID ID
	Amount    money.Money
	IssuedAt  int64
}

// Transfer moves funds from AccountID to To.
type Transfer struct {
	AccountID ID
	To        ID
	Amount    money.Money
	IssuedAt  int64
}

func (c CreateAccount) Target() ID { return c.AccountID }
func (c Deposit) Target() ID       { return c.AccountID }
func (c Withdraw) Target() ID      { return c.AccountID }
func (c Transfer) Target() ID      { return c.AccountID }

func (CreateAccount) command() {}
func (Deposit) command()       {}
func (Withdraw) command()      {}
func (Transfer) command()      {}

// NowMillis returns the current time in milliseconds since the Unix epoch.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
