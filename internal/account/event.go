package account

import (
	"strconv"

	"github.com/eventledger/eventledger/internal/money"
)

// Kind names an event type. The values double as the wire "type" field.
type Kind string

const (
	KindAccountCreated   Kind = "AccountCreated"
	KindMoneyDeposited   Kind = "MoneyDeposited"
	KindMoneyWithdrawn   Kind = "MoneyWithdrawn"
	KindMoneyTransferred Kind = "MoneyTransferred"
)

// Kinds lists every event kind in a stable order.
var Kinds = []Kind{KindAccountCreated, KindMoneyDeposited, KindMoneyWithdrawn, KindMoneyTransferred}

// Event is an immutable fact recorded on one account's stream.
type Event interface {
	Kind() Kind
	AggregateID() ID
	Version() int64
	OccurredAt() int64
	event()
}

// Meta carries the fields shared by every event.
type Meta struct {
	AccountID ID
	// Seq is the aggregate version after this event is applied.
	Seq int64
	// At is the occurrence time in milliseconds since the Unix epoch.
	At int64
}

func (m Meta) AggregateID() ID   { return m.AccountID }
func (m Meta) Version() int64    { return m.Seq }
func (m Meta) OccurredAt() int64 { return m.At }
func (Meta) event()              {}

type AccountCreated struct {
	Meta
	Name           string
	InitialBalance money.Money
}

type MoneyDeposited struct {
	Meta
	Amount money.Money
}

type MoneyWithdrawn struct {
	Meta
	Amount money.Money
}

// MoneyTransferred is recorded on the source stream only; To names the
// destination account.
type MoneyTransferred struct {
	Meta
	To     ID
	Amount money.Money
}

func (AccountCreated) Kind() Kind   { return KindAccountCreated }
func (MoneyDeposited) Kind() Kind   { return KindMoneyDeposited }
func (MoneyWithdrawn) Kind() Kind   { return KindMoneyWithdrawn }
func (MoneyTransferred) Kind() Kind { return KindMoneyTransferred }

// EventKey is the deterministic identity of an event, used by projections
// to ignore re-deliveries.
func EventKey(e Event) string {
	return EntryKey(e.AggregateID(), e.Version(), string(e.Kind()))
}

// EntryKey formats "<aggregateId>-<version>-<label>".
func EntryKey(id ID, version int64, label string) string {
	return string(id) + "-" + strconv.FormatInt(version, 10) + "-" + label
}
