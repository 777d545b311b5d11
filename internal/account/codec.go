package account

import (
	"encoding/json"
	"fmt"

	"github.com/eventledger/eventledger/internal/money"
)

// wireEvent is the JSON shape shared by the event store, the redis relay and
// replay files.
type wireEvent struct {
	Type           Kind         `json:"type"`
	AggregateID    ID           `json:"aggregateId"`
	Name           string       `json:"name,omitempty"`
	AccountName    string       `json:"accountName,omitempty"`
	InitialBalance *money.Money `json:"initialBalance,omitempty"`
	Amount         *money.Money `json:"amount,omitempty"`
	ToAccountID    ID           `json:"toAccountId,omitempty"`
	DestinationID  ID           `json:"destinationAccountId,omitempty"`
	Version        int64        `json:"version"`
	OccurredAt     int64        `json:"occurredAt"`
}

// MarshalEvent encodes e in the wire format.
func MarshalEvent(e Event) ([]byte, error) {
	w := wireEvent{
		Type:        e.Kind(),
		AggregateID: e.AggregateID(),
		Version:     e.Version(),
		OccurredAt:  e.OccurredAt(),
	}
	switch ev := e.(type) {
	case AccountCreated:
		w.Name = ev.Name
		w.InitialBalance = &ev.InitialBalance
	case MoneyDeposited:
		w.Amount = &ev.Amount
	case MoneyWithdrawn:
		w.Amount = &ev.Amount
	case MoneyTransferred:
		w.Amount = &ev.Amount
		w.ToAccountID = ev.To
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, e)
	}
	return json.Marshal(w)
}

// UnmarshalEvent decodes a wire-format event. It accepts the "accountName"
// and "destinationAccountId" aliases written by older tooling.
func UnmarshalEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if w.Version < 1 {
		return nil, fmt.Errorf("decode event: version must be >= 1, got %d", w.Version)
	}

	meta := Meta{AccountID: w.AggregateID, Seq: w.Version, At: w.OccurredAt}
	switch w.Type {
	case KindAccountCreated:
		name := w.Name
		if name == "" {
			name = w.AccountName
		}
		return AccountCreated{Meta: meta, Name: name, InitialBalance: orZero(w.InitialBalance)}, nil
	case KindMoneyDeposited:
		return MoneyDeposited{Meta: meta, Amount: orZero(w.Amount)}, nil
	case KindMoneyWithdrawn:
		return MoneyWithdrawn{Meta: meta, Amount: orZero(w.Amount)}, nil
	case KindMoneyTransferred:
		to := w.ToAccountID
		if to == "" {
			to = w.DestinationID
		}
		return MoneyTransferred{Meta: meta, To: to, Amount: orZero(w.Amount)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, w.Type)
	}
}

func orZero(m *money.Money) money.Money {
	if m == nil {
		return money.Zero()
	}
	return *m
}
