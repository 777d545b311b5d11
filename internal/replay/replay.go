// Package replay rebuilds account balances from a raw event log and checks
// that no money was created or destroyed along the way.
package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/eventledger/eventledger/internal/account"
	"github.com/eventledger/eventledger/internal/money"
	"github.com/eventledger/eventledger/internal/projection"
)

var (
	// ErrNotConserved is returned when the replayed balances do not add up to
	// the money that entered and left the ledger.
	ErrNotConserved = errors.New("balance conservation violated")

	// ErrBrokenStream is returned when an account's versions are not 1..n.
	ErrBrokenStream = errors.New("broken event stream")
)

// File is the on-disk replay format: {"events": [...]} in wire encoding.
type File struct {
	Events []json.RawMessage `json:"events"`
}

// Decode reads a replay file.
func Decode(r io.Reader) ([]account.Event, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode replay file: %w", err)
	}
	if f.Events == nil {
		return nil, errors.New("decode replay file: expected {\"events\": [...]}")
	}
	events := make([]account.Event, 0, len(f.Events))
	for i, raw := range f.Events {
		e, err := account.UnmarshalEvent(raw)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// Encode writes events as a replay file.
func Encode(w io.Writer, events []account.Event) error {
	f := File{Events: make([]json.RawMessage, 0, len(events))}
	for _, e := range events {
		raw, err := account.MarshalEvent(e)
		if err != nil {
			return err
		}
		f.Events = append(f.Events, raw)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

// AccountResult is the replayed outcome for one account.
type AccountResult struct {
	ID account.ID `json:"id"`
	// StreamBalance folds only the account's own stream.
	StreamBalance money.Money `json:"streamBalance"`
	// Balance also counts transfers received, as the balances view does.
	Balance    money.Money `json:"balance"`
	EventCount int         `json:"eventCount"`
	Version    int64       `json:"version"`
}

// Report summarizes a replay.
type Report struct {
	Accounts   []AccountResult `json:"accounts"`
	EventCount int             `json:"eventCount"`
	Total      money.Money     `json:"total"`
	Expected   money.Money     `json:"expected"`
	Conserved  bool            `json:"conserved"`
}

// Run replays events, given in global order, and verifies conservation:
// the sum of balances must equal initial balances plus deposits minus
// withdrawals minus transfers to accounts absent from the log.
func Run(events []account.Event) (Report, error) {
	streams := make(map[account.ID][]account.Event)
	var order []account.ID
	for _, e := range events {
		id := e.AggregateID()
		if _, ok := streams[id]; !ok {
			order = append(order, id)
		}
		streams[id] = append(streams[id], e)
	}

	for _, id := range order {
		stream := streams[id]
		sort.SliceStable(stream, func(i, j int) bool { return stream[i].Version() < stream[j].Version() })
		for i, e := range stream {
			if e.Version() != int64(i+1) {
				return Report{}, fmt.Errorf("%w: account %s has version %d at position %d", ErrBrokenStream, id, e.Version(), i+1)
			}
		}
	}

	view := projection.NewBalances()
	for _, e := range events {
		view.Apply(e)
	}

	expected := money.Zero()
	outflow := money.Zero()
	for _, e := range events {
		switch ev := e.(type) {
		case account.AccountCreated:
			expected = expected.Add(ev.InitialBalance)
		case account.MoneyDeposited:
			expected = expected.Add(ev.Amount)
		case account.MoneyWithdrawn:
			outflow = outflow.Add(ev.Amount)
		case account.MoneyTransferred:
			if _, known := streams[ev.To]; !known {
				outflow = outflow.Add(ev.Amount)
			}
		}
	}

	report := Report{EventCount: len(events), Total: money.Zero()}
	for _, id := range order {
		stream := streams[id]
		state := account.Fold(stream)
		balance, _ := view.Balance(id)
		report.Accounts = append(report.Accounts, AccountResult{
			ID:            id,
			StreamBalance: state.Balance,
			Balance:       balance,
			EventCount:    len(stream),
			Version:       state.Version,
		})
		report.Total = report.Total.Add(balance)
	}

	net, err := expected.Sub(outflow)
	if err != nil {
		return report, fmt.Errorf("%w: outflow %s exceeds inflow %s", ErrNotConserved, outflow, expected)
	}
	report.Expected = net
	report.Conserved = report.Total.Equal(net)
	if !report.Conserved {
		return report, fmt.Errorf("%w: expected %s, got %s", ErrNotConserved, net, report.Total)
	}
	return report, nil
}
