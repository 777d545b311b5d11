package projection

import (
	"context"
	"testing"

	"github.com/eventledger/eventledger/internal/account"
	"github.com/eventledger/eventledger/internal/eventbus"
	"github.com/eventledger/eventledger/internal/money"
)

func seedHistory(t *testing.T) (*History, account.ID, account.ID) {
	t.Helper()
	bus := eventbus.New()
	view := NewHistory()
	view.Start(bus)
	t.Cleanup(view.Stop)

	src, dst := account.NewID(), account.NewID()
	bus.Publish(context.Background(),
		created(src, "Alice", 1000, 100),
		account.MoneyDeposited{Meta: meta(src, 2, 200), Amount: money.MustFromInt(200)},
		account.MoneyWithdrawn{Meta: meta(src, 3, 300), Amount: money.MustFromInt(100)},
		account.MoneyTransferred{Meta: meta(src, 4, 300), To: dst, Amount: money.MustFromInt(300)},
	)
	return view, src, dst
}

func TestHistoryEntriesNewestFirst(t *testing.T) {
	view, src, dst := seedHistory(t)

	entries := view.Entries(src, Query{})
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// withdraw and transfer share a timestamp, so version breaks the tie
	if entries[0].Type != EntryTransfer || entries[1].Type != EntryWithdraw || entries[2].Type != EntryDeposit {
		t.Fatalf("unexpected order: %s, %s, %s", entries[0].Type, entries[1].Type, entries[2].Type)
	}
	transfer := entries[0]
	if transfer.ToAccountID != dst || transfer.Version != 4 {
		t.Fatalf("unexpected transfer entry %+v", transfer)
	}
	if want := account.EntryKey(src, 4, EntryTransfer); transfer.ID != want {
		t.Fatalf("expected id %q, got %q", want, transfer.ID)
	}

	if got := view.Entries(dst, Query{}); len(got) != 0 {
		t.Fatalf("transfers are recorded on the source only, destination has %d entries", len(got))
	}
}

func TestHistorySinceThenLimit(t *testing.T) {
	view, src, _ := seedHistory(t)

	since := int64(200)
	entries := view.Entries(src, Query{Since: &since})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after since, got %d", len(entries))
	}

	entries = view.Entries(src, Query{Since: &since, Limit: 1})
	if len(entries) != 1 || entries[0].Version != 4 {
		t.Fatalf("expected newest entry only, got %+v", entries)
	}

	early := int64(0)
	if got := view.Entries(src, Query{Since: &early, Limit: 10}); len(got) != 3 {
		t.Fatalf("expected all entries, got %d", len(got))
	}
}

func TestHistoryUpsertIsIdempotent(t *testing.T) {
	view := NewHistory()
	id := account.NewID()
	deposit := account.MoneyDeposited{Meta: meta(id, 2, 5), Amount: money.MustFromInt(1)}
	view.Apply(deposit)
	view.Apply(deposit)
	view.Apply(created(id, "ignored", 0, 1))

	if got := view.Entries(id, Query{}); len(got) != 1 {
		t.Fatalf("expected one entry, got %d", len(got))
	}
}
