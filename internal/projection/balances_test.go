package projection

import (
	"context"
	"testing"

	"github.com/eventledger/eventledger/internal/account"
	"github.com/eventledger/eventledger/internal/eventbus"
	"github.com/eventledger/eventledger/internal/money"
)

func created(id account.ID, name string, initial int64, at int64) account.Event {
	return account.AccountCreated{
		Meta:           account.Meta{AccountID: id, Seq: 1, At: at},
		Name:           name,
		InitialBalance: money.MustFromInt(initial),
	}
}

func meta(id account.ID, version, at int64) account.Meta {
	return account.Meta{AccountID: id, Seq: version, At: at}
}

func TestBalancesFollowsBus(t *testing.T) {
	bus := eventbus.New()
	view := NewBalances()
	view.Start(bus)
	defer view.Stop()

	ctx := context.Background()
	src, dst := account.NewID(), account.NewID()
	bus.Publish(ctx,
		created(src, "Alice", 1000, 10),
		created(dst, "Bob", 500, 11),
	)
	bus.Publish(ctx,
		account.MoneyDeposited{Meta: meta(src, 2, 20), Amount: money.MustFromInt(200)},
		account.MoneyWithdrawn{Meta: meta(src, 3, 30), Amount: money.MustFromInt(100)},
		account.MoneyTransferred{Meta: meta(src, 4, 40), To: dst, Amount: money.MustFromInt(300)},
	)

	balance, ok := view.Balance(src)
	if !ok || !balance.Equal(money.MustFromInt(800)) {
		t.Fatalf("expected source balance 800, got %s (known=%v)", balance, ok)
	}
	balance, ok = view.Balance(dst)
	if !ok || !balance.Equal(money.MustFromInt(800)) {
		t.Fatalf("expected destination balance 800, got %s (known=%v)", balance, ok)
	}

	details, ok := view.Account(src)
	if !ok {
		t.Fatalf("expected source details")
	}
	if details.Name != "Alice" || details.CreatedAt != 10 || details.UpdatedAt != 40 {
		t.Fatalf("unexpected details %+v", details)
	}
	dstDetails, _ := view.Account(dst)
	if dstDetails.UpdatedAt != 40 {
		t.Fatalf("expected destination updatedAt 40, got %d", dstDetails.UpdatedAt)
	}

	all := view.Accounts()
	if len(all) != 2 || all[0].ID != src || all[1].ID != dst {
		t.Fatalf("unexpected listing %+v", all)
	}
}

func TestBalancesIgnoresRedelivery(t *testing.T) {
	view := NewBalances()
	id := account.NewID()
	view.Apply(created(id, "Alice", 100, 1))
	deposit := account.MoneyDeposited{Meta: meta(id, 2, 2), Amount: money.MustFromInt(50)}
	view.Apply(deposit)
	view.Apply(deposit)
	view.Apply(created(id, "Alice", 100, 1))

	balance, _ := view.Balance(id)
	if !balance.Equal(money.MustFromInt(150)) {
		t.Fatalf("expected 150 after duplicate delivery, got %s", balance)
	}
}

func TestBalancesTransferToUnknownDestination(t *testing.T) {
	view := NewBalances()
	src, ghost := account.NewID(), account.NewID()
	view.Apply(created(src, "Alice", 100, 1))
	view.Apply(account.MoneyTransferred{Meta: meta(src, 2, 2), To: ghost, Amount: money.MustFromInt(40)})

	balance, _ := view.Balance(src)
	if !balance.Equal(money.MustFromInt(60)) {
		t.Fatalf("expected 60, got %s", balance)
	}
	if _, ok := view.Balance(ghost); ok {
		t.Fatalf("unknown destination must not appear in the view")
	}
}

func TestBalancesInertUntilStarted(t *testing.T) {
	bus := eventbus.New()
	view := NewBalances()
	id := account.NewID()
	bus.Publish(context.Background(), created(id, "Alice", 100, 1))
	if _, ok := view.Balance(id); ok {
		t.Fatalf("view should not receive events before Start")
	}

	view.Start(bus)
	view.Stop()
	bus.Publish(context.Background(), created(id, "Alice", 100, 1))
	if _, ok := view.Balance(id); ok {
		t.Fatalf("view should not receive events after Stop")
	}
}
