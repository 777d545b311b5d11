package eventbus

import (
	"context"
	"testing"

	"github.com/eventledger/eventledger/internal/account"
	"github.com/eventledger/eventledger/internal/money"
)

func deposited(id account.ID, version int64) account.Event {
	return account.MoneyDeposited{
		Meta:   account.Meta{AccountID: id, Seq: version, At: 1000 + version},
		Amount: money.MustFromInt(10),
	}
}

func TestPublishDeliversInOrderToMatchingKind(t *testing.T) {
	bus := New()
	var got []int64
	bus.Subscribe(account.KindMoneyDeposited, func(_ context.Context, e account.Event) {
		got = append(got, e.Version())
	})
	withdrawCalls := 0
	bus.Subscribe(account.KindMoneyWithdrawn, func(context.Context, account.Event) {
		withdrawCalls++
	})

	id := account.NewID()
	bus.Publish(context.Background(), deposited(id, 1), deposited(id, 2), deposited(id, 3))

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("expected versions 1,2,3 got %v", got)
	}
	if withdrawCalls != 0 {
		t.Fatalf("withdraw handler should not run, ran %d times", withdrawCalls)
	}
}

func TestSubscribeDoesNotReplay(t *testing.T) {
	bus := New()
	id := account.NewID()
	bus.Publish(context.Background(), deposited(id, 1))

	calls := 0
	bus.Subscribe(account.KindMoneyDeposited, func(context.Context, account.Event) { calls++ })
	if calls != 0 {
		t.Fatalf("expected no replay, got %d calls", calls)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := New()
	first, second := 0, 0
	cancel := bus.Subscribe(account.KindMoneyDeposited, func(context.Context, account.Event) { first++ })
	bus.Subscribe(account.KindMoneyDeposited, func(context.Context, account.Event) { second++ })

	id := account.NewID()
	bus.Publish(context.Background(), deposited(id, 1))
	cancel()
	cancel()
	bus.Publish(context.Background(), deposited(id, 2))

	if first != 1 {
		t.Fatalf("expected first handler once, got %d", first)
	}
	if second != 2 {
		t.Fatalf("expected second handler twice, got %d", second)
	}
}

func TestHandlerSubscribingDuringPublishSeesNextEventOnly(t *testing.T) {
	bus := New()
	late := 0
	bus.Subscribe(account.KindMoneyDeposited, func(context.Context, account.Event) {
		if late == 0 {
			bus.Subscribe(account.KindMoneyDeposited, func(context.Context, account.Event) { late++ })
		}
	})

	id := account.NewID()
	bus.Publish(context.Background(), deposited(id, 1))
	if late != 0 {
		t.Fatalf("handler added mid-publish should not see the current event")
	}
}

func TestReset(t *testing.T) {
	bus := New()
	calls := 0
	bus.Subscribe(account.KindMoneyDeposited, func(context.Context, account.Event) { calls++ })
	bus.Reset()
	bus.Publish(context.Background(), deposited(account.NewID(), 1))
	if calls != 0 {
		t.Fatalf("expected no deliveries after reset, got %d", calls)
	}
}
