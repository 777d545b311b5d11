package banking

import (
	"context"
	"fmt"
	"time"

	"github.com/eventledger/eventledger/internal/account"
	"github.com/eventledger/eventledger/internal/eventbus"
	"github.com/eventledger/eventledger/internal/eventstore"
	"github.com/eventledger/eventledger/internal/lock"
	"github.com/eventledger/eventledger/internal/money"
	"github.com/eventledger/eventledger/internal/projection"
)

// Service is the in-process API of the ledger. Commands go through the
// dispatcher; queries read the projections only.
type Service struct {
	dispatcher *Dispatcher
	store      eventstore.Store
	balances   *projection.Balances
	history    *projection.History
	stop       []func()
}

// NewService constructs a banking service. The projections are expected to
// be started on the same bus the dispatcher publishes to.
func NewService(dispatcher *Dispatcher, store eventstore.Store, balances *projection.Balances, history *projection.History) *Service {
	return &Service{dispatcher: dispatcher, store: store, balances: balances, history: history}
}

// New wires a complete service on bus: a fresh lock table, a dispatcher and
// both projections, already started. Close stops the projections.
func New(store eventstore.Store, bus *eventbus.Bus, lockTimeout time.Duration) *Service {
	balances := projection.NewBalances()
	history := projection.NewHistory()
	balances.Start(bus)
	history.Start(bus)

	svc := NewService(NewDispatcher(store, lock.NewManager(), bus, lockTimeout), store, balances, history)
	svc.stop = []func(){balances.Stop, history.Stop}
	return svc
}

// Close detaches the projections started by New.
func (s *Service) Close() {
	for _, stop := range s.stop {
		stop()
	}
	s.stop = nil
}

// Dispatch runs an arbitrary command.
func (s *Service) Dispatch(ctx context.Context, cmd account.Command) error {
	return s.dispatcher.Dispatch(ctx, cmd)
}

// CreateAccount opens an account under a fresh id and returns it.
func (s *Service) CreateAccount(ctx context.Context, name string, initial money.Money) (account.ID, error) {
	id := account.NewID()
	err := s.dispatcher.Dispatch(ctx, account.CreateAccount{
		AccountID:      id,
		Name:           name,
		InitialBalance: initial,
		IssuedAt:       account.NowMillis(),
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) Deposit(ctx context.Context, id account.ID, amount money.Money) error {
	return s.dispatcher.Dispatch(ctx, account.Deposit{AccountID: id, Amount: amount, IssuedAt: account.NowMillis()})
}

func (s *Service) Withdraw(ctx context.Context, id account.ID, amount money.Money) error {
	return s.dispatcher.Dispatch(ctx, account.Withdraw{AccountID: id, Amount: amount, IssuedAt: account.NowMillis()})
}

// Transfer moves amount from one account to another. The destination is not
// required to exist.
func (s *Service) Transfer(ctx context.Context, from, to account.ID, amount money.Money) error {
	return s.dispatcher.Dispatch(ctx, account.Transfer{AccountID: from, To: to, Amount: amount, IssuedAt: account.NowMillis()})
}

// Balance reports the projected balance of id.
func (s *Service) Balance(id account.ID) (money.Money, bool) {
	return s.balances.Balance(id)
}

// Account reports the projected details of id.
func (s *Service) Account(id account.ID) (projection.AccountDetails, bool) {
	return s.balances.Account(id)
}

// Accounts lists every projected account.
func (s *Service) Accounts() []projection.AccountDetails {
	return s.balances.Accounts()
}

// Transactions lists the history of id.
func (s *Service) Transactions(id account.ID, q projection.Query) []projection.Entry {
	return s.history.Entries(id, q)
}

// Rebuild folds every stored event into the projections and returns how many
// events were read. Already applied events are skipped by the projections.
func (s *Service) Rebuild(ctx context.Context) (int, error) {
	events, err := s.store.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("read event log: %w", err)
	}
	for _, e := range events {
		s.balances.Apply(e)
		s.history.Apply(e)
	}
	return len(events), nil
}
