package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eventledger/eventledger/internal/account"
	"github.com/eventledger/eventledger/internal/eventbus"
)

const (
	// KindTransferReceived tells an account holder that funds arrived.
	KindTransferReceived = "transfer_received"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// TransferNotifier tells the destination of every transfer that money
// arrived.
type TransferNotifier struct {
	notifier Notifier
	logger   *slog.Logger
	cancel   func()
}

// NewTransferNotifier wraps notifier. Delivery errors are logged to logger.
func NewTransferNotifier(notifier Notifier, logger *slog.Logger) *TransferNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransferNotifier{notifier: notifier, logger: logger}
}

// Start subscribes to transfers on bus.
func (t *TransferNotifier) Start(bus *eventbus.Bus) {
	t.cancel = bus.Subscribe(account.KindMoneyTransferred, t.handle)
}

// Stop removes the subscription.
func (t *TransferNotifier) Stop() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *TransferNotifier) handle(ctx context.Context, e account.Event) {
	transfer, ok := e.(account.MoneyTransferred)
	if !ok || t.notifier == nil {
		return
	}
	msg := Message{
		Kind:        KindTransferReceived,
		Destination: transfer.To.String(),
		Body:        fmt.Sprintf("You received %s from account %s", transfer.Amount, transfer.AggregateID()),
	}
	if err := t.notifier.Send(ctx, msg); err != nil {
		t.logger.Warn("transfer notification failed",
			slog.String("destination", msg.Destination),
			slog.Any("error", err),
		)
	}
}
