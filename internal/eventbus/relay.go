package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eventledger/eventledger/internal/account"
)

const (
	// DefaultChannel is the redis channel events are relayed to when none is
	// configured.
	DefaultChannel = "ledger:events"

	DefaultRelayBuffer         = 1024
	DefaultRelayPublishTimeout = 2 * time.Second
)

// RelayOption customises a RedisRelay.
type RelayOption func(*RedisRelay)

// WithRelayBuffer sets how many events may wait for redis before new ones are
// dropped.
func WithRelayBuffer(n int) RelayOption {
	return func(r *RedisRelay) {
		if n > 0 {
			r.buffer = n
		}
	}
}

// WithPublishTimeout bounds a single PUBLISH round trip.
func WithPublishTimeout(d time.Duration) RelayOption {
	return func(r *RedisRelay) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// RedisRelay republishes every account event, in wire format, on a redis
// pub/sub channel so tooling outside the process can follow the ledger.
//
// Bus handlers only enqueue; a single worker talks to redis, so a slow or
// unreachable redis never holds up the command that produced the event.
// Events that do not fit in the queue are dropped and logged.
type RedisRelay struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
	buffer  int
	timeout time.Duration

	mu      sync.RWMutex
	queue   chan account.Event
	closed  bool
	done    chan struct{}
	base    context.Context
	abort   context.CancelFunc
	cancels []func()
}

// NewRedisRelay builds a relay. An empty channel falls back to
// DefaultChannel.
func NewRedisRelay(client *redis.Client, channel string, logger *slog.Logger, opts ...RelayOption) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &RedisRelay{
		client:  client,
		channel: channel,
		logger:  logger,
		buffer:  DefaultRelayBuffer,
		timeout: DefaultRelayPublishTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Channel returns the redis channel the relay publishes to.
func (r *RedisRelay) Channel() string {
	return r.channel
}

// Start launches the publishing worker and subscribes the relay to every
// event kind on bus.
func (r *RedisRelay) Start(bus *Bus) {
	r.mu.Lock()
	r.queue = make(chan account.Event, r.buffer)
	r.done = make(chan struct{})
	r.closed = false
	r.base, r.abort = context.WithCancel(context.Background())
	go r.run(r.queue, r.done)
	r.mu.Unlock()

	for _, kind := range account.Kinds {
		r.cancels = append(r.cancels, bus.Subscribe(kind, r.handle))
	}
}

// Stop removes the relay's subscriptions and flushes the queue. Events still
// queued after one publish timeout are abandoned.
func (r *RedisRelay) Stop() {
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil

	r.mu.Lock()
	if r.queue == nil || r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	done, abort := r.done, r.abort
	r.mu.Unlock()

	select {
	case <-done:
	case <-time.After(r.timeout):
		abort()
		<-done
	}
	abort()
}

func (r *RedisRelay) handle(_ context.Context, e account.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.queue == nil || r.closed {
		return
	}

	select {
	case r.queue <- e:
	default:
		r.logger.Warn("relay queue full, event dropped",
			slog.String("aggregate_id", e.AggregateID().String()),
			slog.Int64("version", e.Version()),
		)
	}
}

func (r *RedisRelay) run(queue <-chan account.Event, done chan<- struct{}) {
	defer close(done)
	for e := range queue {
		r.publish(e)
	}
}

func (r *RedisRelay) publish(e account.Event) {
	payload, err := account.MarshalEvent(e)
	if err != nil {
		r.logger.Error("relay encode event failed",
			slog.String("aggregate_id", e.AggregateID().String()),
			slog.Any("error", err),
		)
		return
	}

	ctx, cancel := context.WithTimeout(r.base, r.timeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.logger.Warn("relay publish failed, event dropped",
			slog.String("channel", r.channel),
			slog.String("aggregate_id", e.AggregateID().String()),
			slog.Int64("version", e.Version()),
			slog.Any("error", err),
		)
	}
}
