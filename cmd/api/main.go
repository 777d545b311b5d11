package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/eventledger/eventledger/internal/banking"
	"github.com/eventledger/eventledger/internal/config"
	"github.com/eventledger/eventledger/internal/eventbus"
	"github.com/eventledger/eventledger/internal/eventstore"
	"github.com/eventledger/eventledger/internal/infra"
	"github.com/eventledger/eventledger/internal/logging"
	"github.com/eventledger/eventledger/internal/notification"
	"github.com/eventledger/eventledger/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, slog.String("app", cfg.AppName), slog.String("env", cfg.AppEnv))

	if err := run(cfg, logger); err != nil {
		logger.Error("exit", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited cleanly")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := infra.Connect(ctx, infra.Options{
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		ClientName:  cfg.AppName,
	}, logger)
	if err != nil {
		return err
	}
	defer backends.Close(logger)
	if backends.DB == nil {
		logger.Warn("DATABASE_URL not set, events are kept in memory only")
	}
	if backends.Cache == nil {
		logger.Warn("REDIS_URL not set, idempotency, rate limiting and the event relay are disabled")
	}

	var store eventstore.Store
	if backends.DB != nil {
		pg := eventstore.NewPostgres(backends.DB)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		store = pg
	} else {
		store = eventstore.NewInMemory()
	}

	bus := eventbus.New()
	defer bus.Reset()

	svc := banking.New(store, bus, cfg.LockTimeout)
	defer svc.Close()

	// Fold history before any subscriber with side effects is attached, so
	// old transfers are not notified or relayed again.
	replayed, err := svc.Rebuild(ctx)
	if err != nil {
		return err
	}
	logger.Info("projections rebuilt", slog.Int("events", replayed))

	notifier := notification.NewTransferNotifier(notification.NewLoggerNotifier(logger), logger)
	notifier.Start(bus)
	defer notifier.Stop()

	if backends.Cache != nil {
		relay := eventbus.NewRedisRelay(backends.Cache, cfg.EventsChannel, logger)
		relay.Start(bus)
		defer relay.Stop()
		logger.Info("event relay started", slog.String("channel", relay.Channel()))
	}

	srv, err := server.New(cfg, backends.DB, backends.Cache, svc, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", slog.String("addr", cfg.Address()))
		return srv.Listen()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
