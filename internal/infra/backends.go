// Package infra opens the optional external services the ledger runs against.
package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	defaultClientName     = "eventledger"
	defaultConnectTimeout = 10 * time.Second
)

// Options selects the backends to open. An empty URL leaves that backend
// unconfigured.
type Options struct {
	DatabaseURL string
	RedisURL    string
	// ClientName is reported to Postgres as application_name and to Redis
	// via CLIENT SETNAME.
	ClientName     string
	ConnectTimeout time.Duration
}

// Backends holds the optional external services. A nil field means the
// service is not configured.
type Backends struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
}

// Connect opens whichever of Postgres and Redis has a URL. An empty URL is
// skipped; a configured service that cannot be reached within the connect
// timeout is an error.
func Connect(ctx context.Context, opts Options, logger *slog.Logger) (*Backends, error) {
	if opts.ClientName == "" {
		opts.ClientName = defaultClientName
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	b := &Backends{}
	if opts.DatabaseURL != "" {
		db, err := openPostgres(ctx, opts.DatabaseURL, opts.ClientName)
		if err != nil {
			return nil, err
		}
		b.DB = db
		logger.Info("postgres connected", slog.String("host", db.Config().ConnConfig.Host))
	}

	if opts.RedisURL != "" {
		cache, err := openRedis(ctx, opts.RedisURL, opts.ClientName)
		if err != nil {
			b.Close(logger)
			return nil, err
		}
		b.Cache = cache
		logger.Info("redis connected", slog.String("addr", cache.Options().Addr))
	}
	return b, nil
}

// Close releases every opened connection.
func (b *Backends) Close(logger *slog.Logger) {
	if b.Cache != nil {
		if err := b.Cache.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			logger.Warn("close redis", "error", err)
		}
		b.Cache = nil
	}
	if b.DB != nil {
		b.DB.Close()
		b.DB = nil
	}
}

func openPostgres(ctx context.Context, url, clientName string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}
	cfg.HealthCheckPeriod = 30 * time.Second
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = clientName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func openRedis(ctx context.Context, url, clientName string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.ClientName == "" {
		opt.ClientName = clientName
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
