package infra

import (
	"context"
	"net"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/eventledger/eventledger/internal/logging"
)

func TestConnectRedisOnly(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	logger := logging.Discard()
	b, err := Connect(context.Background(), Options{RedisURL: "redis://" + mr.Addr() + "/0"}, logger)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer b.Close(logger)

	if b.DB != nil {
		t.Fatalf("expected no database")
	}
	if b.Cache == nil {
		t.Fatalf("expected redis client")
	}
	if got := b.Cache.Options().ClientName; got != defaultClientName {
		t.Fatalf("expected client name %q, got %q", defaultClientName, got)
	}
}

func TestConnectNothingConfigured(t *testing.T) {
	logger := logging.Discard()
	b, err := Connect(context.Background(), Options{}, logger)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if b.DB != nil || b.Cache != nil {
		t.Fatalf("expected no backends, got %+v", b)
	}
	b.Close(logger)
	b.Close(logger)
}

func TestConnectRejectsBadURLs(t *testing.T) {
	logger := logging.Discard()
	if _, err := Connect(context.Background(), Options{RedisURL: "not a url"}, logger); err == nil {
		t.Fatalf("expected redis parse error")
	}
	if _, err := Connect(context.Background(), Options{DatabaseURL: "postgres://%zz"}, logger); err == nil {
		t.Fatalf("expected postgres parse error")
	}
}

func TestConnectTimesOutOnSilentRedis(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	accepted := make(chan net.Conn, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()
	defer func() {
		for {
			select {
			case conn := <-accepted:
				conn.Close()
			default:
				return
			}
		}
	}()

	start := time.Now()
	_, err = Connect(context.Background(), Options{
		RedisURL:       "redis://" + ln.Addr().String() + "/0",
		ConnectTimeout: 200 * time.Millisecond,
	}, logging.Discard())
	if err == nil {
		t.Fatalf("expected ping to fail against a silent server")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("connect ignored its timeout, took %s", elapsed)
	}
}
