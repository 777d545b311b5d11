package routes

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/eventledger/eventledger/internal/banking"
	"github.com/eventledger/eventledger/internal/config"
	"github.com/eventledger/eventledger/internal/eventbus"
	"github.com/eventledger/eventledger/internal/eventstore"
	"github.com/eventledger/eventledger/internal/logging"
)

func testConfig() config.Config {
	return config.Config{
		AppName:            "test",
		AppEnv:             "test",
		IdempotencyTTL:     time.Minute,
		RateLimitPerMinute: 1000,
	}
}

func setupApp(t *testing.T, withRedis bool) (*fiber.App, *miniredis.Miniredis) {
	t.Helper()
	svc := banking.New(eventstore.NewInMemory(), eventbus.New(), time.Second)
	t.Cleanup(svc.Close)

	deps := Deps{Cfg: testConfig(), Logger: logging.Discard(), Banking: svc}
	var mr *miniredis.Miniredis
	if withRedis {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			t.Fatalf("start miniredis: %v", err)
		}
		cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() {
			cache.Close()
			mr.Close()
		})
		deps.Cache = cache
	}

	app := fiber.New()
	if err := Setup(app, deps); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app, mr
}

func postCreate(t *testing.T, app *fiber.App, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/accounts", strings.NewReader(`{"name":"Alice","initialBalance":{"amount":10}}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestMutationsRequireIdempotencyKeyWithRedis(t *testing.T) {
	app, _ := setupApp(t, true)

	if status, _ := postCreate(t, app, ""); status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 without key, got %d", status)
	}

	status, first := postCreate(t, app, "create-1")
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d %s", status, first)
	}
	status, second := postCreate(t, app, "create-1")
	if status != fiber.StatusCreated || second != first {
		t.Fatalf("expected replayed response %s, got %d %s", first, status, second)
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/accounts", nil))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var list []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("replayed request must not create a second account, got %d", len(list))
	}
}

func TestMutationsWithoutRedis(t *testing.T) {
	app, _ := setupApp(t, false)
	if status, body := postCreate(t, app, ""); status != fiber.StatusCreated {
		t.Fatalf("expected 201 without redis, got %d %s", status, body)
	}
}

func TestHealthz(t *testing.T) {
	app, mr := setupApp(t, true)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Status map[string]string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status["postgres"] != "disabled" || body.Status["redis"] != "ok" {
		t.Fatalf("unexpected status %v", body.Status)
	}

	mr.Close()
	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil), 5000)
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503 with redis down, got %d", resp.StatusCode)
	}
}

func TestSetupRequiresBackingServicesOutsideDev(t *testing.T) {
	cfg := testConfig()
	cfg.AppEnv = "production"
	svc := banking.New(eventstore.NewInMemory(), eventbus.New(), 0)
	defer svc.Close()

	if err := Setup(fiber.New(), Deps{Cfg: cfg, Banking: svc}); err == nil {
		t.Fatalf("expected error without database in production")
	}
}
