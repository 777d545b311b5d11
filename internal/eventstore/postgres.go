package eventstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventledger/eventledger/internal/account"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS account_events (
    global_position BIGSERIAL PRIMARY KEY,
    event_id        UUID        NOT NULL,
    aggregate_id    UUID        NOT NULL,
    version         BIGINT      NOT NULL CHECK (version >= 1),
    event_type      TEXT        NOT NULL,
    payload         JSONB       NOT NULL,
    occurred_at     BIGINT      NOT NULL,
    recorded_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (aggregate_id, version)
)`

// PostgresStore persists event streams in PostgreSQL. The unique
// (aggregate_id, version) constraint rejects a second writer that read the
// same stream head.
type PostgresStore struct {
	db *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgres constructs a Postgres-backed event store.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the events table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create account_events: %w", err)
	}
	return nil
}

// Append writes events in a single transaction after checking the stream head.
func (s *PostgresStore) Append(ctx context.Context, id account.ID, expectedVersion int64, events []account.Event) error {
	aggregateID, err := uuid.Parse(id.String())
	if err != nil {
		return fmt.Errorf("%w: %v", account.ErrInvalidID, err)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	actual, err := headVersion(ctx, tx, aggregateID)
	if err != nil {
		return err
	}
	if actual != expectedVersion {
		return &ConcurrencyError{AggregateID: id, Expected: expectedVersion, Actual: actual}
	}
	if err := validateBatch(id, expectedVersion, events); err != nil {
		return err
	}

	const insert = `INSERT INTO account_events (event_id, aggregate_id, version, event_type, payload, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	for _, e := range events {
		payload, err := account.MarshalEvent(e)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insert, uuid.New(), aggregateID, e.Version(), string(e.Kind()), payload, e.OccurredAt()); err != nil {
			if isUniqueViolation(err) {
				return s.conflict(ctx, id, aggregateID, expectedVersion)
			}
			return fmt.Errorf("insert event v%d: %w", e.Version(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return s.conflict(ctx, id, aggregateID, expectedVersion)
		}
		return err
	}
	return nil
}

// Load returns the stream for id ordered by version.
func (s *PostgresStore) Load(ctx context.Context, id account.ID) ([]account.Event, error) {
	aggregateID, err := uuid.Parse(id.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", account.ErrInvalidID, err)
	}
	rows, err := s.db.Query(ctx, `SELECT payload FROM account_events WHERE aggregate_id = $1 ORDER BY version`, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("query stream %s: %w", id, err)
	}
	return scanEvents(rows)
}

// ReadAll returns every event ordered by global position.
func (s *PostgresStore) ReadAll(ctx context.Context) ([]account.Event, error) {
	rows, err := s.db.Query(ctx, `SELECT payload FROM account_events ORDER BY global_position`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return scanEvents(rows)
}

func (s *PostgresStore) conflict(ctx context.Context, id account.ID, aggregateID uuid.UUID, expected int64) error {
	actual, err := headVersion(ctx, s.db, aggregateID)
	if err != nil {
		actual = expected + 1
	}
	return &ConcurrencyError{AggregateID: id, Expected: expected, Actual: actual}
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func headVersion(ctx context.Context, q querier, aggregateID uuid.UUID) (int64, error) {
	var version int64
	err := q.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM account_events WHERE aggregate_id = $1`, aggregateID).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read stream head: %w", err)
	}
	return version, nil
}

func scanEvents(rows pgx.Rows) ([]account.Event, error) {
	defer rows.Close()

	events := []account.Event{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e, err := account.UnmarshalEvent(payload)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
