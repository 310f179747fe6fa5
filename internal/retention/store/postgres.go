package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"glint/internal/retention"
	id "glint/pkg/domain"
)

// PostgresEventStore persists purge events. Migration 0003 installs the same
// reject-mutation trigger the audit table carries, without a purge escape
// hatch: purge events are kept forever.
type PostgresEventStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed purge event store.
func NewPostgres(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

func (s *PostgresEventStore) AppendEvent(ctx context.Context, event *retention.PurgeEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	policy, err := json.Marshal(event.Policy)
	if err != nil {
		return fmt.Errorf("marshal policy snapshot: %w", err)
	}
	counts, err := json.Marshal(event.Counts)
	if err != nil {
		return fmt.Errorf("marshal run counts: %w", err)
	}

	const query = `
		INSERT INTO purge_events (
			id, actor, started_at, finished_at, dry_run,
			policy, counts, aborted, error
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID),
		event.Actor,
		event.StartedAt,
		event.FinishedAt,
		event.DryRun,
		policy,
		counts,
		event.Aborted,
		event.Error,
	); err != nil {
		return fmt.Errorf("insert purge event: %w", err)
	}
	return nil
}

func (s *PostgresEventStore) ListEvents(ctx context.Context, limit, offset int) ([]retention.PurgeEvent, error) {
	const query = `
		SELECT id, actor, started_at, finished_at, dry_run,
			   policy, counts, aborted, error
		FROM purge_events
		ORDER BY started_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list purge events: %w", err)
	}
	defer rows.Close()

	var events []retention.PurgeEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purge events: %w", err)
	}
	return events, nil
}

func (s *PostgresEventStore) LastSuccess(ctx context.Context) (retention.PurgeEvent, bool, error) {
	const query = `
		SELECT id, actor, started_at, finished_at, dry_run,
			   policy, counts, aborted, error
		FROM purge_events
		WHERE NOT aborted
		ORDER BY finished_at DESC
		LIMIT 1
	`
	event, err := scanEvent(s.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return retention.PurgeEvent{}, false, nil
	}
	if err != nil {
		return retention.PurgeEvent{}, false, err
	}
	return *event, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*retention.PurgeEvent, error) {
	var (
		e              retention.PurgeEvent
		runID          uuid.UUID
		policy, counts []byte
	)
	err := row.Scan(
		&runID,
		&e.Actor,
		&e.StartedAt,
		&e.FinishedAt,
		&e.DryRun,
		&policy,
		&counts,
		&e.Aborted,
		&e.Error,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan purge event: %w", err)
	}

	e.ID = id.RunID(runID)
	if len(policy) > 0 {
		if err := json.Unmarshal(policy, &e.Policy); err != nil {
			return nil, fmt.Errorf("unmarshal policy snapshot: %w", err)
		}
	}
	if len(counts) > 0 {
		if err := json.Unmarshal(counts, &e.Counts); err != nil {
			return nil, fmt.Errorf("unmarshal run counts: %w", err)
		}
	}
	return &e, nil
}
