package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"glint/internal/audit"
	id "glint/pkg/domain"
	txcontext "glint/pkg/platform/tx"
)

// PostgresStore persists audit records in the audit_records table and mirrors
// each append into the outbox for the Kafka compliance stream. Defense in
// depth: migration 0001 installs a trigger that rejects UPDATE/DELETE unless
// the transaction-scoped glint.allow_purge setting is on, so even raw SQL
// outside this package cannot mutate the log.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// the consumer's expectations on the compliance stream.
type outboxPayload struct {
	ID              string          `json:"id"`
	Category        string          `json:"category"`
	OccurredAt      string          `json:"occurred_at"`
	ActorType       string          `json:"actor_type,omitempty"`
	ActorID         string          `json:"actor_id,omitempty"`
	OrgID           string          `json:"org_id"`
	ResourceType    string          `json:"resource_type"`
	ResourceID      string          `json:"resource_id,omitempty"`
	Action          string          `json:"action"`
	FlagKey         string          `json:"flag_key,omitempty"`
	IntegrationType string          `json:"integration_type,omitempty"`
	RequestID       string          `json:"request_id,omitempty"`
	ClientIP        string          `json:"client_ip,omitempty"`
	UserAgent       string          `json:"user_agent,omitempty"`
	BeforeState     json.RawMessage `json:"before_state,omitempty"`
	AfterState      json.RawMessage `json:"after_state,omitempty"`
}

// Append inserts the record and its outbox entry through the same executor,
// so both join the caller's transaction when one is in flight.
func (s *PostgresStore) Append(ctx context.Context, record *audit.Record) error {
	before, err := marshalState(record.BeforeState)
	if err != nil {
		return fmt.Errorf("marshal before_state: %w", err)
	}
	after, err := marshalState(record.AfterState)
	if err != nil {
		return fmt.Errorf("marshal after_state: %w", err)
	}

	execer := s.execer(ctx)

	const insertRecord = `
		INSERT INTO audit_records (
			id, category, occurred_at,
			actor_type, actor_id, actor_role, auth_method,
			org_id, resource_type, resource_id, action,
			before_state, after_state,
			flag_key, integration_type, request_id,
			client_ip, user_agent
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	if _, err := execer.ExecContext(ctx, insertRecord,
		uuid.UUID(record.ID),
		string(record.Category),
		record.OccurredAt,
		record.ActorType,
		record.ActorID,
		record.ActorRole,
		record.AuthMethod,
		uuid.UUID(record.OrgID),
		record.ResourceType,
		record.ResourceID,
		record.Action,
		before,
		after,
		record.FlagKey,
		record.IntegrationType,
		record.RequestID,
		record.ClientIP,
		record.UserAgent,
	); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}

	payload, err := json.Marshal(outboxPayload{
		ID:              record.ID.String(),
		Category:        string(record.Category),
		OccurredAt:      record.OccurredAt.Format(time.RFC3339Nano),
		ActorType:       record.ActorType,
		ActorID:         record.ActorID,
		OrgID:           record.OrgID.String(),
		ResourceType:    record.ResourceType,
		ResourceID:      record.ResourceID,
		Action:          record.Action,
		FlagKey:         record.FlagKey,
		IntegrationType: record.IntegrationType,
		RequestID:       record.RequestID,
		ClientIP:        record.ClientIP,
		UserAgent:       record.UserAgent,
		BeforeState:     rawOrNil(before),
		AfterState:      rawOrNil(after),
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	const insertOutbox = `
		INSERT INTO audit_outbox (id, record_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := execer.ExecContext(ctx, insertOutbox,
		uuid.New(),
		uuid.UUID(record.ID),
		payload,
		time.Now(),
	); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Query returns matching records, newest first.
func (s *PostgresStore) Query(ctx context.Context, q audit.Query) ([]audit.Record, error) {
	q.Normalize()

	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, clause+"$"+strconv.Itoa(len(args)))
	}

	if !q.OrgID.IsNil() {
		add("org_id = ", uuid.UUID(q.OrgID))
	}
	if q.Category != "" {
		add("category = ", string(q.Category))
	}
	if q.FlagKey != "" {
		add("flag_key = ", q.FlagKey)
	}
	if q.IntegrationType != "" {
		add("integration_type = ", q.IntegrationType)
	}
	if !q.Start.IsZero() {
		add("occurred_at >= ", q.Start)
	}
	if !q.End.IsZero() {
		add("occurred_at <= ", q.End)
	}

	query := `
		SELECT id, category, occurred_at,
			   actor_type, actor_id, actor_role, auth_method,
			   org_id, resource_type, resource_id, action,
			   before_state, after_state,
			   flag_key, integration_type, request_id,
			   client_ip, user_agent
		FROM audit_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, q.Limit, q.Offset)
	query += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ScanExpired returns purge candidates oldest first, after the cursor.
func (s *PostgresStore) ScanExpired(ctx context.Context, category audit.Category, cutoff time.Time, after Cursor, limit int) ([]audit.Record, error) {
	const query = `
		SELECT id, category, occurred_at,
			   actor_type, actor_id, actor_role, auth_method,
			   org_id, resource_type, resource_id, action,
			   before_state, after_state,
			   flag_key, integration_type, request_id,
			   client_ip, user_agent
		FROM audit_records
		WHERE category = $1
		  AND occurred_at < $2
		  AND (occurred_at, id) > ($3, $4)
		ORDER BY occurred_at ASC, id ASC
		LIMIT $5
	`
	rows, err := s.db.QueryContext(ctx, query,
		string(category),
		cutoff,
		after.OccurredAt,
		uuid.UUID(after.ID),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("scan expired audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Purge deletes the given rows inside a dedicated transaction that sets the
// glint.allow_purge flag the immutability trigger checks. This is the only
// code path that sets it.
func (s *PostgresStore) Purge(ctx context.Context, token PurgeToken, ids []id.RecordID) (int64, error) {
	if !token.Valid() {
		return 0, fmt.Errorf("purge audit records: %w", errInvalidPurgeToken)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin purge tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SET LOCAL glint.allow_purge = 'on'`); err != nil {
		return 0, fmt.Errorf("arm purge flag: %w", err)
	}

	raw := make([]uuid.UUID, len(ids))
	for i, rid := range ids {
		raw[i] = uuid.UUID(rid)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM audit_records WHERE id = ANY($1)`,
		pq.Array(raw),
	)
	if err != nil {
		return 0, fmt.Errorf("delete audit records: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted audit records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit purge batch: %w", err)
	}
	return deleted, nil
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	var records []audit.Record

	for rows.Next() {
		var (
			r             audit.Record
			recordID      uuid.UUID
			orgID         uuid.UUID
			category      string
			before, after []byte
		)

		err := rows.Scan(
			&recordID,
			&category,
			&r.OccurredAt,
			&r.ActorType,
			&r.ActorID,
			&r.ActorRole,
			&r.AuthMethod,
			&orgID,
			&r.ResourceType,
			&r.ResourceID,
			&r.Action,
			&before,
			&after,
			&r.FlagKey,
			&r.IntegrationType,
			&r.RequestID,
			&r.ClientIP,
			&r.UserAgent,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}

		r.ID = id.RecordID(recordID)
		r.OrgID = id.OrgID(orgID)
		r.Category = audit.Category(category)
		if r.BeforeState, err = unmarshalState(before); err != nil {
			return nil, fmt.Errorf("unmarshal before_state: %w", err)
		}
		if r.AfterState, err = unmarshalState(after); err != nil {
			return nil, fmt.Errorf("unmarshal after_state: %w", err)
		}

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

func marshalState(state map[string]any) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}

func unmarshalState(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var state map[string]any
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return state, nil
}

func rawOrNil(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
