package legalhold

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "glint/pkg/domain"
	"glint/pkg/platform/sentinel"
	txcontext "glint/pkg/platform/tx"
)

// PostgresStore persists legal holds. Migration 0002 installs a trigger that
// rejects DELETE outright and permits UPDATE only when it sets released_at
// from NULL, so the release path is the single mutation the table allows.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed legal hold store.
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

func (s *PostgresStore) Create(ctx context.Context, hold *Hold) error {
	const query = `
		INSERT INTO legal_holds (
			id, org_id, start_at, end_at, investigation_id,
			reason, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(hold.ID),
		orgOrNil(hold.OrgID),
		hold.Start,
		hold.End,
		string(hold.InvestigationID),
		hold.Reason,
		hold.CreatedBy,
		hold.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert legal hold: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, holdID id.HoldID) (*Hold, error) {
	row := s.db.QueryRowContext(ctx, selectHolds+` WHERE id = $1`, uuid.UUID(holdID))
	hold, err := scanHold(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get legal hold: %w", err)
	}
	return hold, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]Hold, error) {
	return s.listWhere(ctx, selectHolds+` WHERE released_at IS NULL ORDER BY created_at DESC`)
}

func (s *PostgresStore) List(ctx context.Context) ([]Hold, error) {
	return s.listWhere(ctx, selectHolds+` ORDER BY created_at DESC`)
}

func (s *PostgresStore) listWhere(ctx context.Context, query string, args ...any) ([]Hold, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list legal holds: %w", err)
	}
	defer rows.Close()

	var holds []Hold
	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan legal hold: %w", err)
		}
		holds = append(holds, *hold)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legal holds: %w", err)
	}
	return holds, nil
}

func (s *PostgresStore) Release(ctx context.Context, holdID id.HoldID, releasedAt time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE legal_holds SET released_at = $2 WHERE id = $1 AND released_at IS NULL`,
		uuid.UUID(holdID), releasedAt,
	)
	if err != nil {
		return fmt.Errorf("release legal hold: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release legal hold: %w", err)
	}
	if affected == 0 {
		// Distinguish "never existed" from "already released".
		if _, err := s.Get(ctx, holdID); err != nil {
			return err
		}
		return sentinel.ErrConflict
	}
	return nil
}

const selectHolds = `
	SELECT id, org_id, start_at, end_at, investigation_id,
		   reason, created_by, created_at, released_at
	FROM legal_holds`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHold(row rowScanner) (*Hold, error) {
	var (
		h               Hold
		holdID          uuid.UUID
		orgID           uuid.NullUUID
		investigationID string
	)
	err := row.Scan(
		&holdID,
		&orgID,
		&h.Start,
		&h.End,
		&investigationID,
		&h.Reason,
		&h.CreatedBy,
		&h.CreatedAt,
		&h.ReleasedAt,
	)
	if err != nil {
		return nil, err
	}

	h.ID = id.HoldID(holdID)
	h.InvestigationID = id.InvestigationID(investigationID)
	if orgID.Valid {
		org := id.OrgID(orgID.UUID)
		h.OrgID = &org
	}
	return &h, nil
}

func orgOrNil(orgID *id.OrgID) any {
	if orgID == nil {
		return nil
	}
	return uuid.UUID(*orgID)
}
