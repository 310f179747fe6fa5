//go:build integration

package outbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"glint/internal/audit"
	"glint/internal/audit/outbox"
	auditstore "glint/internal/audit/store"
	id "glint/pkg/domain"
	"glint/pkg/testutil/containers"
)

type PostgresOutboxSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	audit    *auditstore.PostgresStore
	store    *outbox.PostgresStore
}

func TestPostgresOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresOutboxSuite))
}

func (s *PostgresOutboxSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.audit = auditstore.NewPostgres(s.postgres.DB)
	s.store = outbox.NewPostgres(s.postgres.DB)
}

func (s *PostgresOutboxSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "audit_outbox", "audit_records")
	s.Require().NoError(err)
}

func (s *PostgresOutboxSuite) appendRecord(occurredAt time.Time) {
	record := &audit.Record{
		ID:           id.NewRecordID(),
		Category:     audit.CategoryConfig,
		OccurredAt:   occurredAt,
		OrgID:        id.OrgID(uuid.New()),
		ResourceType: "pricing_rule",
		Action:       "update",
	}
	s.Require().NoError(s.audit.Append(context.Background(), record))
}

func (s *PostgresOutboxSuite) TestListPendingOldestFirst() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.appendRecord(time.Now().UTC())
	}

	entries, err := s.store.ListPending(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	for i := 1; i < len(entries); i++ {
		s.False(entries[i].CreatedAt.Before(entries[i-1].CreatedAt))
	}
}

func (s *PostgresOutboxSuite) TestMarkPublishedClearsBacklog() {
	ctx := context.Background()
	s.appendRecord(time.Now().UTC())
	s.appendRecord(time.Now().UTC())

	entries, err := s.store.ListPending(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)

	ids := []uuid.UUID{entries[0].ID}
	s.Require().NoError(s.store.MarkPublished(ctx, ids))

	pending, err := s.store.CountPending(ctx)
	s.Require().NoError(err)
	s.Equal(1, pending)

	remaining, err := s.store.ListPending(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal(entries[1].ID, remaining[0].ID)
}

func (s *PostgresOutboxSuite) TestMarkPublishedIsIdempotent() {
	ctx := context.Background()
	s.appendRecord(time.Now().UTC())

	entries, err := s.store.ListPending(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)

	ids := []uuid.UUID{entries[0].ID}
	s.Require().NoError(s.store.MarkPublished(ctx, ids))
	s.Require().NoError(s.store.MarkPublished(ctx, ids))

	pending, err := s.store.CountPending(ctx)
	s.Require().NoError(err)
	s.Equal(0, pending)
}
