package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"glint/internal/audit"
	"glint/internal/audit/store"
	id "glint/pkg/domain"
	dErrors "glint/pkg/domain-errors"
)

func mustUUID(s string) uuid.UUID {
	return uuid.MustParse(s)
}

// fakeTxRunner mimics the fail-closed transaction boundary: when fn errors,
// everything appended during the run is discarded, matching a rollback.
type fakeTxRunner struct {
	store *store.InMemoryStore
}

func (r *fakeTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	before := r.store.Len()
	if err := fn(ctx); err != nil {
		r.store.Rewind(before)
		return err
	}
	return nil
}

type InterceptorSuite struct {
	suite.Suite
	store       *store.InMemoryStore
	interceptor *audit.Interceptor
	orgID       id.OrgID
	mutated     bool
}

func TestInterceptorSuite(t *testing.T) {
	suite.Run(t, new(InterceptorSuite))
}

func (s *InterceptorSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.mutated = false

	svc, err := audit.NewService(s.store)
	s.Require().NoError(err)

	interceptor, err := audit.NewInterceptor(svc, &fakeTxRunner{store: s.store}, nil)
	s.Require().NoError(err)
	s.interceptor = interceptor
	s.orgID = id.OrgID(mustUUID("22222222-2222-2222-2222-222222222222"))
}

func (s *InterceptorSuite) entry() audit.Entry {
	return audit.Entry{
		Category:     audit.CategoryAdmin,
		OrgID:        s.orgID,
		ResourceType: "team_member",
		ResourceID:   "member-3",
		Action:       "role_grant",
	}
}

func (s *InterceptorSuite) TestMutate_CommitsMutationAndRecordTogether() {
	err := s.interceptor.Mutate(context.Background(), s.entry(), func(ctx context.Context) error {
		s.mutated = true
		return nil
	})
	s.Require().NoError(err)
	s.True(s.mutated)
	s.Equal(1, s.store.Len())
}

func (s *InterceptorSuite) TestMutate_MutationFailureWritesNoRecord() {
	boom := errors.New("constraint violation")
	err := s.interceptor.Mutate(context.Background(), s.entry(), func(ctx context.Context) error {
		return boom
	})
	s.Require().ErrorIs(err, boom)
	s.Equal(0, s.store.Len())
}

func (s *InterceptorSuite) TestMutate_AuditFailureRollsBackMutation() {
	svc, err := audit.NewService(failingStore{})
	s.Require().NoError(err)
	interceptor, err := audit.NewInterceptor(svc, &fakeTxRunner{store: s.store}, nil)
	s.Require().NoError(err)

	err = interceptor.Mutate(context.Background(), s.entry(), func(ctx context.Context) error {
		s.mutated = true
		return nil
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	// The mutation closure ran, but the rollback means its effects never
	// became visible. The fake models that with record count.
	s.Equal(0, s.store.Len())
}

func (s *InterceptorSuite) TestMutate_InvalidEntryFailsBeforeTransaction() {
	entry := s.entry()
	entry.ResourceType = ""

	err := s.interceptor.Mutate(context.Background(), entry, func(ctx context.Context) error {
		s.mutated = true
		return nil
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.False(s.mutated)
}
