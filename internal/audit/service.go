package audit

import (
	"context"
	"fmt"
	"log/slog"

	"glint/internal/audit/metrics"
	id "glint/pkg/domain"
	dErrors "glint/pkg/domain-errors"
	"glint/pkg/requestcontext"
)

// Store is the subset of the persistence contract the service needs. The
// full append-only contract (including the purge capability) lives in the
// store package.
type Store interface {
	Append(ctx context.Context, record *Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
}

// Service turns audit entries into immutable records: it stamps identity,
// request correlation, and server time, and redacts state snapshots before
// anything touches a store.
type Service struct {
	store    Store
	redactor *Redactor
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRedactor overrides the default redactor, e.g. to extend the
// sensitive-key list for a deployment.
func WithRedactor(r *Redactor) Option {
	return func(s *Service) {
		s.redactor = r
	}
}

// NewService constructs the audit service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	s := &Service{
		store:    store,
		redactor: NewRedactor(WithFingerprints()),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Log appends one audit record for the described mutation. It participates
// in whatever transaction is present in ctx; a failure here must abort that
// transaction (fail-closed), so the error is never swallowed.
func (s *Service) Log(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	actor := requestcontext.Actor(ctx)
	record := &Record{
		ID:              id.NewRecordID(),
		Category:        entry.Category,
		OccurredAt:      requestcontext.Now(ctx),
		ActorType:       actor.Type,
		ActorID:         actor.ID,
		ActorRole:       actor.Role,
		AuthMethod:      actor.AuthMethod,
		OrgID:           entry.OrgID,
		ResourceType:    entry.ResourceType,
		ResourceID:      entry.ResourceID,
		Action:          entry.Action,
		BeforeState:     s.redactor.Redact(entry.BeforeState),
		AfterState:      s.redactor.Redact(entry.AfterState),
		FlagKey:         entry.FlagKey,
		IntegrationType: entry.IntegrationType,
		RequestID:       requestcontext.RequestID(ctx),
		ClientIP:        requestcontext.ClientIP(ctx),
		UserAgent:       requestcontext.UserAgent(ctx),
	}
	if record.ActorType == "" {
		record.ActorType = "system"
		record.AuthMethod = "system"
	}

	if err := s.store.Append(ctx, record); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementWriteFailures()
		}
		s.logger.ErrorContext(ctx, "audit write failed",
			"request_id", record.RequestID,
			"org_id", record.OrgID,
			"category", record.Category,
			"action", record.Action,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit write failed")
	}

	if s.metrics != nil {
		s.metrics.IncrementRecordsWritten(string(record.Category))
	}
	return nil
}

// List returns audit records matching the query, newest first.
func (s *Service) List(ctx context.Context, q Query) ([]Record, error) {
	q.Normalize()
	records, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit records")
	}
	return records, nil
}
