package audit

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	dErrors "glint/pkg/domain-errors"
)

var interceptorTracer = otel.Tracer("glint/audit")

// TxRunner executes fn inside a database transaction. The transaction is
// placed in the context fn receives so store calls inside it join the same
// commit boundary.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Interceptor wraps business mutations with write-through auditing. The
// mutation and its audit record commit atomically; if either side fails the
// whole transaction rolls back. There is no mode in which the mutation
// succeeds without its record.
type Interceptor struct {
	service *Service
	runner  TxRunner
	logger  *slog.Logger
}

// NewInterceptor constructs the write-through interceptor.
func NewInterceptor(service *Service, runner TxRunner, logger *slog.Logger) (*Interceptor, error) {
	if service == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "audit service is required")
	}
	if runner == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "transaction runner is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Interceptor{service: service, runner: runner, logger: logger}, nil
}

// Mutate runs the business mutation and appends its audit record in one
// transaction. The entry is validated before the transaction opens so a
// malformed call fails fast without touching the database.
func (i *Interceptor) Mutate(ctx context.Context, entry Entry, mutation func(ctx context.Context) error) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	ctx, span := interceptorTracer.Start(ctx, "audit.Mutate",
		trace.WithAttributes(
			attribute.String("audit.category", string(entry.Category)),
			attribute.String("audit.action", entry.Action),
			attribute.String("audit.resource_type", entry.ResourceType),
		),
	)
	defer span.End()

	err := i.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := mutation(txCtx); err != nil {
			return err
		}
		return i.service.Log(txCtx, entry)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
