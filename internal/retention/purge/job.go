// Package purge implements the scheduled retention run: scan expired audit
// records, exclude held ones, delete the rest in independently committed
// batches, and account for all of it in an immutable purge event.
package purge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"glint/internal/audit"
	auditstore "glint/internal/audit/store"
	"glint/internal/retention"
	"glint/internal/retention/legalhold"
	"glint/internal/retention/purge/metrics"
	id "glint/pkg/domain"
	dErrors "glint/pkg/domain-errors"
	"glint/pkg/platform/sentinel"
	"glint/pkg/requestcontext"
)

var tracer = otel.Tracer("glint/retention/purge")

const (
	defaultBatchSize      = 500
	defaultMaxAttempts    = 3
	defaultBatchTimeout   = 30 * time.Second
	defaultLockTTL        = time.Hour
	defaultRetryBaseDelay = time.Second
)

// AuditStore is the slice of the audit store the runner needs: candidate
// scanning and the token-gated delete.
type AuditStore interface {
	ScanExpired(ctx context.Context, category audit.Category, cutoff time.Time, after auditstore.Cursor, limit int) ([]audit.Record, error)
	Purge(ctx context.Context, token auditstore.PurgeToken, ids []id.RecordID) (int64, error)
}

// HoldSource supplies the active legal holds for a run.
type HoldSource interface {
	Snapshot(ctx context.Context) (legalhold.HoldSet, error)
}

// EventSink records finished runs.
type EventSink interface {
	AppendEvent(ctx context.Context, event *retention.PurgeEvent) error
}

// Runner executes retention purge runs. Exactly one run is in flight at a
// time, enforced by the Locker across processes.
type Runner struct {
	store   AuditStore
	holds   HoldSource
	events  EventSink
	locker  Locker
	policy  retention.Policy
	logger  *slog.Logger
	metrics *metrics.Metrics

	batchSize      int
	maxAttempts    int
	batchTimeout   time.Duration
	lockTTL        time.Duration
	retryBaseDelay time.Duration
}

// RunnerOption configures the Runner.
type RunnerOption func(*Runner)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithBatchSize sets how many candidates each scan/delete batch covers.
func WithBatchSize(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithMaxAttempts bounds retries per batch before the run aborts.
func WithMaxAttempts(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithBatchTimeout bounds each batch delete; exceeding it counts as a batch
// failure subject to the retry policy.
func WithBatchTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.batchTimeout = d
		}
	}
}

// WithLockTTL sets how long a crashed run can hold the lock.
func WithLockTTL(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.lockTTL = d
		}
	}
}

// WithRetryBaseDelay sets the first backoff delay; tests shrink it.
func WithRetryBaseDelay(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.retryBaseDelay = d
		}
	}
}

// NewRunner constructs the purge runner.
func NewRunner(store AuditStore, holds HoldSource, events EventSink, locker Locker, policy retention.Policy, opts ...RunnerOption) (*Runner, error) {
	if store == nil || holds == nil || events == nil || locker == nil {
		return nil, fmt.Errorf("purge runner requires store, holds, events, and locker")
	}
	r := &Runner{
		store:          store,
		holds:          holds,
		events:         events,
		locker:         locker,
		policy:         policy,
		logger:         slog.Default(),
		batchSize:      defaultBatchSize,
		maxAttempts:    defaultMaxAttempts,
		batchTimeout:   defaultBatchTimeout,
		lockTTL:        defaultLockTTL,
		retryBaseDelay: defaultRetryBaseDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes one purge run under the configured policy.
func (r *Runner) Run(ctx context.Context) (*retention.PurgeEvent, error) {
	return r.RunWith(ctx, r.policy)
}

// RunWith executes one purge run under an explicit policy; the manual
// trigger endpoint uses it to force dry-run.
func (r *Runner) RunWith(ctx context.Context, policy retention.Policy) (*retention.PurgeEvent, error) {
	runID := id.NewRunID()

	acquired, err := r.locker.Acquire(ctx, LockKey, runID.String(), r.lockTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "purge lock unavailable")
	}
	if !acquired {
		return nil, dErrors.Wrap(sentinel.ErrLocked, dErrors.CodeConflict, "a purge run is already in progress")
	}
	defer func() {
		if err := r.locker.Release(context.WithoutCancel(ctx), LockKey, runID.String()); err != nil {
			r.logger.Warn("purge lock release failed", "run_id", runID, "error", err)
		}
	}()

	ctx, span := tracer.Start(ctx, "purge.Run",
		trace.WithAttributes(
			attribute.String("purge.run_id", runID.String()),
			attribute.Bool("purge.dry_run", policy.DryRun()),
		),
	)
	defer span.End()

	started := requestcontext.Now(ctx)
	r.logger.InfoContext(ctx, "purge run started", "run_id", runID, "dry_run", policy.DryRun())

	event := &retention.PurgeEvent{
		ID:        runID,
		Actor:     "system",
		StartedAt: started,
		DryRun:    policy.DryRun(),
		Policy:    policy.Snapshot(),
		Counts:    make(map[string]retention.TableCounts),
	}

	holdSet, err := r.holds.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var (
		runErr error
		total  retention.TableCounts
	)
	for _, category := range audit.Categories {
		counts, err := r.purgeCategory(ctx, runID, policy, holdSet, category, started)
		event.Counts[string(category)] = counts
		total.Add(counts)
		if err != nil {
			// Abort the run; committed batches stay committed and the
			// age-based scan makes the next run pick up where this one
			// stopped.
			runErr = err
			break
		}
	}

	event.FinishedAt = requestcontext.Now(ctx)
	if runErr != nil {
		event.Aborted = true
		event.Error = runErr.Error()
		span.RecordError(runErr)
		if r.metrics != nil {
			r.metrics.IncrementRunFailures()
		}
	}

	if err := r.events.AppendEvent(ctx, event); err != nil {
		r.logger.ErrorContext(ctx, "purge event write failed", "run_id", runID, "error", err)
		if runErr == nil {
			runErr = dErrors.Wrap(err, dErrors.CodeInternal, "failed to record purge event")
		}
	}

	if r.metrics != nil {
		r.metrics.ObserveRunDuration(time.Since(started).Seconds())
	}

	r.logger.InfoContext(ctx, "purge run finished",
		"run_id", runID,
		"dry_run", policy.DryRun(),
		"aborted", event.Aborted,
		"eligible", total.Eligible,
		"purged", total.Purged,
		"held", total.Held,
		"duration_ms", event.FinishedAt.Sub(started).Milliseconds(),
	)

	if runErr != nil {
		return event, runErr
	}
	return event, nil
}

func (r *Runner) purgeCategory(ctx context.Context, runID id.RunID, policy retention.Policy, holds legalhold.HoldSet, category audit.Category, now time.Time) (retention.TableCounts, error) {
	var counts retention.TableCounts

	// One "now" for the whole run keeps every category's cutoff consistent.
	cutoff := policy.Cutoff(category, now)
	if cutoff.IsZero() {
		return counts, nil
	}

	var cursor auditstore.Cursor
	for {
		batch, err := r.store.ScanExpired(ctx, category, cutoff, cursor, r.batchSize)
		if err != nil {
			return counts, dErrors.Wrap(err, dErrors.CodeInternal, "purge scan failed")
		}
		if len(batch) == 0 {
			return counts, nil
		}
		last := batch[len(batch)-1]
		cursor = auditstore.Cursor{OccurredAt: last.OccurredAt, ID: last.ID}

		doomed := make([]id.RecordID, 0, len(batch))
		var held int64
		for _, record := range batch {
			counts.Eligible++
			if holds.Covers(record.OrgID, record.OccurredAt) {
				held++
				continue
			}
			doomed = append(doomed, record.ID)
		}
		counts.Held += held
		if r.metrics != nil {
			r.metrics.AddEligible(string(category), int64(len(batch)))
			r.metrics.AddHeld(string(category), held)
		}

		// Dry runs count what would be deleted but purge nothing.
		if policy.DryRun() {
			continue
		}
		if len(doomed) == 0 {
			continue
		}

		purged, err := r.deleteBatch(ctx, runID, doomed)
		if err != nil {
			return counts, err
		}
		counts.Purged += purged
		if r.metrics != nil {
			r.metrics.AddPurged(string(category), purged)
		}

		r.logger.DebugContext(ctx, "purge batch committed",
			"run_id", runID,
			"category", category,
			"purged", purged,
			"held", held,
		)
	}
}

// deleteBatch commits one batch, retrying transient failures with
// exponential backoff. Exhausting the attempts aborts the run.
func (r *Runner) deleteBatch(ctx context.Context, runID id.RunID, doomed []id.RecordID) (int64, error) {
	token, err := auditstore.MintPurgeToken(runID)
	if err != nil {
		return 0, err
	}

	var lastErr error
	delay := r.retryBaseDelay
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		batchCtx, cancel := context.WithTimeout(ctx, r.batchTimeout)
		purged, err := r.store.Purge(batchCtx, token, doomed)
		cancel()
		if err == nil {
			return purged, nil
		}
		lastErr = err

		r.logger.WarnContext(ctx, "purge batch failed",
			"run_id", runID,
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"error", err,
		)
		if attempt == r.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return 0, dErrors.Wrap(lastErr, dErrors.CodeInternal, "purge batch failed after retries")
}
