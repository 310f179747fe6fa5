package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"glint/internal/audit/metrics"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 200
)

// Worker drains the outbox to the publisher on a fixed interval. Delivery is
// at-least-once: entries are marked published only after the producer
// confirms the batch, so a crash between the two replays the batch.
type Worker struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics

	interval  time.Duration
	batchSize int
}

// WorkerOption configures the Worker.
type WorkerOption func(*Worker)

// WithPollInterval overrides how often the worker drains the outbox.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithBatchSize overrides the drain batch size.
func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

// NewWorker constructs the outbox drain worker.
func NewWorker(store Store, publisher Publisher, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:     store,
		publisher: publisher,
		logger:    logger,
		interval:  defaultPollInterval,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the outbox until the context is cancelled. Errors are logged
// and retried on the next tick; the worker never exits on a transient broker
// failure.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.DrainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// DrainOnce publishes one batch of pending entries. Exported so tests and
// the admin trigger can drain without the ticker.
func (w *Worker) DrainOnce(ctx context.Context) error {
	entries, err := w.store.ListPending(ctx, w.batchSize)
	if err != nil {
		return err
	}
	w.reportBacklog(ctx)
	if len(entries) == 0 {
		return nil
	}

	if err := w.publisher.Publish(ctx, entries); err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if err := w.store.MarkPublished(ctx, ids); err != nil {
		return err
	}

	w.logger.DebugContext(ctx, "outbox batch published", "count", len(entries))
	return nil
}

func (w *Worker) reportBacklog(ctx context.Context) {
	if w.metrics == nil {
		return
	}
	n, err := w.store.CountPending(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "outbox backlog count failed", "error", err)
		return
	}
	w.metrics.SetOutboxPending(n)
}
