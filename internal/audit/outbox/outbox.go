// Package outbox drains audit records to the Kafka compliance stream. The
// store writes an outbox row in the same transaction as each audit record, so
// the stream eventually sees exactly the records the log committed, even
// across broker outages.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one pending outbox row. Payload is the JSON the consumer expects
// on the compliance topic, frozen at append time.
type Entry struct {
	ID          uuid.UUID
	RecordID    uuid.UUID
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// Store is the outbox persistence contract.
type Store interface {
	// ListPending returns up to limit unpublished entries, oldest first.
	ListPending(ctx context.Context, limit int) ([]Entry, error)

	// MarkPublished stamps the entries as delivered.
	MarkPublished(ctx context.Context, ids []uuid.UUID) error

	// CountPending reports the current backlog size.
	CountPending(ctx context.Context) (int, error)
}

// Publisher delivers outbox entries to the downstream stream.
type Publisher interface {
	Publish(ctx context.Context, entries []Entry) error
}
