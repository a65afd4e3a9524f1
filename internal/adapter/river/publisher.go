package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/serviq/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// EventJobArgs carries one released domain event. River serializes it as
// JSON into its job queue table, so the worker never needs to query a
// tenant store.
type EventJobArgs struct {
	domain.Event
}

// Kind returns the unique job type identifier used by River's job routing.
func (EventJobArgs) Kind() string { return "event.published" }

// fiscalMaxAttempts keeps retrying a submission for roughly a day with
// River's default backoff.
const fiscalMaxAttempts = 20

// InsertOpts routes events reported to the fiscal registry to the fiscal queue.
func (a EventJobArgs) InsertOpts() river.InsertOpts {
	if fiscalEvent(a.Event) {
		return river.InsertOpts{Queue: QueueFiscal, MaxAttempts: fiscalMaxAttempts}
	}
	return river.InsertOpts{Queue: QueueEvents}
}

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues the events as one batch, preserving their order.
func (p *Publisher) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	params := make([]river.InsertManyParams, len(events))
	for i, e := range events {
		params[i] = river.InsertManyParams{Args: EventJobArgs{Event: e}}
	}
	if _, err := p.client.InsertMany(ctx, params); err != nil {
		return fmt.Errorf("enqueuing %d event jobs: %w", len(events), err)
	}
	return nil
}
