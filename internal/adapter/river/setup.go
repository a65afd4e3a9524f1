package river

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"
)

// Queues. Fiscal submissions get their own queue so a slow authority API
// cannot hold up event processing for the rest of the platform.
const (
	QueueEvents = river.QueueDefault
	QueueFiscal = "fiscal"
)

// Options configures Setup. The zero value is usable.
type Options struct {
	// Submitter reports issued invoices. Nil disables fiscal submission.
	Submitter InvoiceSubmitter
	// EventWorkers and FiscalWorkers bound each queue's concurrency.
	EventWorkers  int
	FiscalWorkers int
	Logger        *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.EventWorkers <= 0 {
		o.EventWorkers = 2
	}
	if o.FiscalWorkers <= 0 {
		o.FiscalWorkers = 1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Setup runs River's migrations on the catalog database and returns a client
// with the event worker registered on both queues. The caller must Start the
// client to begin processing jobs and Stop it for graceful shutdown.
func Setup(ctx context.Context, db *sql.DB, opts Options) (*Client, error) {
	opts = opts.withDefaults()
	driver := riversqlite.New(db)

	// River's tables (river_job, river_leader, ...) are versioned separately
	// from the goose-managed catalog schema.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("running river migrations: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewEventWorker(opts.Submitter))

	client, err := river.NewClient(driver, &river.Config{
		Logger: opts.Logger,
		Queues: map[string]river.QueueConfig{
			QueueEvents: {MaxWorkers: opts.EventWorkers},
			QueueFiscal: {MaxWorkers: opts.FiscalWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, nil
}
