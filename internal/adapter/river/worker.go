package river

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/serviq/internal/domain"
)

// Invoice events reported to the fiscal registry.
const (
	EventInvoiceIssued    = domain.KindInvoice + "." + string(domain.ActionIssue)
	EventInvoiceCancelled = domain.KindInvoice + "." + string(domain.ActionCancel)
)

// InvoiceSubmitter reports issued invoices, and the annulment of issued
// invoices, to the fiscal authority.
type InvoiceSubmitter interface {
	SubmitInvoice(ctx context.Context, event domain.Event) error
	AnnulInvoice(ctx context.Context, event domain.Event) error
}

// fiscalEvent reports whether ev must reach the fiscal registry. Drafts were
// never registered, so cancelling one is not reported.
func fiscalEvent(ev domain.Event) bool {
	switch ev.Name {
	case EventInvoiceIssued:
		return true
	case EventInvoiceCancelled:
		return ev.From != string(domain.InvoiceDraft)
	}
	return false
}

// EventWorker processes domain event jobs from the River queue. Every event
// is logged. Issued invoices are submitted to the fiscal authority and
// cancelled issued invoices are annulled there.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]

	submitter InvoiceSubmitter
}

// NewEventWorker creates a worker. A nil submitter disables fiscal submission.
func NewEventWorker(submitter InvoiceSubmitter) *EventWorker {
	return &EventWorker{submitter: submitter}
}

// Work processes a single event job. A returned error makes River retry the
// job with backoff.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	ev := job.Args.Event
	slog.InfoContext(ctx, "processing event",
		"event", ev.Name,
		"event_id", ev.ID,
		"tenant_id", ev.TenantID,
		"entity_id", ev.EntityID,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)

	if !fiscalEvent(ev) || w.submitter == nil {
		return nil
	}

	submit, op := w.submitter.SubmitInvoice, "submitting"
	if ev.Name == EventInvoiceCancelled {
		submit, op = w.submitter.AnnulInvoice, "annulling"
	}
	if err := submit(ctx, ev); err != nil {
		slog.WarnContext(ctx, "fiscal submission failed",
			"event", ev.Name,
			"event_id", ev.ID,
			"tenant_id", ev.TenantID,
			"invoice_id", ev.EntityID,
			"attempt", job.Attempt,
			"error", err,
		)
		return fmt.Errorf("%s invoice %s: %w", op, ev.EntityID, err)
	}
	return nil
}
