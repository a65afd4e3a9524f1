package river_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	goriver "github.com/riverqueue/river"

	_ "modernc.org/sqlite"

	riveradapter "github.com/neomorfeo/serviq/internal/adapter/river"
	"github.com/neomorfeo/serviq/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := t.TempDir() + "/river_test.db"
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		t.Fatalf("setting WAL: %v", err)
	}

	return db
}

// recordingSubmitter captures submitted and annulled invoices.
type recordingSubmitter struct {
	mu       sync.Mutex
	events   []domain.Event
	annulled []domain.Event
}

func (r *recordingSubmitter) SubmitInvoice(_ context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSubmitter) AnnulInvoice(_ context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.annulled = append(r.annulled, ev)
	return nil
}

func (r *recordingSubmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func startClient(t *testing.T, submitter riveradapter.InvoiceSubmitter) (*riveradapter.Client, <-chan *goriver.Event) {
	t.Helper()
	db := setupTestDB(t)
	ctx := context.Background()

	client, err := riveradapter.Setup(ctx, db, riveradapter.Options{Submitter: submitter})
	if err != nil {
		t.Fatalf("river setup: %v", err)
	}

	// Subscribe to job completions before starting so we don't miss events.
	subscribeChan, subscribeCancel := client.Subscribe(goriver.EventKindJobCompleted)
	t.Cleanup(subscribeCancel)

	if err := client.Start(ctx); err != nil {
		t.Fatalf("river start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			t.Errorf("river stop: %v", err)
		}
	})
	return client, subscribeChan
}

func waitCompleted(t *testing.T, ch <-chan *goriver.Event, n int) []*goriver.Event {
	t.Helper()
	var out []*goriver.Event
	for len(out) < n {
		select {
		case event := <-ch:
			out = append(out, event)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for job completion (%d/%d)", len(out), n)
		}
	}
	return out
}

func TestPublisher_Publish_EnqueuesJobs(t *testing.T) {
	client, completed := startClient(t, nil)
	pub := riveradapter.NewPublisher(client)

	events := []domain.Event{
		{ID: "e-1", Name: "client.created", EntityType: "client", EntityID: "c-1", TenantID: "t-1"},
		{ID: "e-2", Name: "client.deactivate", EntityType: "client", EntityID: "c-1", TenantID: "t-1", From: "active", To: "inactive"},
	}
	if err := pub.Publish(context.Background(), events); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for _, event := range waitCompleted(t, completed, 2) {
		if event.Job.Kind != "event.published" {
			t.Errorf("job kind = %q, want %q", event.Job.Kind, "event.published")
		}
	}
}

func TestPublisher_Publish_PreservesEventData(t *testing.T) {
	client, completed := startClient(t, nil)
	pub := riveradapter.NewPublisher(client)

	ev := domain.Event{
		ID: "e-42", Name: "tenant.suspend", EntityType: "tenant", EntityID: "t-42",
		TenantID: "t-42", From: "active", To: "suspended", OccurredAt: time.Now().UTC(),
	}
	if err := pub.Publish(context.Background(), []domain.Event{ev}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	event := waitCompleted(t, completed, 1)[0]
	// The args are stored as JSON; verify key fields are present.
	argsStr := string(event.Job.EncodedArgs)
	for _, want := range []string{`"name":"tenant.suspend"`, `"tenant_id":"t-42"`, `"from":"active"`, `"to":"suspended"`} {
		if !strings.Contains(argsStr, want) {
			t.Errorf("encoded args missing %s, got: %s", want, argsStr)
		}
	}
}

func TestPublisher_Publish_Empty(t *testing.T) {
	pub := riveradapter.NewPublisher(nil)
	if err := pub.Publish(context.Background(), nil); err != nil {
		t.Fatalf("Publish(nil) = %v, want nil", err)
	}
}

func TestWorker_SubmitsIssuedInvoices(t *testing.T) {
	submitter := &recordingSubmitter{}
	client, completed := startClient(t, submitter)
	pub := riveradapter.NewPublisher(client)

	events := []domain.Event{
		{ID: "e-1", Name: "invoice.created", EntityType: "invoice", EntityID: "i-1", TenantID: "t-1"},
		{ID: "e-2", Name: riveradapter.EventInvoiceIssued, EntityType: "invoice", EntityID: "i-1", TenantID: "t-1",
			Payload: map[string]string{"number": "2026-0001", "total": "12100", "currency": "EUR"}},
	}
	if err := pub.Publish(context.Background(), events); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	waitCompleted(t, completed, 2)

	if got := submitter.count(); got != 1 {
		t.Fatalf("submitted %d invoices, want 1", got)
	}
	if got := submitter.events[0].Payload["number"]; got != "2026-0001" {
		t.Errorf("submitted number = %q", got)
	}
}

func TestPublisher_RoutesIssuedInvoicesToFiscalQueue(t *testing.T) {
	client, completed := startClient(t, &recordingSubmitter{})
	pub := riveradapter.NewPublisher(client)

	events := []domain.Event{
		{ID: "e-1", Name: "invoice.created", EntityType: "invoice", EntityID: "i-1", TenantID: "t-1"},
		{ID: "e-2", Name: riveradapter.EventInvoiceIssued, EntityType: "invoice", EntityID: "i-1", TenantID: "t-1"},
		{ID: "e-3", Name: riveradapter.EventInvoiceCancelled, EntityType: "invoice", EntityID: "i-1", TenantID: "t-1", From: "pending"},
		{ID: "e-4", Name: riveradapter.EventInvoiceCancelled, EntityType: "invoice", EntityID: "i-2", TenantID: "t-1", From: "draft"},
	}
	if err := pub.Publish(context.Background(), events); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	fiscal := map[string]bool{"e-2": true, "e-3": true}
	for _, event := range waitCompleted(t, completed, len(events)) {
		var args riveradapter.EventJobArgs
		if err := json.Unmarshal(event.Job.EncodedArgs, &args); err != nil {
			t.Fatalf("decoding job args: %v", err)
		}
		if fiscal[args.ID] {
			if event.Job.Queue != riveradapter.QueueFiscal {
				t.Errorf("%s queue = %q, want %q", args.Name, event.Job.Queue, riveradapter.QueueFiscal)
			}
			if event.Job.MaxAttempts != 20 {
				t.Errorf("%s MaxAttempts = %d, want 20", args.Name, event.Job.MaxAttempts)
			}
		} else if event.Job.Queue != riveradapter.QueueEvents {
			t.Errorf("%s (%s) queue = %q, want %q", args.ID, args.Name, event.Job.Queue, riveradapter.QueueEvents)
		}
	}
}
