// Package fiscal submits issued invoices to the tax authority's invoice
// registry over HTTP and annuls them when they are cancelled.
package fiscal

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/neomorfeo/serviq/internal/domain"
)

// Record is the registry payload for one issued invoice.
type Record struct {
	TenantID  string    `json:"tenant_id"`
	InvoiceID string    `json:"invoice_id"`
	ClientID  string    `json:"client_id"`
	Number    string    `json:"number"`
	Total     int64     `json:"total"`
	Currency  string    `json:"currency"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Annulment is the registry payload voiding a registered invoice.
type Annulment struct {
	TenantID   string    `json:"tenant_id"`
	InvoiceID  string    `json:"invoice_id"`
	Number     string    `json:"number"`
	Reason     string    `json:"reason"`
	AnnulledAt time.Time `json:"annulled_at"`
}

// Receipt is the registry's acknowledgement.
type Receipt struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// StatusError is returned for non-2xx registry responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fiscal registry responded %d: %s", e.Code, e.Message)
}

// Config holds the registry connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the fiscal registry.
type Client struct {
	http *resty.Client
}

// New creates a registry client. Retries are left to the job queue.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &Client{http: client}
}

// Submit registers one invoice. idempotencyKey lets the registry drop
// duplicates when a submission is retried.
func (c *Client) Submit(ctx context.Context, idempotencyKey string, rec Record) (Receipt, error) {
	return c.post(ctx, idempotencyKey, "/v1/invoices", rec)
}

// Annul voids a registered invoice.
func (c *Client) Annul(ctx context.Context, idempotencyKey string, a Annulment) (Receipt, error) {
	return c.post(ctx, idempotencyKey, "/v1/invoices/"+url.PathEscape(a.InvoiceID)+"/annulment", a)
}

func (c *Client) post(ctx context.Context, idempotencyKey, path string, body any) (Receipt, error) {
	var receipt Receipt
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", idempotencyKey).
		SetBody(body).
		SetResult(&receipt).
		SetError(&receipt).
		Post(path)
	if err != nil {
		return Receipt{}, fmt.Errorf("calling fiscal registry: %w", err)
	}
	if resp.IsError() {
		msg := receipt.Message
		if msg == "" {
			msg = resp.Status()
		}
		return Receipt{}, &StatusError{Code: resp.StatusCode(), Message: msg}
	}
	return receipt, nil
}

// SubmitInvoice submits an invoice.issue event. The event id is used as the
// idempotency key.
func (c *Client) SubmitInvoice(ctx context.Context, ev domain.Event) error {
	rec, err := RecordFromEvent(ev)
	if err != nil {
		return err
	}
	_, err = c.Submit(ctx, ev.ID, rec)
	return err
}

// RecordFromEvent builds a registry record from an invoice.issue event.
func RecordFromEvent(ev domain.Event) (Record, error) {
	total, err := strconv.ParseInt(ev.Payload["total"], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("event %s: invalid total %q: %w", ev.ID, ev.Payload["total"], err)
	}
	return Record{
		TenantID:  ev.TenantID,
		InvoiceID: ev.EntityID,
		ClientID:  ev.Payload["client_id"],
		Number:    ev.Payload["number"],
		Total:     total,
		Currency:  ev.Payload["currency"],
		IssuedAt:  ev.OccurredAt,
	}, nil
}

// AnnulInvoice annuls the invoice of an invoice.cancel event. The event id is
// used as the idempotency key.
func (c *Client) AnnulInvoice(ctx context.Context, ev domain.Event) error {
	_, err := c.Annul(ctx, ev.ID, Annulment{
		TenantID:   ev.TenantID,
		InvoiceID:  ev.EntityID,
		Number:     ev.Payload["number"],
		Reason:     ev.Payload["reason"],
		AnnulledAt: ev.OccurredAt,
	})
	return err
}
