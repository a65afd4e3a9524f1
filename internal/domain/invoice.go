package domain

import (
	"strconv"
	"strings"
	"time"
)

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoicePending   InvoiceStatus = "pending"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

const (
	ActionIssue       Action = "issue"
	ActionMarkOverdue Action = "mark_overdue"
	ActionPay         Action = "pay"
	ActionCancel      Action = "cancel"
)

const KindInvoice = "invoice"

// InvoiceTable is the transition table for invoices. Once issued an invoice
// never returns to draft; paid and cancelled are terminal.
var InvoiceTable = NewTable(KindInvoice,
	[]InvoiceStatus{InvoiceDraft, InvoicePending, InvoiceOverdue, InvoicePaid, InvoiceCancelled},
	[]Transition[InvoiceStatus]{
		{Action: ActionIssue, Src: InvoiceDraft, Dst: InvoicePending},
		{Action: ActionMarkOverdue, Src: InvoicePending, Dst: InvoiceOverdue},
		{Action: ActionPay, Src: InvoicePending, Dst: InvoicePaid},
		{Action: ActionPay, Src: InvoiceOverdue, Dst: InvoicePaid},
		{Action: ActionCancel, Src: InvoiceDraft, Dst: InvoiceCancelled},
		{Action: ActionCancel, Src: InvoicePending, Dst: InvoiceCancelled},
		{Action: ActionCancel, Src: InvoiceOverdue, Dst: InvoiceCancelled},
	},
)

// Invoice is a bill issued by the tenant to one of its clients.
// Amounts are in minor currency units.
type Invoice struct {
	lifecycle[InvoiceStatus]

	clientID  string
	number    string
	total     int64
	currency  string
	dueOn     time.Time
	createdAt time.Time
}

// NewInvoice creates an invoice in draft.
func NewInvoice(id, clientID, number string, total int64, currency string, dueOn, now time.Time) (*Invoice, error) {
	number = strings.TrimSpace(number)
	currency = strings.ToUpper(strings.TrimSpace(currency))
	switch {
	case clientID == "":
		return nil, invariant(KindInvoice, "client id cannot be empty")
	case number == "":
		return nil, invariant(KindInvoice, "number cannot be empty")
	case total <= 0:
		return nil, invariant(KindInvoice, "total must be positive")
	case len(currency) != 3:
		return nil, invariant(KindInvoice, "currency must be an ISO 4217 code")
	}

	lc, err := newLifecycle(InvoiceTable, id, InvoiceDraft, now)
	if err != nil {
		return nil, err
	}
	inv := &Invoice{
		lifecycle: lc,
		clientID:  clientID,
		number:    number,
		total:     total,
		currency:  currency,
		dueOn:     dueOn,
		createdAt: now,
	}
	inv.record(EventCreated, now, map[string]string{"client_id": clientID, "number": number})
	return inv, nil
}

func (i *Invoice) ID() string           { return i.id }
func (i *Invoice) ClientID() string     { return i.clientID }
func (i *Invoice) Number() string       { return i.number }
func (i *Invoice) Total() int64         { return i.total }
func (i *Invoice) Currency() string     { return i.currency }
func (i *Invoice) DueOn() time.Time     { return i.dueOn }
func (i *Invoice) CreatedAt() time.Time { return i.createdAt }

// Outstanding returns the amount still owed.
func (i *Invoice) Outstanding() int64 {
	if i.status == InvoicePaid || i.status == InvoiceCancelled {
		return 0
	}
	return i.total
}

// Issue sends a draft invoice to the client.
func (i *Invoice) Issue(now time.Time) (Event, error) {
	ev, err := i.TransitionTo(InvoicePending, now)
	if err != nil {
		return Event{}, err
	}
	return i.annotate(ev, map[string]string{
		"client_id": i.clientID,
		"number":    i.number,
		"total":     strconv.FormatInt(i.total, 10),
		"currency":  i.currency,
	}), nil
}

// MarkPaid settles the invoice. Partial or excess payments are rejected.
func (i *Invoice) MarkPaid(amount int64, now time.Time) (Event, error) {
	if err := i.guard(InvoicePaid); err != nil {
		return Event{}, err
	}
	if amount != i.Outstanding() {
		return Event{}, &PaymentMismatchError{InvoiceID: i.id, Expected: i.Outstanding(), Got: amount}
	}
	ev, err := i.TransitionTo(InvoicePaid, now)
	if err != nil {
		return Event{}, err
	}
	return i.annotate(ev, map[string]string{"amount": strconv.FormatInt(amount, 10)}), nil
}

// MarkOverdue flags a pending invoice whose due date has passed.
func (i *Invoice) MarkOverdue(now time.Time) (Event, error) {
	if err := i.guard(InvoiceOverdue); err != nil {
		return Event{}, err
	}
	if !now.After(i.dueOn) {
		return Event{}, invariant(KindInvoice, "invoice %s is not due until %s", i.id, i.dueOn.Format(time.DateOnly))
	}
	return i.TransitionTo(InvoiceOverdue, now)
}

// Cancel voids the invoice. A reason is mandatory. The event carries the
// invoice number so an issued invoice can be annulled at the registry.
func (i *Invoice) Cancel(reason string, now time.Time) (Event, error) {
	if err := i.guard(InvoiceCancelled); err != nil {
		return Event{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Event{}, invariant(KindInvoice, "cancellation reason is required")
	}
	ev, err := i.TransitionTo(InvoiceCancelled, now)
	if err != nil {
		return Event{}, err
	}
	return i.annotate(ev, map[string]string{
		"reason":    reason,
		"client_id": i.clientID,
		"number":    i.number,
	}), nil
}

// InvoiceSnapshot is the flat representation of an invoice.
type InvoiceSnapshot struct {
	ID        string
	ClientID  string
	Number    string
	Total     int64
	Currency  string
	DueOn     time.Time
	Status    InvoiceStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i *Invoice) Snapshot() InvoiceSnapshot {
	return InvoiceSnapshot{
		ID:        i.id,
		ClientID:  i.clientID,
		Number:    i.number,
		Total:     i.total,
		Currency:  i.currency,
		DueOn:     i.dueOn,
		Status:    i.status,
		CreatedAt: i.createdAt,
		UpdatedAt: i.changedAt,
	}
}

func RestoreInvoice(s InvoiceSnapshot) (*Invoice, error) {
	lc, err := newLifecycle(InvoiceTable, s.ID, s.Status, s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &Invoice{
		lifecycle: lc,
		clientID:  s.ClientID,
		number:    s.Number,
		total:     s.Total,
		currency:  s.Currency,
		dueOn:     s.DueOn,
		createdAt: s.CreatedAt,
	}, nil
}
