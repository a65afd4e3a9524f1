package app

import (
	"context"
	"fmt"
	"time"

	"github.com/neomorfeo/serviq/internal/domain"
)

// InvoiceService manages invoices of the bound tenant.
type InvoiceService struct {
	repo      domain.InvoiceRepository
	clients   domain.ClientRepository
	publisher domain.EventPublisher
	opts      options
}

func NewInvoiceService(repo domain.InvoiceRepository, clients domain.ClientRepository, publisher domain.EventPublisher, opts ...Option) *InvoiceService {
	return &InvoiceService{repo: repo, clients: clients, publisher: publisher, opts: buildOptions(opts)}
}

// NewInvoice holds the attributes of an invoice to draft.
type NewInvoice struct {
	ClientID string
	Number   string
	Total    int64
	Currency string
	DueOn    time.Time
}

// Draft creates an invoice for an existing client.
func (s *InvoiceService) Draft(ctx context.Context, in NewInvoice) (*domain.Invoice, error) {
	if _, err := s.clients.Find(ctx, in.ClientID); err != nil {
		return nil, err
	}
	inv, err := domain.NewInvoice(s.repo.NextIdentity(), in.ClientID, in.Number, in.Total, in.Currency, in.DueOn, s.opts.now())
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, inv)
}

func (s *InvoiceService) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	return s.repo.Find(ctx, id)
}

func (s *InvoiceService) List(ctx context.Context, filter domain.InvoiceFilter) ([]*domain.Invoice, error) {
	return s.repo.List(ctx, filter)
}

func (s *InvoiceService) Issue(ctx context.Context, id string) (*domain.Invoice, error) {
	return s.apply(ctx, id, func(inv *domain.Invoice, now time.Time) error {
		_, err := inv.Issue(now)
		return err
	})
}

func (s *InvoiceService) Pay(ctx context.Context, id string, amount int64) (*domain.Invoice, error) {
	return s.apply(ctx, id, func(inv *domain.Invoice, now time.Time) error {
		_, err := inv.MarkPaid(amount, now)
		return err
	})
}

func (s *InvoiceService) MarkOverdue(ctx context.Context, id string) (*domain.Invoice, error) {
	return s.apply(ctx, id, func(inv *domain.Invoice, now time.Time) error {
		_, err := inv.MarkOverdue(now)
		return err
	})
}

func (s *InvoiceService) Cancel(ctx context.Context, id, reason string) (*domain.Invoice, error) {
	return s.apply(ctx, id, func(inv *domain.Invoice, now time.Time) error {
		_, err := inv.Cancel(reason, now)
		return err
	})
}

func (s *InvoiceService) apply(ctx context.Context, id string, mutate func(*domain.Invoice, time.Time) error) (*domain.Invoice, error) {
	inv, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(inv, s.opts.now()); err != nil {
		return nil, err
	}
	return s.commit(ctx, inv)
}

func (s *InvoiceService) commit(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	if err := s.repo.Save(ctx, inv); err != nil {
		return nil, fmt.Errorf("saving invoice: %w", err)
	}
	return inv, publishScoped(ctx, s.publisher, inv)
}
