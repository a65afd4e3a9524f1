package app_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/neomorfeo/serviq/internal/app"
	"github.com/neomorfeo/serviq/internal/domain"
	"github.com/neomorfeo/serviq/internal/tenancy"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func fixedClock() app.Option {
	return app.WithClock(func() time.Time { return t0 })
}

// --- Tenant catalog ---

type mockRepo struct {
	tenants   map[string]domain.TenantSnapshot
	updateErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{tenants: make(map[string]domain.TenantSnapshot)}
}

func (m *mockRepo) Create(_ context.Context, t *domain.Tenant) error {
	m.tenants[t.ID()] = t.Snapshot()
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	s, ok := m.tenants[id]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return domain.RestoreTenant(s)
}

func (m *mockRepo) GetBySubdomain(_ context.Context, subdomain string) (*domain.Tenant, error) {
	for _, s := range m.tenants {
		if s.Subdomain == subdomain {
			return domain.RestoreTenant(s)
		}
	}
	return nil, domain.ErrTenantNotFound
}

func (m *mockRepo) List(_ context.Context, _ domain.ListFilter) ([]*domain.Tenant, error) {
	out := make([]*domain.Tenant, 0, len(m.tenants))
	for _, s := range m.tenants {
		t, _ := domain.RestoreTenant(s)
		out = append(out, t)
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, t *domain.Tenant) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.tenants[t.ID()] = t.Snapshot()
	return nil
}

type mockProvisioner struct {
	warmed  []string
	evicted []string
	warmErr error
}

func (m *mockProvisioner) Warm(_ context.Context, tenantID, _ string) error {
	if m.warmErr != nil {
		return m.warmErr
	}
	m.warmed = append(m.warmed, tenantID)
	return nil
}

func (m *mockProvisioner) Evict(tenantID string) error {
	m.evicted = append(m.evicted, tenantID)
	return nil
}

type mockCache struct {
	invalidated []string
}

func (m *mockCache) Invalidate(_ context.Context, subdomain string) error {
	m.invalidated = append(m.invalidated, subdomain)
	return nil
}

// --- Events ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, events []domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

func (m *mockPublisher) names() []string {
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Name
	}
	return out
}

// --- Tenant-scoped stores ---

// memStore is a snapshot map shared by the scoped mocks.
type memStore[T any] struct {
	rows    map[string]T
	saveErr error
	seq     int
}

func newMemStore[T any]() *memStore[T] { return &memStore[T]{rows: make(map[string]T)} }

func (m *memStore[T]) next(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

type mockClients struct{ *memStore[domain.ClientSnapshot] }

func newMockClients() *mockClients { return &mockClients{newMemStore[domain.ClientSnapshot]()} }

func (m *mockClients) NextIdentity() string { return m.next("c") }

func (m *mockClients) Find(ctx context.Context, id string) (*domain.Client, error) {
	if _, err := tenancy.From(ctx); err != nil {
		return nil, err
	}
	s, ok := m.rows[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: domain.KindClient, ID: id}
	}
	return domain.RestoreClient(s)
}

func (m *mockClients) Save(_ context.Context, c *domain.Client) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.rows[c.ID()] = c.Snapshot()
	return nil
}

func (m *mockClients) List(_ context.Context, _ domain.Page) ([]*domain.Client, error) {
	var out []*domain.Client
	for _, s := range m.rows {
		c, _ := domain.RestoreClient(s)
		out = append(out, c)
	}
	return out, nil
}

type mockContracts struct{ *memStore[domain.ContractSnapshot] }

func newMockContracts() *mockContracts { return &mockContracts{newMemStore[domain.ContractSnapshot]()} }

func (m *mockContracts) NextIdentity() string { return m.next("k") }

func (m *mockContracts) Find(_ context.Context, id string) (*domain.Contract, error) {
	s, ok := m.rows[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: domain.KindContract, ID: id}
	}
	return domain.RestoreContract(s)
}

func (m *mockContracts) Save(_ context.Context, c *domain.Contract) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.rows[c.ID()] = c.Snapshot()
	return nil
}

func (m *mockContracts) ListByClient(_ context.Context, clientID string) ([]*domain.Contract, error) {
	var out []*domain.Contract
	for _, s := range m.rows {
		if s.ClientID == clientID {
			c, _ := domain.RestoreContract(s)
			out = append(out, c)
		}
	}
	return out, nil
}

type mockInvoices struct{ *memStore[domain.InvoiceSnapshot] }

func newMockInvoices() *mockInvoices { return &mockInvoices{newMemStore[domain.InvoiceSnapshot]()} }

func (m *mockInvoices) NextIdentity() string { return m.next("i") }

func (m *mockInvoices) Find(_ context.Context, id string) (*domain.Invoice, error) {
	s, ok := m.rows[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: domain.KindInvoice, ID: id}
	}
	return domain.RestoreInvoice(s)
}

func (m *mockInvoices) Save(_ context.Context, inv *domain.Invoice) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.rows[inv.ID()] = inv.Snapshot()
	return nil
}

func (m *mockInvoices) List(_ context.Context, _ domain.InvoiceFilter) ([]*domain.Invoice, error) {
	var out []*domain.Invoice
	for _, s := range m.rows {
		inv, _ := domain.RestoreInvoice(s)
		out = append(out, inv)
	}
	return out, nil
}

// nullStorage leases a nil store; the scoped mocks never touch it.
type nullStorage struct{}

func (nullStorage) Acquire(context.Context, string, string) (*sql.DB, func(), error) {
	return nil, func() {}, nil
}

// boundContext returns a context bound to tenant "acme".
func boundContext(t *testing.T) context.Context {
	t.Helper()
	tenant, err := domain.RestoreTenant(domain.TenantSnapshot{
		ID: "tenant-acme", Name: "Acme", Subdomain: "acme", StorageRef: "acme.db",
		Plan: "pro", Status: domain.TenantActive, CreatedAt: t0, UpdatedAt: t0,
	})
	if err != nil {
		t.Fatalf("RestoreTenant: %v", err)
	}
	ctx, scope, err := tenancy.NewBinder(nullStorage{}).Bind(context.Background(), tenant)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	t.Cleanup(scope.Release)
	return ctx
}

var errBoom = errors.New("boom")
