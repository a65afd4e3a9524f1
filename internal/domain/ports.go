package domain

import "context"

// TenantDirectory looks tenants up by their routing key.
type TenantDirectory interface {
	GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
}

// TenantRepository defines the persistence contract for the tenant catalog.
type TenantRepository interface {
	TenantDirectory
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	List(ctx context.Context, filter ListFilter) ([]*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
}

// ListFilter holds optional criteria for listing tenants.
type ListFilter struct {
	Status *TenantStatus
	Limit  int
	Offset int
}

// TenantCache is implemented by directory caches that must forget a tenant
// after its status changes.
type TenantCache interface {
	Invalidate(ctx context.Context, subdomain string) error
}

// Tenant-scoped repositories resolve their storage from the tenant context
// bound to ctx and fail with ErrNoTenantContext without one. Save is a single
// atomic write of the entity's full state.

type ClientRepository interface {
	NextIdentity() string
	Find(ctx context.Context, id string) (*Client, error)
	Save(ctx context.Context, client *Client) error
	List(ctx context.Context, page Page) ([]*Client, error)
}

type ContractRepository interface {
	NextIdentity() string
	Find(ctx context.Context, id string) (*Contract, error)
	Save(ctx context.Context, contract *Contract) error
	ListByClient(ctx context.Context, clientID string) ([]*Contract, error)
}

type InvoiceRepository interface {
	NextIdentity() string
	Find(ctx context.Context, id string) (*Invoice, error)
	Save(ctx context.Context, invoice *Invoice) error
	List(ctx context.Context, filter InvoiceFilter) ([]*Invoice, error)
}

// Page bounds a listing.
type Page struct {
	Limit  int
	Offset int
}

// InvoiceFilter holds optional criteria for listing invoices.
type InvoiceFilter struct {
	Status   *InvoiceStatus
	ClientID string
	Page
}

// EventPublisher hands released events to their subscribers. Events are
// published only after the state that produced them has been saved.
type EventPublisher interface {
	Publish(ctx context.Context, events []Event) error
}

// ActionResolver maps a named action to the destination status reachable
// from current, without mutating anything.
type ActionResolver[S ~string] interface {
	Resolve(ctx context.Context, current S, action Action) (S, error)
}
