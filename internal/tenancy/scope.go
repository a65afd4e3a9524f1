// Package tenancy resolves the tenant behind a request and binds that
// tenant's store to the request's context for the lifetime of the request.
//
// A binding lives only in a context.Context value. There is no process-wide
// "current tenant": two concurrent requests each carry their own binding and
// can never observe each other's store.
//
// Usage:
//
//	ctx, scope, err := binder.Bind(ctx, tenant)
//	if err != nil {
//		return err
//	}
//	defer scope.Release()
//
//	b, err := tenancy.From(ctx) // in repositories
package tenancy

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/neomorfeo/serviq/internal/domain"
)

type bindingKey struct{}

// Binding is the request-scoped tenant context: which tenant is active and
// the handle to its store. It stops answering once released.
type Binding struct {
	tenant   domain.TenantSnapshot
	db       *sql.DB
	released atomic.Bool
}

// Tenant returns the bound tenant as of bind time.
func (b *Binding) Tenant() domain.TenantSnapshot { return b.tenant }

// TenantID is a shorthand for Tenant().ID.
func (b *Binding) TenantID() string { return b.tenant.ID }

// DB returns the tenant's store, or ErrNoTenantContext after release.
func (b *Binding) DB() (*sql.DB, error) {
	if b.released.Load() {
		return nil, domain.ErrNoTenantContext
	}
	return b.db, nil
}

// Scope is the release handle returned by Bind.
type Scope struct {
	binding *Binding
	once    sync.Once
	release func()
}

// Release ends the binding and returns the store lease. It is safe to call
// more than once and from deferred code on every exit path.
func (s *Scope) Release() {
	s.once.Do(func() {
		s.binding.released.Store(true)
		s.release()
	})
}

// Storage hands out leases on tenant stores.
type Storage interface {
	Acquire(ctx context.Context, tenantID, storageRef string) (*sql.DB, func(), error)
}

// Binder binds tenants to contexts.
type Binder struct {
	storage Storage
}

// NewBinder creates a binder that leases stores from storage.
func NewBinder(storage Storage) *Binder {
	return &Binder{storage: storage}
}

// Bind makes tenant's store the active context for the returned ctx. The
// parent ctx is left untouched. Binding a context that already carries a
// live binding fails with ErrContextAlreadyBound; nesting is not supported.
func (b *Binder) Bind(ctx context.Context, tenant *domain.Tenant) (context.Context, *Scope, error) {
	if existing, ok := ctx.Value(bindingKey{}).(*Binding); ok && !existing.released.Load() {
		return ctx, nil, fmt.Errorf("binding tenant %s over %s: %w", tenant.ID(), existing.TenantID(), domain.ErrContextAlreadyBound)
	}
	if err := ctx.Err(); err != nil {
		return ctx, nil, err
	}

	db, release, err := b.storage.Acquire(ctx, tenant.ID(), tenant.StorageRef())
	if err != nil {
		return ctx, nil, fmt.Errorf("acquiring store for tenant %s: %w", tenant.ID(), err)
	}

	binding := &Binding{tenant: tenant.Snapshot(), db: db}
	scope := &Scope{binding: binding, release: release}
	return context.WithValue(ctx, bindingKey{}, binding), scope, nil
}

// From returns the live binding carried by ctx.
func From(ctx context.Context) (*Binding, error) {
	b, ok := ctx.Value(bindingKey{}).(*Binding)
	if !ok || b.released.Load() {
		return nil, domain.ErrNoTenantContext
	}
	return b, nil
}

// DB is a shorthand for From(ctx) followed by Binding.DB.
func DB(ctx context.Context) (*sql.DB, error) {
	b, err := From(ctx)
	if err != nil {
		return nil, err
	}
	return b.DB()
}

// TenantID returns the bound tenant's id, or "" without a binding.
func TenantID(ctx context.Context) string {
	if b, err := From(ctx); err == nil {
		return b.TenantID()
	}
	return ""
}
