package tenancy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/neomorfeo/serviq/internal/domain"
)

// Resolution outcomes reported to a ResolveObserver.
const (
	OutcomeResolved = "resolved"
	OutcomeNotFound = "not_found"
	OutcomeInactive = "inactive"
	OutcomeError    = "error"
)

// ResolveObserver is notified of every resolution outcome.
type ResolveObserver interface {
	TenantResolved(outcome string)
}

// Resolver maps request hosts to active tenants.
type Resolver struct {
	directory  domain.TenantDirectory
	baseDomain string
	observer   ResolveObserver
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolveObserver reports outcomes to o.
func WithResolveObserver(o ResolveObserver) ResolverOption {
	return func(r *Resolver) { r.observer = o }
}

// NewResolver creates a resolver for hosts of the form <subdomain>.<baseDomain>.
func NewResolver(directory domain.TenantDirectory, baseDomain string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		directory:  directory,
		baseDomain: strings.TrimSuffix(strings.ToLower(baseDomain), "."),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subdomain extracts the tenant label from host. It reports false when the
// host does not belong to baseDomain or has more than one label in front of it.
func Subdomain(host, baseDomain string) (string, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")

	label, ok := strings.CutSuffix(host, "."+baseDomain)
	if !ok || label == "" || strings.Contains(label, ".") {
		return "", false
	}
	if !domain.ValidSubdomain(label) {
		return "", false
	}
	return label, true
}

// Resolve returns the active tenant that owns host.
func (r *Resolver) Resolve(ctx context.Context, host string) (*domain.Tenant, error) {
	sub, ok := Subdomain(host, r.baseDomain)
	if !ok {
		r.observe(OutcomeNotFound)
		return nil, fmt.Errorf("host %q: %w", host, domain.ErrTenantNotFound)
	}
	return r.ResolveSubdomain(ctx, sub)
}

// ResolveSubdomain returns the active tenant registered under subdomain.
func (r *Resolver) ResolveSubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error) {
	if !domain.ValidSubdomain(subdomain) {
		r.observe(OutcomeNotFound)
		return nil, fmt.Errorf("subdomain %q: %w", subdomain, domain.ErrTenantNotFound)
	}

	tenant, err := r.directory.GetBySubdomain(ctx, subdomain)
	switch {
	case errors.Is(err, domain.ErrTenantNotFound):
		r.observe(OutcomeNotFound)
		return nil, err
	case err != nil:
		r.observe(OutcomeError)
		return nil, fmt.Errorf("looking up subdomain %q: %w", subdomain, err)
	}

	if !tenant.IsActive() {
		r.observe(OutcomeInactive)
		return nil, &domain.TenantInactiveError{Subdomain: subdomain, Status: tenant.Status()}
	}

	r.observe(OutcomeResolved)
	return tenant, nil
}

func (r *Resolver) observe(outcome string) {
	if r.observer != nil {
		r.observer.TenantResolved(outcome)
	}
}

// Switch resolves and binds in one step.
type Switch struct {
	resolver *Resolver
	binder   *Binder
}

// NewSwitch combines a resolver and a binder.
func NewSwitch(resolver *Resolver, binder *Binder) *Switch {
	return &Switch{resolver: resolver, binder: binder}
}

// Enter resolves host and binds its tenant to a context derived from ctx.
// The caller must release the returned scope.
func (s *Switch) Enter(ctx context.Context, host string) (context.Context, *Scope, error) {
	tenant, err := s.resolver.Resolve(ctx, host)
	if err != nil {
		return ctx, nil, err
	}
	return s.binder.Bind(ctx, tenant)
}
