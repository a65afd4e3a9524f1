package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/neomorfeo/serviq/internal/domain"
)

// Provisioner opens tenant stores ahead of use and releases them on
// deactivation. *tenancy.Pool satisfies it.
type Provisioner interface {
	Warm(ctx context.Context, tenantID, storageRef string) error
	Evict(tenantID string) error
}

// TenantService orchestrates tenant lifecycle operations on the catalog.
type TenantService struct {
	repo        domain.TenantRepository
	publisher   domain.EventPublisher
	resolver    domain.ActionResolver[domain.TenantStatus]
	provisioner Provisioner
	cache       domain.TenantCache
	dataDir     string
	opts        options
}

// TenantConfig groups the adapters a TenantService needs.
type TenantConfig struct {
	Repo        domain.TenantRepository
	Publisher   domain.EventPublisher
	Resolver    domain.ActionResolver[domain.TenantStatus]
	Provisioner Provisioner
	// Cache is optional; it is invalidated after every status change.
	Cache domain.TenantCache
	// DataDir is where new tenant stores are created.
	DataDir string
}

// NewTenantService creates a service with the given adapters.
func NewTenantService(cfg TenantConfig, opts ...Option) *TenantService {
	return &TenantService{
		repo:        cfg.Repo,
		publisher:   cfg.Publisher,
		resolver:    cfg.Resolver,
		provisioner: cfg.Provisioner,
		cache:       cfg.Cache,
		dataDir:     cfg.DataDir,
		opts:        buildOptions(opts),
	}
}

// Create registers a tenant, creates and migrates its store, and activates it.
// If the store cannot be provisioned the tenant is left in provisioning and
// the error is returned.
func (s *TenantService) Create(ctx context.Context, name, subdomain, plan string) (*domain.Tenant, error) {
	// Check subdomain uniqueness before creating.
	if _, err := s.repo.GetBySubdomain(ctx, subdomain); err == nil {
		return nil, &domain.SubdomainConflictError{Subdomain: subdomain}
	} else if !errors.Is(err, domain.ErrTenantNotFound) {
		return nil, fmt.Errorf("checking subdomain: %w", err)
	}

	id := newID()
	storageRef := filepath.Join(s.dataDir, id+".db")

	tenant, err := domain.NewTenant(id, name, subdomain, storageRef, plan, s.opts.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, tenant); err != nil {
		var conflict *domain.SubdomainConflictError
		if errors.As(err, &conflict) {
			return nil, err
		}
		return nil, fmt.Errorf("creating tenant: %w", err)
	}
	if err := publishReleased(ctx, s.publisher, tenant.ID(), tenant); err != nil {
		return nil, err
	}

	if err := s.provisioner.Warm(ctx, tenant.ID(), tenant.StorageRef()); err != nil {
		return tenant, fmt.Errorf("provisioning store for tenant %s: %w", tenant.ID(), err)
	}

	if _, err := tenant.TransitionTo(domain.TenantActive, s.opts.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, tenant); err != nil {
		return nil, fmt.Errorf("activating tenant: %w", err)
	}
	if err := publishReleased(ctx, s.publisher, tenant.ID(), tenant); err != nil {
		return tenant, err
	}

	return tenant, nil
}

// GetByID returns a tenant by its unique identifier.
func (s *TenantService) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns tenants matching the given filter.
func (s *TenantService) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Tenant, error) {
	return s.repo.List(ctx, filter)
}

// Transition applies a lifecycle action to a tenant, changing its status.
// Deactivation also evicts the tenant's pooled store.
func (s *TenantService) Transition(ctx context.Context, id string, action domain.Action) (*domain.Tenant, error) {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	dst, err := s.resolver.Resolve(ctx, tenant.Status(), action)
	if err != nil {
		return nil, withEntityID(err, tenant.ID())
	}
	if dst == domain.TenantActive && tenant.Status() == domain.TenantProvisioning {
		if err := s.provisioner.Warm(ctx, tenant.ID(), tenant.StorageRef()); err != nil {
			return nil, fmt.Errorf("provisioning store for tenant %s: %w", tenant.ID(), err)
		}
	}
	if _, err := tenant.TransitionTo(dst, s.opts.now()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, tenant); err != nil {
		return nil, fmt.Errorf("updating tenant: %w", err)
	}

	s.afterStatusChange(ctx, tenant)

	if err := publishReleased(ctx, s.publisher, tenant.ID(), tenant); err != nil {
		return tenant, err
	}
	return tenant, nil
}

// afterStatusChange drops state that depends on the old status. Failures are
// logged: the catalog is already authoritative and cache entries expire.
func (s *TenantService) afterStatusChange(ctx context.Context, tenant *domain.Tenant) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, tenant.Subdomain()); err != nil {
			s.opts.logger.WarnContext(ctx, "invalidating tenant cache",
				slogTenant(tenant), "error", err)
		}
	}
	if tenant.Status() == domain.TenantDeactivated {
		if err := s.provisioner.Evict(tenant.ID()); err != nil {
			s.opts.logger.WarnContext(ctx, "evicting tenant store",
				slogTenant(tenant), "error", err)
		}
	}
}
