package tenancy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/neomorfeo/serviq/internal/domain"
)

// Opener opens (and migrates) the physical store behind a storage reference.
type Opener func(ctx context.Context, storageRef string) (*sql.DB, error)

// PoolObserver receives lease accounting from the pool.
type PoolObserver interface {
	LeaseAcquired(tenantID string)
	LeaseReleased(tenantID string)
}

type poolEntry struct {
	db      *sql.DB
	ref     string
	leases  int
	evicted bool
}

// Pool keeps one open store per tenant and hands out leases on it.
// Concurrent first acquisitions of the same tenant share a single open.
type Pool struct {
	open     Opener
	observer PoolObserver

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]*poolEntry
	closed  bool
}

// NewPool creates a pool that opens stores with open.
func NewPool(open Opener, opts ...PoolOption) *Pool {
	p := &Pool{open: open, entries: make(map[string]*poolEntry)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolObserver reports lease changes to o.
func WithPoolObserver(o PoolObserver) PoolOption {
	return func(p *Pool) { p.observer = o }
}

var errPoolClosed = errors.New("tenant storage pool closed")

// Acquire returns the tenant's store and a release func that must be called
// exactly once. A tenant id presented with a different storage reference than
// the one already open fails with ErrStorageRepointed.
func (p *Pool) Acquire(ctx context.Context, tenantID, storageRef string) (*sql.DB, func(), error) {
	db, ok, err := p.lease(tenantID, storageRef)
	if err != nil {
		return nil, nil, err
	}
	if ok {
		return db, p.releaser(tenantID), nil
	}

	// The open is shared by every caller waiting on tenantID and outlives the
	// context of the caller that started it.
	openCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(tenantID, func() (any, error) {
		p.mu.Lock()
		_, exists := p.entries[tenantID]
		p.mu.Unlock()
		if exists {
			return nil, nil
		}

		db, err := p.open(openCtx, storageRef)
		if err != nil {
			return nil, fmt.Errorf("opening store for tenant %s: %w", tenantID, err)
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			db.Close()
			return nil, errPoolClosed
		}
		p.entries[tenantID] = &poolEntry{db: db, ref: storageRef}
		return nil, nil
	})
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, nil, res.Err
		}
	}

	db, ok, err = p.lease(tenantID, storageRef)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		// Evicted between open and lease.
		return nil, nil, fmt.Errorf("tenant %s: store evicted during acquisition", tenantID)
	}
	return db, p.releaser(tenantID), nil
}

func (p *Pool) lease(tenantID, storageRef string) (*sql.DB, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, false, errPoolClosed
	}
	e, ok := p.entries[tenantID]
	if !ok || e.evicted {
		return nil, false, nil
	}
	if e.ref != storageRef {
		return nil, false, fmt.Errorf("tenant %s: %w", tenantID, domain.ErrStorageRepointed)
	}
	e.leases++
	if p.observer != nil {
		p.observer.LeaseAcquired(tenantID)
	}
	return e.db, true, nil
}

func (p *Pool) releaser(tenantID string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { p.release(tenantID) })
	}
}

func (p *Pool) release(tenantID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[tenantID]
	if !ok {
		return
	}
	e.leases--
	if p.observer != nil {
		p.observer.LeaseReleased(tenantID)
	}
	if e.evicted && e.leases == 0 {
		delete(p.entries, tenantID)
		e.db.Close()
	}
}

// Leases returns the number of outstanding leases for a tenant.
func (p *Pool) Leases(tenantID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[tenantID]; ok {
		return e.leases
	}
	return 0
}

// Warm opens the tenant's store without holding a lease. Provisioning uses
// it to create and migrate a new tenant's database.
func (p *Pool) Warm(ctx context.Context, tenantID, storageRef string) error {
	_, release, err := p.Acquire(ctx, tenantID, storageRef)
	if err != nil {
		return err
	}
	release()
	return nil
}

// Evict stops handing out the tenant's store. The handle is closed once the
// last outstanding lease is released.
func (p *Pool) Evict(tenantID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[tenantID]
	if !ok {
		return nil
	}
	if e.leases > 0 {
		e.evicted = true
		return nil
	}
	delete(p.entries, tenantID)
	return e.db.Close()
}

// Close closes every store. Outstanding leases become invalid.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	var errs []error
	for id, e := range p.entries {
		if err := e.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store for tenant %s: %w", id, err))
		}
		delete(p.entries, id)
	}
	return errors.Join(errs...)
}
