package tenancy_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/neomorfeo/serviq/internal/domain"
)

type fakeDirectory struct {
	mu      sync.Mutex
	tenants map[string]*domain.Tenant
	err     error
}

func newFakeDirectory(tenants ...*domain.Tenant) *fakeDirectory {
	d := &fakeDirectory{tenants: make(map[string]*domain.Tenant)}
	for _, t := range tenants {
		d.tenants[t.Subdomain()] = t
	}
	return d
}

func (d *fakeDirectory) GetBySubdomain(_ context.Context, subdomain string) (*domain.Tenant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	t, ok := d.tenants[subdomain]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return t, nil
}

// mustTenant builds a tenant in the given status with its store under dir.
func mustTenant(t *testing.T, dir, id, subdomain string, status domain.TenantStatus) *domain.Tenant {
	t.Helper()
	now := time.Now().UTC()
	tenant, err := domain.RestoreTenant(domain.TenantSnapshot{
		ID:         id,
		Name:       subdomain,
		Subdomain:  subdomain,
		StorageRef: filepath.Join(dir, id+".db"),
		Plan:       "free",
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("RestoreTenant: %v", err)
	}
	return tenant
}

// countingOpener opens plain SQLite files and counts how often it was called.
// A non-nil gate holds every open until it is closed or ctx ends.
type countingOpener struct {
	calls atomic.Int32
	delay time.Duration
	gate  chan struct{}
}

func (o *countingOpener) open(ctx context.Context, ref string) (*sql.DB, error) {
	o.calls.Add(1)
	if o.delay > 0 {
		time.Sleep(o.delay)
	}
	if o.gate != nil {
		select {
		case <-o.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	db, err := sql.Open("sqlite", ref)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS notes (body TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
