package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/serviq/internal/domain"
)

// Compile-time check: TenantRepository implements domain.TenantRepository.
var _ domain.TenantRepository = (*TenantRepository)(nil)

// TenantRepository implements domain.TenantRepository on the catalog database.
type TenantRepository struct {
	db *sql.DB
}

// New opens the catalog SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*TenantRepository, error) {
	db, err := Open(dataSourceName)
	if err != nil {
		return nil, err
	}
	repo, err := NewFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*TenantRepository, error) {
	if err := MigrateCatalog(context.Background(), db); err != nil {
		return nil, err
	}
	return &TenantRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *TenantRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *TenantRepository) DB() *sql.DB {
	return r.db
}

const tenantColumns = `id, name, subdomain, storage_ref, plan, status, created_at, updated_at`

func (r *TenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	s := t.Snapshot()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (`+tenantColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Subdomain, s.StorageRef, s.Plan, string(s.Status),
		formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.SubdomainConflictError{Subdomain: s.Subdomain}
		}
		return fmt.Errorf("inserting tenant: %w", err)
	}
	t.MarkSaved()
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id,
	))
}

func (r *TenantRepository) GetBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE subdomain = ?`, subdomain,
	))
}

func (r *TenantRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants`
	var args []any

	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*filter.Status))
	}

	query += ` ORDER BY created_at DESC, id`
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}

	return tenants, rows.Err()
}

// Update persists name, plan and status. Subdomain and storage reference are
// never rewritten.
func (r *TenantRepository) Update(ctx context.Context, t *domain.Tenant) error {
	s := t.Snapshot()
	result, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET name = ?, plan = ?, status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		s.Name, s.Plan, string(s.Status), formatTime(s.UpdatedAt), s.ID, string(t.StoredStatus()),
	)
	if err != nil {
		return fmt.Errorf("updating tenant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE id = ?)`, s.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking tenant: %w", err)
		}
		if !exists {
			return domain.ErrTenantNotFound
		}
		return &domain.ConflictError{Kind: domain.KindTenant, EntityID: s.ID, Expected: string(t.StoredStatus())}
	}

	t.MarkSaved()
	return nil
}

func scanTenant(row scanner) (*domain.Tenant, error) {
	var s domain.TenantSnapshot
	var status, createdAt, updatedAt string

	err := row.Scan(&s.ID, &s.Name, &s.Subdomain, &s.StorageRef, &s.Plan, &status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, fmt.Errorf("scanning tenant: %w", err)
	}

	s.Status = domain.TenantStatus(status)
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return domain.RestoreTenant(s)
}
