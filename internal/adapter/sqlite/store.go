package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/serviq/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/catalog/*.sql migrations/tenant/*.sql
var migrations embed.FS

const (
	catalogMigrations = "migrations/catalog"
	tenantMigrations  = "migrations/tenant"
)

const (
	timeFormat = time.RFC3339Nano
	dateFormat = time.DateOnly
)

// Open opens a SQLite database with the pragmas every store in serviq uses.
func Open(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := Configure(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Configure applies connection limits and pragmas to an already opened
// database, e.g. one wrapped with otelsql.
func Configure(db *sql.DB) error {
	// One writer per file avoids SQLITE_BUSY and keeps :memory: databases
	// on a single connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	return nil
}

// MigrateCatalog brings the tenant catalog schema up to date.
func MigrateCatalog(ctx context.Context, db *sql.DB) error {
	return migrate(ctx, db, catalogMigrations)
}

// MigrateTenant brings a tenant store's schema up to date.
func MigrateTenant(ctx context.Context, db *sql.DB) error {
	return migrate(ctx, db, tenantMigrations)
}

// migrate uses a goose Provider rather than the package-level API so that
// tenant stores can be migrated concurrently.
func migrate(ctx context.Context, db *sql.DB, dir string) error {
	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("loading migrations %s: %w", dir, err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("running migrations %s: %w", dir, err)
	}
	return nil
}

// OpenTenantStore opens and migrates the store behind a tenant storage
// reference. It satisfies tenancy.Opener.
func OpenTenantStore(ctx context.Context, storageRef string) (*sql.DB, error) {
	db, err := Open(storageRef)
	if err != nil {
		return nil, err
	}
	if err := MigrateTenant(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// upserted reports a ConflictError when an upsert guarded on the stored
// status touched no row.
func upserted(result sql.Result, kind, id, expected string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.ConflictError{Kind: kind, EntityID: id, Expected: expected}
	}
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(timeFormat) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}

func formatDate(t time.Time) string { return t.UTC().Format(dateFormat) }

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// paginate appends LIMIT/OFFSET clauses.
func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
		if offset > 0 {
			query += ` OFFSET ?`
			args = append(args, offset)
		}
	}
	return query, args
}
