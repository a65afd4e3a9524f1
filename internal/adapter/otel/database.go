package otel

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/neomorfeo/serviq/internal/adapter/sqlite"
)

// OpenDB opens the catalog SQLite database with OpenTelemetry instrumentation.
// The returned *sql.DB has automatic tracing for all SQL operations
// and metrics for the connection pool.
func OpenDB(dataSourceName string) (*sql.DB, error) {
	db, err := open(dataSourceName)
	if err != nil {
		return nil, err
	}

	if _, err := otelsql.RegisterDBStatsMetrics(db,
		otelsql.WithAttributes(semconv.DBSystemSqlite),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("registering db stats metrics: %w", err)
	}

	return db, nil
}

// OpenTenantStore opens and migrates a tenant store with SQL tracing. It
// satisfies tenancy.Opener. Pool stats are not registered per tenant since
// stores come and go with eviction.
func OpenTenantStore(ctx context.Context, storageRef string) (*sql.DB, error) {
	db, err := open(storageRef)
	if err != nil {
		return nil, err
	}
	if err := sqlite.MigrateTenant(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func open(dataSourceName string) (*sql.DB, error) {
	db, err := otelsql.Open("sqlite", dataSourceName,
		otelsql.WithAttributes(semconv.DBSystemSqlite),
	)
	if err != nil {
		return nil, fmt.Errorf("opening instrumented database: %w", err)
	}

	// SQLite performs best with a single connection when sharing the DB
	// with an embedded job queue (River). This avoids SQLITE_BUSY errors.
	if err := sqlite.Configure(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
