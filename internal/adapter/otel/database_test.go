package otel_test

import (
	"context"
	"path/filepath"
	"testing"

	adapter "github.com/neomorfeo/serviq/internal/adapter/otel"
)

func TestOpenTenantStore_Migrates(t *testing.T) {
	db, err := adapter.OpenTenantStore(context.Background(), filepath.Join(t.TempDir(), "t.db"))
	if err != nil {
		t.Fatalf("OpenTenantStore: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"clients", "contracts", "invoices"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestOpenDB(t *testing.T) {
	db, err := adapter.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
