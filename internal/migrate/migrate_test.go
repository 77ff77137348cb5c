package migrate_test

import (
	"testing"

	"cadence/internal/db"
	"cadence/internal/migrate"
)

func TestMigrateIsRerunnable(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	// Each embedded migration is recorded exactly once.
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if n != 1 {
		t.Fatalf("schema_migrations rows = %d, want 1", n)
	}

	// The schema itself is usable.
	if _, err := conn.Exec(`INSERT INTO users(id,name,role,created_at,updated_at)
		VALUES ('u1','Test','admin','2026-01-01T00:00:00Z','2026-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("insert into migrated schema: %v", err)
	}
}
