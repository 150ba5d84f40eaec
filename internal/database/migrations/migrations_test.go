package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, DialectSQLite3); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	tables := []string{"filecache", "share", "appconfig", "maintenance_operations", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	err := CheckDBMigrationStatus(db, DialectSQLite3)
	if err == nil {
		t.Fatal("CheckDBMigrationStatus() expected error for fresh database, got nil")
	}

	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("CheckDBMigrationStatus() error = %q, want error about needing migration", err.Error())
	}
}

func TestCheckDBMigrationStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, DialectSQLite3); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	if err := CheckDBMigrationStatus(db, DialectSQLite3); err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, DialectSQLite3); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}

	if err := MigrateUp(db, DialectSQLite3); err != nil {
		t.Errorf("Second MigrateUp() failed: %v (should be idempotent)", err)
	}

	if err := CheckDBMigrationStatus(db, DialectSQLite3); err != nil {
		t.Errorf("CheckDBMigrationStatus() after double migration returned error: %v", err)
	}
}

func TestMigrateUp_UnknownDialect(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, "mysql"); err == nil {
		t.Error("MigrateUp() expected error for unknown dialect")
	}
}

func TestSchema_ShareHasNoForeignKey(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, DialectSQLite3); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// Shares may reference fileids that no longer exist.
	_, err := db.Exec(`
		INSERT INTO share (uid_owner, share_with, item_type, file_source, stime)
		VALUES ('alice', 'bob', 'file', 4242, datetime('now'))
	`)
	if err != nil {
		t.Errorf("inserting share with dangling file_source failed: %v", err)
	}
}

func TestSchema_FilecachePathUnique(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, DialectSQLite3); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec("INSERT INTO filecache (path, item_type) VALUES ('/alice/files/a.txt', 'file')")
	if err != nil {
		t.Fatalf("Failed to insert first file: %v", err)
	}

	_, err = db.Exec("INSERT INTO filecache (path, item_type) VALUES ('/alice/files/a.txt', 'file')")
	if err == nil {
		t.Error("Expected unique constraint violation for duplicate path, but insert succeeded")
	}
}

func TestSchema_FilecacheItemType(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, DialectSQLite3); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec("INSERT INTO filecache (path, item_type) VALUES ('/alice/calendar', 'calendar')")
	if err == nil {
		t.Error("Expected check constraint violation for item_type, but insert succeeded")
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	return db
}
