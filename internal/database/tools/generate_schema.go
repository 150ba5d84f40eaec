// Command generate_schema migrates an in-memory SQLite database and writes the
// resulting CREATE statements to the schema file read by sqlc and tests.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sharesync/internal/database"
	"sharesync/internal/database/migrations"
)

const header = `-- This file is auto-generated from migration files.
-- DO NOT EDIT MANUALLY. Run 'go generate ./internal/database' to regenerate.
-- Source: internal/database/migrations/files/sqlite3/*.sql

`

// schemaQuery lists tables before indexes, skipping SQLite internals and the
// migration bookkeeping table.
const schemaQuery = `
	SELECT type, sql || ';'
	FROM sqlite_master
	WHERE type IN ('table', 'index')
	  AND sql IS NOT NULL
	  AND name NOT LIKE 'sqlite_%'
	  AND tbl_name != 'schema_migrations'
	ORDER BY CASE type WHEN 'table' THEN 1 ELSE 2 END, name
`

func main() {
	// Relative to the module root; see generate.go.
	out := flag.String("o", filepath.Join("internal", "database", "sqlc", "schema.sql"), "output path")
	flag.Parse()

	if err := run(*out); err != nil {
		fmt.Fprintf(os.Stderr, "generate_schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("generated %s from %s migrations\n", *out, migrations.DialectSQLite3)
}

func run(out string) error {
	db, err := database.OpenConnection(database.MemoryPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := migrations.MigrateUp(db, migrations.DialectSQLite3); err != nil {
		return err
	}

	schema, err := dumpSchema(db)
	if err != nil {
		return err
	}
	if err := checkApplies(schema); err != nil {
		return fmt.Errorf("generated schema does not apply cleanly: %w", err)
	}

	return os.WriteFile(out, []byte(schema), 0644)
}

func dumpSchema(db *sql.DB) (string, error) {
	rows, err := db.Query(schemaQuery)
	if err != nil {
		return "", fmt.Errorf("reading sqlite_master: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	b.WriteString(header)
	for rows.Next() {
		var kind, stmt string
		if err := rows.Scan(&kind, &stmt); err != nil {
			return "", fmt.Errorf("scanning %s statement: %w", kind, err)
		}
		b.WriteString(stmt)
		b.WriteString("\n\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading sqlite_master: %w", err)
	}
	return b.String(), nil
}

// checkApplies runs schema against a fresh database, as testutil does.
func checkApplies(schema string) error {
	db, err := database.OpenConnection(database.MemoryPath)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(schema)
	return err
}
