package database

// Code generation for the database package:
//   go generate ./internal/database
//
// generate_schema applies the sqlite3 migrations to an in-memory database and
// dumps the result to sqlc/schema.sql, which sqlc then reads. The Postgres
// store is written by hand against the postgres migrations.

//go:generate sh -c "cd ../.. && go run internal/database/tools/generate_schema.go"
//go:generate sh -c "cd ../.. && sqlc generate -f internal/database/sqlc/sqlc.yaml"
