package database

import _ "embed"

// Schema is the full SQLite schema produced by applying every migration.
// Tests apply it directly to in-memory databases instead of migrating.
//
//go:embed sqlc/schema.sql
var Schema string
