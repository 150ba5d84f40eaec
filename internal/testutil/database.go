package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"sharesync/internal/database"
	"sharesync/internal/database/sqlc"
	"sharesync/internal/sharing"
)

// ShareTime is the stime given to shares created by AddShare.
var ShareTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// TestDB is an in-memory SQLite database with helpers for seeding the file
// index and share table, which the reconciliation layer only reads or deletes.
type TestDB struct {
	*database.SQLiteDatabase
	Queries *sqlc.Queries

	t *testing.T
}

// NewTestDatabase creates a new in-memory SQLite database with schema applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *TestDB {
	t.Helper()

	sqlDB, err := database.OpenConnection(database.MemoryPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if _, err := sqlDB.Exec(database.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(sqlDB)

	t.Cleanup(func() {
		db.Close()
	})

	return &TestDB{SQLiteDatabase: db, Queries: sqlc.New(sqlDB), t: t}
}

// AddFile indexes path and returns its fileid.
func (d *TestDB) AddFile(path string, itemType sharing.ItemType) int64 {
	d.t.Helper()
	f, err := d.Queries.InsertFile(context.Background(), sqlc.InsertFileParams{
		Path:     path,
		ItemType: string(itemType),
	})
	if err != nil {
		d.t.Fatalf("indexing %s: %v", path, err)
	}
	return f.Fileid
}

// RemoveFile drops path from the file index, as the host does when deleting it.
func (d *TestDB) RemoveFile(path string) {
	d.t.Helper()
	if _, err := d.Queries.DeleteFileByPath(context.Background(), path); err != nil {
		d.t.Fatalf("removing %s from index: %v", path, err)
	}
}

// AddShare records a user share of a file from owner to with.
func (d *TestDB) AddShare(fileSource int64, owner, with string, permissions int64) sqlc.Share {
	d.t.Helper()
	return d.InsertShare(sqlc.InsertShareParams{
		ShareType:   sharing.ShareTypeUser,
		ShareWith:   sql.NullString{String: with, Valid: with != ""},
		UidOwner:    owner,
		ItemType:    string(sharing.ItemTypeFile),
		FileSource:  fileSource,
		Permissions: permissions,
	})
}

// InsertShare records a share, defaulting ItemType, FileTarget and Stime.
func (d *TestDB) InsertShare(params sqlc.InsertShareParams) sqlc.Share {
	d.t.Helper()
	if params.ItemType == "" {
		params.ItemType = string(sharing.ItemTypeFile)
	}
	if params.FileTarget == "" {
		params.FileTarget = "/shared"
	}
	if params.Stime.IsZero() {
		params.Stime = ShareTime
	}
	s, err := d.Queries.InsertShare(context.Background(), params)
	if err != nil {
		d.t.Fatalf("inserting share: %v", err)
	}
	return s
}

// SharesForFile returns every share referencing fileSource.
func (d *TestDB) SharesForFile(fileSource int64) []sqlc.Share {
	d.t.Helper()
	shares, err := d.Queries.GetSharesByFileSource(context.Background(), fileSource)
	if err != nil {
		d.t.Fatalf("listing shares of %d: %v", fileSource, err)
	}
	return shares
}

// CountShares returns the number of rows in the share table.
func (d *TestDB) CountShares() int64 {
	d.t.Helper()
	n, err := d.Queries.CountShares(context.Background())
	if err != nil {
		d.t.Fatalf("counting shares: %v", err)
	}
	return n
}
