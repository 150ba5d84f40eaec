package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sharesync/internal/database/migrations"
	"sharesync/internal/database/sqlc"
	"sharesync/internal/sharing"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteDatabase implements the sharing.Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    "",
	}
}

// OpenConnection opens and configures a SQLite database connection.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path
	if path != MemoryPath {
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// DB returns the underlying connection.
func (s *SQLiteDatabase) DB() *sql.DB {
	return s.db
}

// File index operations

func (s *SQLiteDatabase) FindFileByPath(ctx context.Context, path string) (*sqlc.Filecache, error) {
	file, err := s.queries.GetFileByPath(ctx, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding file by path: %w", err)
	}
	return &file, nil
}

func (s *SQLiteDatabase) FileExists(ctx context.Context, path string) (bool, error) {
	n, err := s.queries.CountFilesByPath(ctx, path)
	if err != nil {
		return false, fmt.Errorf("checking file existence: %w", err)
	}
	return n > 0, nil
}

// Share operations

func (s *SQLiteDatabase) DeleteSharesByFileSource(ctx context.Context, fileID int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	removed, err := s.queries.WithTx(tx).DeleteSharesByFileSource(ctx, fileID)
	if err != nil {
		return 0, fmt.Errorf("deleting shares of file %d: %w", fileID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return removed, nil
}

func (s *SQLiteDatabase) DeleteOrphanShares(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	removed, err := s.queries.WithTx(tx).DeleteOrphanShares(ctx)
	if err != nil {
		return 0, fmt.Errorf("deleting orphan shares: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return removed, nil
}

func (s *SQLiteDatabase) CountOrphanShares(ctx context.Context) (int64, error) {
	n, err := s.queries.CountOrphanShares(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting orphan shares: %w", err)
	}
	return n, nil
}

func (s *SQLiteDatabase) FindDirectShares(ctx context.Context, q sharing.DirectShareQuery) ([]*sqlc.Share, error) {
	var required int64
	if q.ReshareableOnly {
		required = sharing.PermissionShare
	}

	shares, err := s.queries.GetDirectShares(ctx, sqlc.GetDirectSharesParams{
		ItemType:            string(q.ItemType),
		FileSource:          q.FileSource,
		UidOwner:            q.Owner,
		RequiredPermissions: required,
	})
	if err != nil {
		return nil, fmt.Errorf("finding direct shares: %w", err)
	}

	return filterDirectShares(shares, q), nil
}

// filterDirectShares converts query rows to pointers, dropping shares back to
// the sharer when q.ExcludeOwner is set.
func filterDirectShares(shares []sqlc.Share, q sharing.DirectShareQuery) []*sqlc.Share {
	result := make([]*sqlc.Share, 0, len(shares))
	for i := range shares {
		share := &shares[i]
		if q.ExcludeOwner && share.ShareWith.Valid && share.ShareWith.String == q.Owner {
			continue
		}
		result = append(result, share)
	}
	return result
}

// App config operations

func (s *SQLiteDatabase) GetAppValue(ctx context.Context, appID, key string) (string, error) {
	value, err := s.queries.GetAppConfigValue(ctx, sqlc.GetAppConfigValueParams{
		Appid:     appID,
		Configkey: key,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("reading app config %s/%s: %w", appID, key, err)
	}
	return value, nil
}

func (s *SQLiteDatabase) SetAppValue(ctx context.Context, appID, key, value string) error {
	err := s.queries.UpsertAppConfigValue(ctx, sqlc.UpsertAppConfigValueParams{
		Appid:       appID,
		Configkey:   key,
		Configvalue: value,
	})
	if err != nil {
		return fmt.Errorf("writing app config %s/%s: %w", appID, key, err)
	}
	return nil
}

// Maintenance operation tracking

func (s *SQLiteDatabase) CreateMaintenanceOperation(ctx context.Context, operation string, parameters string) (*sqlc.MaintenanceOperation, error) {
	op, err := s.queries.InsertMaintenanceOperation(ctx, sqlc.InsertMaintenanceOperationParams{
		StartedAt:  time.Now().UTC(),
		Operation:  operation,
		Parameters: parameters,
	})
	if err != nil {
		return nil, fmt.Errorf("creating maintenance operation: %w", err)
	}
	return &op, nil
}

func (s *SQLiteDatabase) FinishMaintenanceOperation(ctx context.Context, id int64, status string) error {
	err := s.queries.UpdateMaintenanceOperationFinished(ctx, sqlc.UpdateMaintenanceOperationFinishedParams{
		FinishedAt: sql.NullTime{Time: time.Now().UTC(), Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing maintenance operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListMaintenanceOperations(ctx context.Context, limit int) ([]*sqlc.MaintenanceOperation, error) {
	ops, err := s.queries.GetMaintenanceOperations(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing maintenance operations: %w", err)
	}

	result := make([]*sqlc.MaintenanceOperation, len(ops))
	for i := range ops {
		result[i] = &ops[i]
	}
	return result, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// MigrateUp applies pending migrations.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.MigrateUp(s.db, migrations.DialectSQLite3)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db, migrations.DialectSQLite3)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
// destPath must not exist.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements sharing.Database interface
var _ sharing.Database = (*SQLiteDatabase)(nil)
