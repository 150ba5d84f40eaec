package sharing

import (
	"context"

	"sharesync/internal/database/sqlc"
)

// FileIndex is the read-only view of the file index the reconciliation layer
// needs. Implementations must be safe for concurrent use.
type FileIndex interface {
	// FindFileByPath returns the file index row for path, or nil if absent.
	FindFileByPath(ctx context.Context, path string) (*sqlc.Filecache, error)

	// FileExists reports whether path currently has a file index row.
	FileExists(ctx context.Context, path string) (bool, error)
}

// ShareStore is the subset of share table operations the reconciliation layer
// performs. Every mutating method runs in its own transaction.
type ShareStore interface {
	// DeleteSharesByFileSource removes every share referencing fileID and
	// returns the number of rows removed.
	DeleteSharesByFileSource(ctx context.Context, fileID int64) (int64, error)

	// DeleteOrphanShares removes every share whose file_source has no file or
	// folder row in the file index.
	DeleteOrphanShares(ctx context.Context) (int64, error)

	// CountOrphanShares counts the rows DeleteOrphanShares would remove.
	CountOrphanShares(ctx context.Context) (int64, error)

	// FindDirectShares returns the shares matching q, ordered by id.
	FindDirectShares(ctx context.Context, q DirectShareQuery) ([]*sqlc.Share, error)
}

// AppConfigStore holds per-application key/value settings.
type AppConfigStore interface {
	// GetAppValue returns the stored value, or "" when unset.
	GetAppValue(ctx context.Context, appID, key string) (string, error)
	SetAppValue(ctx context.Context, appID, key, value string) error
}

// Database is the full storage surface: file index, share store, app config
// and maintenance history.
type Database interface {
	FileIndex
	ShareStore
	AppConfigStore

	// Maintenance operation tracking

	CreateMaintenanceOperation(ctx context.Context, operation, parameters string) (*sqlc.MaintenanceOperation, error)
	FinishMaintenanceOperation(ctx context.Context, id int64, status string) error
	ListMaintenanceOperations(ctx context.Context, limit int) ([]*sqlc.MaintenanceOperation, error)

	// MigrateUp applies pending schema migrations.
	MigrateUp() error

	// CheckMigrations returns an error unless the schema is at the latest version.
	CheckMigrations() error

	// BackupTo writes a consistent copy of the database to destPath.
	BackupTo(destPath string) error

	// Close closes the database connection.
	Close() error
}
