package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // Postgres driver

	"sharesync/internal/database/migrations"
	"sharesync/internal/database/sqlc"
	"sharesync/internal/sharing"
)

// ErrBackupUnsupported is returned by BackupTo for databases that cannot copy
// themselves to a local file.
var ErrBackupUnsupported = errors.New("backup not supported by this database")

const shareColumns = "id, share_type, share_with, uid_owner, item_type, file_source, file_target, permissions, stime"

// PostgresDatabase implements the sharing.Database interface against a
// Postgres server that holds the host's file index and share tables.
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase connects to the server at dsn.
func NewPostgresDatabase(dsn string) (*PostgresDatabase, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is empty")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &PostgresDatabase{db: db}, nil
}

// DB returns the underlying connection.
func (p *PostgresDatabase) DB() *sql.DB {
	return p.db
}

// File index operations

func (p *PostgresDatabase) FindFileByPath(ctx context.Context, path string) (*sqlc.Filecache, error) {
	var file sqlc.Filecache
	err := p.db.QueryRowContext(ctx,
		"SELECT fileid, path, item_type FROM filecache WHERE path = $1", path,
	).Scan(&file.Fileid, &file.Path, &file.ItemType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("finding file by path: %w", err)
	}
	return &file, nil
}

func (p *PostgresDatabase) FileExists(ctx context.Context, path string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM filecache WHERE path = $1)", path,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking file existence: %w", err)
	}
	return exists, nil
}

// Share operations

func (p *PostgresDatabase) DeleteSharesByFileSource(ctx context.Context, fileID int64) (int64, error) {
	return p.execInTx(ctx, "deleting shares of file", "DELETE FROM share WHERE file_source = $1", fileID)
}

func (p *PostgresDatabase) DeleteOrphanShares(ctx context.Context) (int64, error) {
	return p.execInTx(ctx, "deleting orphan shares", `
		DELETE FROM share
		WHERE file_source NOT IN (
			SELECT fileid FROM filecache WHERE item_type IN ('file', 'folder')
		)`)
}

func (p *PostgresDatabase) CountOrphanShares(ctx context.Context) (int64, error) {
	var n int64
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM share
		WHERE file_source NOT IN (
			SELECT fileid FROM filecache WHERE item_type IN ('file', 'folder')
		)`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting orphan shares: %w", err)
	}
	return n, nil
}

func (p *PostgresDatabase) FindDirectShares(ctx context.Context, q sharing.DirectShareQuery) ([]*sqlc.Share, error) {
	var required int64
	if q.ReshareableOnly {
		required = sharing.PermissionShare
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT `+shareColumns+` FROM share
		WHERE item_type = $1
		  AND file_source = $2
		  AND uid_owner = $3
		  AND (permissions & $4) = $4
		ORDER BY id`,
		string(q.ItemType), q.FileSource, q.Owner, required)
	if err != nil {
		return nil, fmt.Errorf("finding direct shares: %w", err)
	}
	defer rows.Close()

	var shares []sqlc.Share
	for rows.Next() {
		var s sqlc.Share
		if err := rows.Scan(
			&s.ID,
			&s.ShareType,
			&s.ShareWith,
			&s.UidOwner,
			&s.ItemType,
			&s.FileSource,
			&s.FileTarget,
			&s.Permissions,
			&s.Stime,
		); err != nil {
			return nil, fmt.Errorf("scanning share: %w", err)
		}
		shares = append(shares, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("finding direct shares: %w", err)
	}

	return filterDirectShares(shares, q), nil
}

// App config operations

func (p *PostgresDatabase) GetAppValue(ctx context.Context, appID, key string) (string, error) {
	var value string
	err := p.db.QueryRowContext(ctx,
		"SELECT configvalue FROM appconfig WHERE appid = $1 AND configkey = $2", appID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading app config %s/%s: %w", appID, key, err)
	}
	return value, nil
}

func (p *PostgresDatabase) SetAppValue(ctx context.Context, appID, key, value string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO appconfig (appid, configkey, configvalue)
		VALUES ($1, $2, $3)
		ON CONFLICT (appid, configkey)
		DO UPDATE SET configvalue = EXCLUDED.configvalue`, appID, key, value)
	if err != nil {
		return fmt.Errorf("writing app config %s/%s: %w", appID, key, err)
	}
	return nil
}

// Maintenance operation tracking

func (p *PostgresDatabase) CreateMaintenanceOperation(ctx context.Context, operation string, parameters string) (*sqlc.MaintenanceOperation, error) {
	var op sqlc.MaintenanceOperation
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO maintenance_operations (started_at, operation, parameters)
		VALUES ($1, $2, $3)
		RETURNING id, started_at, finished_at, operation, parameters, status`,
		time.Now().UTC(), operation, parameters,
	).Scan(&op.ID, &op.StartedAt, &op.FinishedAt, &op.Operation, &op.Parameters, &op.Status)
	if err != nil {
		return nil, fmt.Errorf("creating maintenance operation: %w", err)
	}
	return &op, nil
}

func (p *PostgresDatabase) FinishMaintenanceOperation(ctx context.Context, id int64, status string) error {
	_, err := p.db.ExecContext(ctx,
		"UPDATE maintenance_operations SET finished_at = $1, status = $2 WHERE id = $3",
		time.Now().UTC(), status, id)
	if err != nil {
		return fmt.Errorf("finishing maintenance operation: %w", err)
	}
	return nil
}

func (p *PostgresDatabase) ListMaintenanceOperations(ctx context.Context, limit int) ([]*sqlc.MaintenanceOperation, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, operation, parameters, status
		FROM maintenance_operations
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing maintenance operations: %w", err)
	}
	defer rows.Close()

	var ops []*sqlc.MaintenanceOperation
	for rows.Next() {
		var op sqlc.MaintenanceOperation
		if err := rows.Scan(&op.ID, &op.StartedAt, &op.FinishedAt, &op.Operation, &op.Parameters, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning maintenance operation: %w", err)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing maintenance operations: %w", err)
	}
	return ops, nil
}

// MigrateUp applies pending migrations.
func (p *PostgresDatabase) MigrateUp() error {
	return migrations.MigrateUp(p.db, migrations.DialectPostgres)
}

// CheckMigrations verifies the database schema is up-to-date.
func (p *PostgresDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(p.db, migrations.DialectPostgres)
}

// BackupTo always fails: Postgres servers are backed up with their own tooling.
func (p *PostgresDatabase) BackupTo(destPath string) error {
	return ErrBackupUnsupported
}

// Close closes the database connection.
func (p *PostgresDatabase) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *PostgresDatabase) execInTx(ctx context.Context, op string, query string, args ...any) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return n, nil
}

// Compile-time check that PostgresDatabase implements sharing.Database interface
var _ sharing.Database = (*PostgresDatabase)(nil)
