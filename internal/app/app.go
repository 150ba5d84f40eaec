package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sharesync/internal/config"
	"sharesync/internal/database"
	"sharesync/internal/database/sqlc"
	"sharesync/internal/encryption"
	"sharesync/internal/metrics"
	"sharesync/internal/sharing"
	"sharesync/internal/vault"
)

// SnapshotSuffix is appended to snapshot names; encrypted snapshots get
// EncryptedSuffix as well.
const (
	SnapshotSuffix  = ".db"
	EncryptedSuffix = ".age"
)

// SyncApp is the application layer between the CLI and the reconciliation
// hooks. It constructs all dependencies from config, records maintenance
// operations and manages the DB lifecycle on Close.
type SyncApp struct {
	cfg       *config.Config
	db        sharing.Database
	vault     sharing.Vault
	encryptor sharing.Encryptor
	updater   *sharing.Updater
	logger    *slog.Logger
	clock     sharing.Clock
	op        *MaintenanceOperation
	logFile   *os.File
}

// NewSyncApp creates a fully wired SyncApp from the given config.
// operation identifies the CLI command being run (e.g. "Events", "Repair").
// The caller must call Close when done.
func NewSyncApp(ctx context.Context, cfg *config.Config, operation string) (*SyncApp, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.InstanceID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	var v sharing.Vault
	if len(cfg.Vaults) > 0 {
		v, err = vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating vault: %w", err)
		}
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if enc != nil && !enc.IsConfigured() {
		db.Close()
		return nil, fmt.Errorf("encryption type %q has no keys: run 'sharesync config init --encrypt'", cfg.Encryption.Type)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, cfg.LogLevel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := newSyncApp(cfg, db, v, enc, logger, sharing.RealClock{}, sharing.UUIDGenerator{}, operation)
	a.logFile = logFile
	return a, nil
}

// newSyncApp wires a SyncApp from already constructed dependencies. v and enc
// may be nil.
func newSyncApp(cfg *config.Config, db sharing.Database, v sharing.Vault, enc sharing.Encryptor, logger *slog.Logger, clock sharing.Clock, idgen sharing.IDGenerator, operation string) *SyncApp {
	a := &SyncApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		encryptor: enc,
		logger:    logger,
		clock:     clock,
		op:        NewMaintenanceOperation(operation, ""),
	}

	adapter := &slogAdapter{l: logger}
	pending := sharing.NewPendingDeletions(cfg.Sharing.PendingCapacity, adapter, clock, idgen)
	// a satisfies sharing.Snapshotter; only vault-backed apps snapshot.
	var snap sharing.Snapshotter
	if v != nil {
		snap = a
	}
	a.updater = sharing.NewUpdater(db, pending, snap, adapter, clock, idgen)
	return a
}

// persistOperation saves the maintenance operation to the database, giving it
// an auto-increment ID. Only mutating commands call it.
func (a *SyncApp) persistOperation(ctx context.Context, parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateMaintenanceOperation(ctx, a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting maintenance operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// fail marks the current operation failed and returns err.
func (a *SyncApp) fail(err error) error {
	if err != nil {
		a.op.Fail()
	}
	return err
}

// ResolveFanout returns the users reached by a share of fileSource.
func (a *SyncApp) ResolveFanout(ctx context.Context, itemType string, fileSource int64, owner, actor string) ([]string, error) {
	return a.updater.ResolveFanout(ctx, sharing.ShareEvent{
		ItemType:   sharing.ItemType(itemType),
		FileSource: fileSource,
		Owner:      owner,
		Actor:      actor,
	})
}

// RepairOrphanShares removes orphan shares, snapshotting the database first
// when a vault is configured. With dryRun set it only counts them and nothing
// is recorded.
func (a *SyncApp) RepairOrphanShares(ctx context.Context, dryRun bool) (int64, string, error) {
	if dryRun {
		n, err := a.updater.RepairOrphanShares(ctx, true)
		return n, "", err
	}

	if err := a.persistOperation(ctx, "dry_run=false"); err != nil {
		return 0, "", err
	}

	var snapshot string
	if a.vault != nil {
		var err error
		snapshot, err = a.Snapshot(ctx, "pre-repair")
		if err != nil {
			return 0, "", a.fail(fmt.Errorf("snapshotting database before repair: %w", err))
		}
	}

	n, err := a.updater.RepairOrphanShares(ctx, false)
	if err != nil {
		return 0, snapshot, a.fail(err)
	}
	return n, snapshot, nil
}

// Upgrade runs the upgrade gate.
func (a *SyncApp) Upgrade(ctx context.Context) (*sharing.UpgradeResult, error) {
	if err := a.persistOperation(ctx, "to="+sharing.AppVersion); err != nil {
		return nil, err
	}
	result, err := a.updater.OnAppUpgrade(ctx)
	if err != nil {
		return nil, a.fail(err)
	}
	return result, nil
}

// GetHistory returns the most recent maintenance operations.
func (a *SyncApp) GetHistory(ctx context.Context, limit int) ([]*sqlc.MaintenanceOperation, error) {
	return a.updater.GetHistory(ctx, limit)
}

// Snapshot copies the database into the vault under a timestamped name and
// returns that name. It implements sharing.Snapshotter. Without a vault, or
// for databases that cannot be copied locally, it logs and returns "".
func (a *SyncApp) Snapshot(ctx context.Context, label string) (string, error) {
	if a.vault == nil {
		a.logger.Warn("no vault configured, skipping snapshot", "label", label)
		return "", nil
	}

	tmpDir, err := os.MkdirTemp("", "sharesync-snapshot-*")
	if err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	plainPath := filepath.Join(tmpDir, "snapshot"+SnapshotSuffix)
	if err := a.db.BackupTo(plainPath); err != nil {
		if errors.Is(err, database.ErrBackupUnsupported) {
			a.logger.Warn("database does not support local snapshots, skipping", "label", label)
			return "", nil
		}
		return "", fmt.Errorf("copying database: %w", err)
	}

	name := a.clock.Now().UTC().Format("20060102T150405Z") + "-" + label + SnapshotSuffix
	uploadPath := plainPath
	if a.encryptor != nil {
		uploadPath = plainPath + EncryptedSuffix
		if err := encryptFile(a.encryptor, plainPath, uploadPath); err != nil {
			return "", err
		}
		name += EncryptedSuffix
	}

	if err := a.upload(name, uploadPath); err != nil {
		return "", err
	}
	a.logger.Info("stored database snapshot", "name", name, "label", label)
	return name, nil
}

func encryptFile(enc sharing.Encryptor, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating encrypted snapshot: %w", err)
	}
	if err := enc.Encrypt(in, out); err != nil {
		out.Close()
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	return out.Close()
}

// upload opens path and stores it in the vault as name.
func (a *SyncApp) upload(name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}

	if err := a.vault.PutSnapshot(name, f, info.Size()); err != nil {
		return fmt.Errorf("uploading snapshot to vault: %w", err)
	}
	return nil
}

// ListSnapshots returns the names of the stored snapshots.
func (a *SyncApp) ListSnapshots() ([]string, error) {
	if a.vault == nil {
		return nil, fmt.Errorf("no vault configured")
	}
	return a.vault.ListSnapshots()
}

// FetchSnapshot writes the named snapshot to w. Snapshots stored with
// EncryptedSuffix are decrypted with the key unlocked by passphrase.
func (a *SyncApp) FetchSnapshot(name string, w io.Writer, passphrase string) error {
	if a.vault == nil {
		return fmt.Errorf("no vault configured")
	}
	if !SnapshotEncrypted(name) {
		return a.vault.GetSnapshot(name, w)
	}
	if a.encryptor == nil {
		return fmt.Errorf("snapshot %s is encrypted but encryption is not configured", name)
	}

	dec, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(a.vault.GetSnapshot(name, pw))
	}()
	err = dec.Decrypt(pr, w)
	pr.CloseWithError(err)
	if err != nil {
		return fmt.Errorf("decrypting snapshot %s: %w", name, err)
	}
	return nil
}

// SnapshotEncrypted reports whether a snapshot name denotes an encrypted
// snapshot.
func SnapshotEncrypted(name string) bool {
	return filepath.Ext(name) == EncryptedSuffix
}

// Close finalizes the operation and closes all resources. Persisted
// operations are marked finished. Metrics are exported when a textfile path
// is configured.
func (a *SyncApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishMaintenanceOperation(context.Background(), a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing maintenance operation: %w", err)
		}
	}

	if path := a.cfg.Metrics.TextfilePath; path != "" {
		if err := metrics.WriteTextfile(path); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("writing metrics: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// MigrateDatabase applies pending schema migrations to the configured database.
func MigrateDatabase(cfg *config.Config) error {
	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.InstanceID)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	if err := db.MigrateUp(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// CheckDatabase reports whether the configured database schema is current.
func CheckDatabase(cfg *config.Config) error {
	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.InstanceID)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	return db.CheckMigrations()
}
