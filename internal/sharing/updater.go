package sharing

import (
	"context"
	"fmt"

	"sharesync/internal/database/sqlc"
)

// Updater exposes the reconciliation layer as hooks for the host's file and
// share lifecycle events. One Updater serves one host connection.
type Updater struct {
	database    Database
	coordinator *Coordinator
	fanout      *FanoutResolver
	snapshotter Snapshotter
	logger      Logger
}

// NewUpdater creates an Updater. snapshotter may be nil, in which case
// upgrades repair without a prior snapshot.
func NewUpdater(database Database, pending *PendingDeletions, snapshotter Snapshotter, logger Logger, clock Clock, idgen IDGenerator) *Updater {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Updater{
		database:    database,
		coordinator: NewCoordinator(database, database, pending, logger, clock, idgen),
		fanout:      NewFanoutResolver(database, logger),
		snapshotter: snapshotter,
		logger:      logger,
	}
}

// Coordinator returns the cleanup coordinator behind the delete hooks.
func (u *Updater) Coordinator() *Coordinator {
	return u.coordinator
}

// OnFileWillBeDeleted runs before the host deletes path.
func (u *Updater) OnFileWillBeDeleted(ctx context.Context, path string) *PendingDeletion {
	return u.coordinator.OnPreDelete(ctx, path)
}

// OnFileDeleted runs after the host deleted path.
func (u *Updater) OnFileDeleted(ctx context.Context, path string) CleanupResult {
	return u.coordinator.OnPostDelete(ctx, path)
}

// OnShareCreated returns every user the new share reaches. Failures are
// logged and yield nil.
func (u *Updater) OnShareCreated(ctx context.Context, event ShareEvent) []string {
	owner := event.Owner
	if owner == "" {
		owner = event.Actor
	}

	users, err := u.fanout.ResolveFanout(ctx, event.ItemType, event.FileSource, owner)
	if err != nil {
		u.logger.Warn("resolving share fan-out failed",
			"item_type", string(event.ItemType),
			"file_source", event.FileSource,
			"owner", owner,
			"error", err)
		return nil
	}
	u.logger.Debug("resolved share fan-out", "file_source", event.FileSource, "owner", owner, "users", len(users))
	return users
}

// ResolveFanout resolves the fan-out of a share, returning store failures.
func (u *Updater) ResolveFanout(ctx context.Context, event ShareEvent) ([]string, error) {
	owner := event.Owner
	if owner == "" {
		owner = event.Actor
	}
	return u.fanout.ResolveFanout(ctx, event.ItemType, event.FileSource, owner)
}

// RepairOrphanShares runs the orphan repair sweep. With dryRun set it only
// counts the shares that would be removed.
func (u *Updater) RepairOrphanShares(ctx context.Context, dryRun bool) (int64, error) {
	if dryRun {
		return CountOrphanShares(ctx, u.database)
	}
	removed, err := RepairOrphanShares(ctx, u.database)
	if err != nil {
		return 0, err
	}
	u.logger.Info("repaired orphan shares", "removed", removed)
	return removed, nil
}

// GetHistory returns the most recent maintenance operations, newest first.
func (u *Updater) GetHistory(ctx context.Context, limit int) ([]*sqlc.MaintenanceOperation, error) {
	ops, err := u.database.ListMaintenanceOperations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing maintenance operations: %w", err)
	}
	return ops, nil
}
