package sharing

import (
	"context"
	"errors"
	"fmt"

	"sharesync/internal/metrics"
)

// Outcome classifies how a post-delete event was handled.
type Outcome string

const (
	// OutcomeRemoved means the path was gone and its shares were deleted.
	OutcomeRemoved Outcome = "removed"
	// OutcomeNotPending means no pre-delete event was recorded for the path.
	OutcomeNotPending Outcome = "not_pending"
	// OutcomeStillExists means the path was still indexed, as after a rename.
	OutcomeStillExists Outcome = "still_exists"
	// OutcomeFailed means a store error prevented the cleanup.
	OutcomeFailed Outcome = "failed"
)

// CleanupResult reports what a post-delete event did. Err carries the
// swallowed failure for OutcomeStillExists and OutcomeFailed.
type CleanupResult struct {
	Path    string
	FileID  int64
	Removed int64
	Outcome Outcome
	Err     error
}

// Coordinator removes the shares of deleted files. It resolves a path to a
// fileid before the file index row disappears, then deletes the shares
// referencing that fileid once the deletion is confirmed.
//
// Hook methods never return errors; failures are logged and the share table
// is left for the orphan repair sweep.
type Coordinator struct {
	index   FileIndex
	store   ShareStore
	pending *PendingDeletions
	logger  Logger
	clock   Clock
	idgen   IDGenerator
}

// NewCoordinator creates a Coordinator. pending may be shared between
// coordinators serving the same host.
func NewCoordinator(index FileIndex, store ShareStore, pending *PendingDeletions, logger Logger, clock Clock, idgen IDGenerator) *Coordinator {
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	if pending == nil {
		pending = NewPendingDeletions(DefaultPendingCapacity, logger, clock, idgen)
	}
	return &Coordinator{
		index:   index,
		store:   store,
		pending: pending,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
	}
}

// Pending returns the coordinator's correlation cache.
func (c *Coordinator) Pending() *PendingDeletions {
	return c.pending
}

// OnPreDelete records the fileid of path ahead of its deletion. It returns
// the recorded entry, or nil when the path is not indexed or the lookup
// failed.
func (c *Coordinator) OnPreDelete(ctx context.Context, path string) *PendingDeletion {
	entry, err := c.resolve(ctx, path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.logger.Debug("pre-delete for unindexed path", "path", path)
		} else {
			c.logger.Warn("pre-delete lookup failed", "path", path, "error", err)
		}
		return nil
	}

	recorded := c.pending.Record(path, entry.FileID)
	c.logger.Debug("recorded pending deletion", "path", path, "fileid", recorded.FileID)
	return &recorded
}

// OnPostDelete completes the deletion recorded for path by OnPreDelete. The
// pending entry is evicted whatever the outcome.
func (c *Coordinator) OnPostDelete(ctx context.Context, path string) CleanupResult {
	entry, err := c.pending.Take(path)
	if err != nil {
		c.logger.Debug("post-delete without pending deletion", "path", path)
		metrics.CleanupOutcomesTotal.WithLabelValues(string(OutcomeNotPending)).Inc()
		return CleanupResult{Path: path, Outcome: OutcomeNotPending}
	}
	defer c.pending.Evict(path)

	return c.Complete(ctx, &entry)
}

// Begin resolves the fileid of path without touching the shared cache. The
// returned entry is passed to Complete once the deletion has happened.
// Returns an error wrapping ErrNotFound when path is not indexed.
func (c *Coordinator) Begin(ctx context.Context, path string) (*PendingDeletion, error) {
	return c.resolve(ctx, path)
}

// Complete deletes the shares of entry.FileID if entry.Path is no longer in
// the file index.
func (c *Coordinator) Complete(ctx context.Context, entry *PendingDeletion) CleanupResult {
	result := c.complete(ctx, entry)
	metrics.CleanupOutcomesTotal.WithLabelValues(string(result.Outcome)).Inc()
	return result
}

func (c *Coordinator) complete(ctx context.Context, entry *PendingDeletion) CleanupResult {
	result := CleanupResult{Path: entry.Path, FileID: entry.FileID}

	exists, err := c.index.FileExists(ctx, entry.Path)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = &StoreError{Op: "checking file index", Err: err}
		c.logger.Warn("post-delete lookup failed", "path", entry.Path, "fileid", entry.FileID, "error", err)
		metrics.CleanupFailuresTotal.Inc()
		return result
	}
	if exists {
		result.Outcome = OutcomeStillExists
		result.Err = ErrStillExists
		c.logger.Info("path still indexed after delete, keeping shares", "path", entry.Path, "fileid", entry.FileID)
		return result
	}

	removed, err := c.store.DeleteSharesByFileSource(ctx, entry.FileID)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = &StoreError{Op: "deleting shares", Err: err}
		c.logger.Warn("removing shares of deleted file failed", "path", entry.Path, "fileid", entry.FileID, "error", err)
		metrics.CleanupFailuresTotal.Inc()
		return result
	}

	result.Outcome = OutcomeRemoved
	result.Removed = removed
	metrics.SharesRemovedTotal.Add(float64(removed))
	c.logger.Info("removed shares of deleted file", "path", entry.Path, "fileid", entry.FileID, "removed", removed)
	return result
}

// resolve looks path up in the file index and builds an unrecorded entry.
func (c *Coordinator) resolve(ctx context.Context, path string) (*PendingDeletion, error) {
	file, err := c.index.FindFileByPath(ctx, path)
	if err != nil {
		return nil, &StoreError{Op: "finding file by path", Err: err}
	}
	if file == nil {
		return nil, fmt.Errorf("file %q: %w", path, ErrNotFound)
	}
	return &PendingDeletion{
		Token:     c.idgen.New(),
		Path:      path,
		FileID:    file.Fileid,
		CreatedAt: c.clock.Now(),
	}, nil
}
