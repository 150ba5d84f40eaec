package testutil

import (
	"context"
	"sync"

	"sharesync/internal/database/sqlc"
	"sharesync/internal/sharing"
)

// FaultyDatabase wraps a Database and fails selected operations.
type FaultyDatabase struct {
	sharing.Database

	FindFileErr     error
	FileExistsErr   error
	DeleteSharesErr error
	DeleteOrphanErr error
	CountOrphanErr  error
	SetAppValueErr  error

	// FindSharesErr is returned by FindDirectShares once FindSharesFailAfter
	// calls have succeeded.
	FindSharesErr       error
	FindSharesFailAfter int

	mu         sync.Mutex
	shareCalls int
}

func (f *FaultyDatabase) FindFileByPath(ctx context.Context, path string) (*sqlc.Filecache, error) {
	if f.FindFileErr != nil {
		return nil, f.FindFileErr
	}
	return f.Database.FindFileByPath(ctx, path)
}

func (f *FaultyDatabase) FileExists(ctx context.Context, path string) (bool, error) {
	if f.FileExistsErr != nil {
		return false, f.FileExistsErr
	}
	return f.Database.FileExists(ctx, path)
}

func (f *FaultyDatabase) DeleteSharesByFileSource(ctx context.Context, fileID int64) (int64, error) {
	if f.DeleteSharesErr != nil {
		return 0, f.DeleteSharesErr
	}
	return f.Database.DeleteSharesByFileSource(ctx, fileID)
}

func (f *FaultyDatabase) DeleteOrphanShares(ctx context.Context) (int64, error) {
	if f.DeleteOrphanErr != nil {
		return 0, f.DeleteOrphanErr
	}
	return f.Database.DeleteOrphanShares(ctx)
}

func (f *FaultyDatabase) CountOrphanShares(ctx context.Context) (int64, error) {
	if f.CountOrphanErr != nil {
		return 0, f.CountOrphanErr
	}
	return f.Database.CountOrphanShares(ctx)
}

func (f *FaultyDatabase) SetAppValue(ctx context.Context, appID, key, value string) error {
	if f.SetAppValueErr != nil {
		return f.SetAppValueErr
	}
	return f.Database.SetAppValue(ctx, appID, key, value)
}

func (f *FaultyDatabase) FindDirectShares(ctx context.Context, q sharing.DirectShareQuery) ([]*sqlc.Share, error) {
	f.mu.Lock()
	f.shareCalls++
	calls := f.shareCalls
	f.mu.Unlock()

	if f.FindSharesErr != nil && calls > f.FindSharesFailAfter {
		return nil, f.FindSharesErr
	}
	return f.Database.FindDirectShares(ctx, q)
}

// ShareCalls returns the number of FindDirectShares calls made so far.
func (f *FaultyDatabase) ShareCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shareCalls
}

var _ sharing.Database = (*FaultyDatabase)(nil)
