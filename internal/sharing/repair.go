package sharing

import (
	"context"

	"sharesync/internal/metrics"
)

// RepairOrphanShares deletes every share whose file_source no longer has a
// file or folder row in the file index, returning the number removed.
// Running it again without intervening changes removes nothing.
func RepairOrphanShares(ctx context.Context, store ShareStore) (int64, error) {
	removed, err := store.DeleteOrphanShares(ctx)
	if err != nil {
		return 0, &StoreError{Op: "deleting orphan shares", Err: err}
	}
	metrics.OrphanSharesRemovedTotal.Add(float64(removed))
	return removed, nil
}

// CountOrphanShares returns how many shares RepairOrphanShares would remove.
func CountOrphanShares(ctx context.Context, store ShareStore) (int64, error) {
	n, err := store.CountOrphanShares(ctx)
	if err != nil {
		return 0, &StoreError{Op: "counting orphan shares", Err: err}
	}
	return n, nil
}
