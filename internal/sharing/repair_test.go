package sharing_test

import (
	"context"
	"errors"
	"testing"

	"sharesync/internal/sharing"
	"sharesync/internal/testutil"
)

func TestRepairOrphanShares(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)

	kept := db.AddFile("/alice/files/kept", sharing.ItemTypeFile)
	gone := db.AddFile("/alice/files/gone", sharing.ItemTypeFolder)
	db.AddShare(kept, "alice", "bob", read)
	db.AddShare(gone, "alice", "bob", read)
	db.AddShare(gone, "alice", "carol", reshare)
	db.AddShare(9999, "alice", "dave", read)
	db.RemoveFile("/alice/files/gone")

	n, err := sharing.CountOrphanShares(ctx, db)
	if err != nil {
		t.Fatalf("CountOrphanShares() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CountOrphanShares() = %d, want 3", n)
	}

	removed, err := sharing.RepairOrphanShares(ctx, db)
	if err != nil {
		t.Fatalf("RepairOrphanShares() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("RepairOrphanShares() = %d, want 3", removed)
	}
	if len(db.SharesForFile(kept)) != 1 {
		t.Error("share of indexed file was removed")
	}

	again, err := sharing.RepairOrphanShares(ctx, db)
	if err != nil {
		t.Fatalf("second RepairOrphanShares() error = %v", err)
	}
	if again != 0 {
		t.Errorf("second RepairOrphanShares() = %d, want 0", again)
	}
}

func TestRepairOrphanShares_StoreError(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDatabase(t)
	storeErr := errors.New("readonly database")

	faulty := &testutil.FaultyDatabase{Database: db, DeleteOrphanErr: storeErr, CountOrphanErr: storeErr}

	var se *sharing.StoreError
	if _, err := sharing.RepairOrphanShares(context.Background(), faulty); !errors.As(err, &se) {
		t.Errorf("RepairOrphanShares() error = %v, want StoreError", err)
	}
	if _, err := sharing.CountOrphanShares(context.Background(), faulty); !errors.Is(err, storeErr) {
		t.Errorf("CountOrphanShares() error = %v, want %v", err, storeErr)
	}
}
