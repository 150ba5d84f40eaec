package sharing_test

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"sharesync/internal/database/sqlc"
	"sharesync/internal/sharing"
	"sharesync/internal/testutil"
)

const (
	read      = sharing.PermissionRead
	reshare   = sharing.PermissionRead | sharing.PermissionShare
	fullShare = sharing.PermissionRead | sharing.PermissionUpdate | sharing.PermissionShare
)

func TestResolveFanout(t *testing.T) {
	t.Parallel()

	type edge struct {
		owner, with string
		perms       int64
	}

	tests := []struct {
		name  string
		edges []edge
		other []sqlc.InsertShareParams
		owner string
		want  []string
	}{
		{
			name:  "no shares",
			owner: "alice",
			want:  []string{},
		},
		{
			name:  "direct recipients",
			edges: []edge{{"alice", "carol", read}, {"alice", "bob", read}},
			owner: "alice",
			want:  []string{"bob", "carol"},
		},
		{
			name: "reshare chain",
			edges: []edge{
				{"alice", "bob", reshare},
				{"bob", "carol", fullShare},
				{"carol", "dave", read},
			},
			owner: "alice",
			want:  []string{"bob", "carol", "dave"},
		},
		{
			name: "recipient without share permission is not expanded",
			edges: []edge{
				{"alice", "bob", read},
				{"bob", "carol", read},
			},
			owner: "alice",
			want:  []string{"bob"},
		},
		{
			name: "cycle back to owner",
			edges: []edge{
				{"alice", "bob", reshare},
				{"bob", "alice", reshare},
				{"bob", "carol", reshare},
				{"carol", "bob", reshare},
			},
			owner: "alice",
			want:  []string{"bob", "carol"},
		},
		{
			name: "diamond",
			edges: []edge{
				{"alice", "bob", reshare},
				{"alice", "carol", reshare},
				{"bob", "dave", reshare},
				{"carol", "dave", read},
				{"dave", "erin", read},
			},
			owner: "alice",
			want:  []string{"bob", "carol", "dave", "erin"},
		},
		{
			name: "self share ignored",
			edges: []edge{
				{"alice", "alice", reshare},
				{"alice", "bob", read},
			},
			owner: "alice",
			want:  []string{"bob"},
		},
		{
			name: "resolve from a resharer",
			edges: []edge{
				{"alice", "bob", reshare},
				{"bob", "carol", read},
			},
			owner: "bob",
			want:  []string{"carol"},
		},
		{
			name:  "password protected link share",
			edges: []edge{{"alice", "bob", read}},
			other: []sqlc.InsertShareParams{{
				ShareType:   sharing.ShareTypeLink,
				ShareWith:   sql.NullString{String: "$2a$08$passwordhash", Valid: true},
				UidOwner:    "alice",
				Permissions: read,
			}},
			owner: "alice",
			want:  []string{"bob"},
		},
		{
			name:  "group share with share permission",
			edges: []edge{{"alice", "bob", read}},
			other: []sqlc.InsertShareParams{
				{
					ShareType:   sharing.ShareTypeGroup,
					ShareWith:   sql.NullString{String: "admins", Valid: true},
					UidOwner:    "alice",
					Permissions: reshare,
				},
				{
					ShareType:   sharing.ShareTypeUser,
					ShareWith:   sql.NullString{String: "carol", Valid: true},
					UidOwner:    "admins",
					Permissions: read,
				},
			},
			owner: "alice",
			want:  []string{"bob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db := testutil.NewTestDatabase(t)
			id := db.AddFile("/alice/files/shared.txt", sharing.ItemTypeFile)
			for _, e := range tt.edges {
				db.AddShare(id, e.owner, e.with, e.perms)
			}
			for _, p := range tt.other {
				p.ItemType = string(sharing.ItemTypeFile)
				p.FileSource = id
				db.InsertShare(p)
			}

			r := sharing.NewFanoutResolver(db, testutil.NewRecordingLogger())
			got, err := r.ResolveFanout(context.Background(), sharing.ItemTypeFile, id, tt.owner)
			if err != nil {
				t.Fatalf("ResolveFanout() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ResolveFanout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveFanout_IgnoresOtherFilesAndLinks(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDatabase(t)
	id := db.AddFile("/alice/files/a", sharing.ItemTypeFolder)
	other := db.AddFile("/alice/files/b", sharing.ItemTypeFolder)

	db.InsertShare(sqlc.InsertShareParams{
		ShareType:   sharing.ShareTypeUser,
		ShareWith:   sql.NullString{String: "bob", Valid: true},
		UidOwner:    "alice",
		ItemType:    string(sharing.ItemTypeFolder),
		FileSource:  id,
		Permissions: reshare,
	})
	db.InsertShare(sqlc.InsertShareParams{
		ShareType:   sharing.ShareTypeLink,
		UidOwner:    "alice",
		ItemType:    string(sharing.ItemTypeFolder),
		FileSource:  id,
		Permissions: read,
	})
	db.InsertShare(sqlc.InsertShareParams{
		ShareType:   sharing.ShareTypeUser,
		ShareWith:   sql.NullString{String: "mallory", Valid: true},
		UidOwner:    "alice",
		ItemType:    string(sharing.ItemTypeFolder),
		FileSource:  other,
		Permissions: reshare,
	})
	// A file share of the same source is a different item.
	db.AddShare(id, "alice", "trent", read)

	r := sharing.NewFanoutResolver(db, nil)
	got, err := r.ResolveFanout(context.Background(), sharing.ItemTypeFolder, id, "alice")
	if err != nil {
		t.Fatalf("ResolveFanout() error = %v", err)
	}
	if want := []string{"bob"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ResolveFanout() = %v, want %v", got, want)
	}
}

func TestResolveFanout_UnsupportedItemType(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDatabase(t)
	r := sharing.NewFanoutResolver(db, nil)

	for _, itemType := range []sharing.ItemType{"calendar", ""} {
		_, err := r.ResolveFanout(context.Background(), itemType, 1, "alice")
		if !errors.Is(err, sharing.ErrUnsupportedItemType) {
			t.Errorf("ResolveFanout(%q) error = %v, want ErrUnsupportedItemType", itemType, err)
		}
	}
}

func TestResolveFanout_StoreErrorReturnsNoPartialResult(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDatabase(t)
	id := db.AddFile("/a", sharing.ItemTypeFile)
	db.AddShare(id, "alice", "bob", reshare)
	db.AddShare(id, "bob", "carol", read)

	storeErr := errors.New("disk I/O error")
	faulty := &testutil.FaultyDatabase{Database: db, FindSharesErr: storeErr, FindSharesFailAfter: 1}

	r := sharing.NewFanoutResolver(faulty, nil)
	got, err := r.ResolveFanout(context.Background(), sharing.ItemTypeFile, id, "alice")

	var se *sharing.StoreError
	if !errors.As(err, &se) || !errors.Is(err, storeErr) {
		t.Fatalf("ResolveFanout() error = %v, want StoreError wrapping %v", err, storeErr)
	}
	if got != nil {
		t.Errorf("ResolveFanout() = %v, want nil", got)
	}
	if faulty.ShareCalls() != 2 {
		t.Errorf("share lookups = %d, want 2", faulty.ShareCalls())
	}
}

func TestResolveFanout_CanceledContext(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDatabase(t)
	id := db.AddFile("/a", sharing.ItemTypeFile)
	db.AddShare(id, "alice", "bob", read)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sharing.NewFanoutResolver(db, nil).ResolveFanout(ctx, sharing.ItemTypeFile, id, "alice")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ResolveFanout() error = %v, want context.Canceled", err)
	}
}
