package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"reflect"
	"strings"
	"testing"

	"sharesync/internal/sharing"
)

func decodeResults(t *testing.T, r io.Reader) []EventResult {
	t.Helper()
	var results []EventResult
	dec := json.NewDecoder(r)
	for {
		var res EventResult
		if err := dec.Decode(&res); err == io.EOF {
			return results
		} else if err != nil {
			t.Fatalf("decoding result: %v", err)
		}
		results = append(results, res)
	}
}

func TestServeEvents(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil, nil)

	id := a.db.AddFile("/alice/files/doc", sharing.ItemTypeFile)
	a.db.AddShare(id, "alice", "bob", sharing.PermissionRead|sharing.PermissionShare)
	a.db.AddShare(id, "bob", "carol", sharing.PermissionRead)

	input := strings.Join([]string{
		`{"kind":"file_will_be_deleted","path":"/alice/files/doc"}`,
		`{"kind":"file_deleted","path":"/alice/files/doc"}`,
		``,
		`{"kind":"file_deleted","path":"/alice/files/other"}`,
		`{"kind":"file_will_be_deleted","path":"/alice/files/missing"}`,
		`{"kind":"share_created","item_type":"file","file_source":` + jsonInt(id) + `,"actor":"alice"}`,
		`{"kind":"share_created","item_type":"file","file_source":1}`,
		`{"kind":"file_deleted"}`,
		`{"kind":"rename"}`,
		`not json`,
		`{"kind":"app_upgrade"}`,
	}, "\n")

	var out bytes.Buffer
	if err := a.ServeEvents(ctx, strings.NewReader(input), &out); err != nil {
		t.Fatalf("ServeEvents() error = %v", err)
	}
	results := decodeResults(t, &out)

	if len(results) != 10 {
		t.Fatalf("results = %d, want 10: %+v", len(results), results)
	}

	checks := []struct {
		kind    string
		outcome string
		fileID  int64
		users   []string
		wantErr bool
	}{
		{kind: EventFileWillBeDeleted, outcome: OutcomeRecorded, fileID: id},
		{kind: EventFileDeleted, outcome: string(sharing.OutcomeStillExists), fileID: id},
		{kind: EventFileDeleted, outcome: string(sharing.OutcomeNotPending)},
		{kind: EventFileWillBeDeleted, outcome: OutcomeIgnored},
		{kind: EventShareCreated, users: []string{"bob", "carol"}},
		{kind: EventShareCreated, wantErr: true},
		{kind: EventFileDeleted, wantErr: true},
		{kind: "rename", wantErr: true},
		{kind: "", wantErr: true},
		{kind: EventAppUpgrade},
	}
	for i, c := range checks {
		got := results[i]
		if got.Kind != c.kind || got.Outcome != c.outcome || got.FileID != c.fileID {
			t.Errorf("result %d = %+v, want kind %q outcome %q fileid %d", i, got, c.kind, c.outcome, c.fileID)
		}
		if !reflect.DeepEqual(got.Users, c.users) {
			t.Errorf("result %d users = %v, want %v", i, got.Users, c.users)
		}
		if (got.Error != "") != c.wantErr {
			t.Errorf("result %d error = %q, wantErr %v", i, got.Error, c.wantErr)
		}
	}

	upgrade := results[9]
	if upgrade.From != "0" || upgrade.To != sharing.AppVersion {
		t.Errorf("upgrade result = %+v, want 0 -> %s", upgrade, sharing.AppVersion)
	}

	// The shares survived the still-exists outcome.
	if a.db.CountShares() != 2 {
		t.Errorf("shares = %d, want 2", a.db.CountShares())
	}
	if !a.op.Persisted() || a.op.Status != StatusSuccess {
		t.Errorf("operation = %+v, want persisted success", a.op)
	}
}

func TestHandleEvent_DeleteRemovesShares(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil, nil)

	id := a.db.AddFile("/alice/files/doc", sharing.ItemTypeFolder)
	a.db.AddShare(id, "alice", "bob", sharing.PermissionRead)
	a.db.AddShare(id, "alice", "carol", sharing.PermissionRead)

	pre := a.HandleEvent(ctx, HostEvent{Kind: EventFileWillBeDeleted, Path: "/alice/files/doc"})
	if pre.Outcome != OutcomeRecorded {
		t.Fatalf("pre-delete = %+v", pre)
	}
	a.db.RemoveFile("/alice/files/doc")

	post := a.HandleEvent(ctx, HostEvent{Kind: EventFileDeleted, Path: "/alice/files/doc"})
	if post.Outcome != string(sharing.OutcomeRemoved) || post.Removed != 2 || post.FileID != id {
		t.Errorf("post-delete = %+v, want 2 shares of %d removed", post, id)
	}
	if a.db.CountShares() != 0 {
		t.Errorf("shares = %d, want 0", a.db.CountShares())
	}
}

func TestServeEvents_CanceledContext(t *testing.T) {
	a := newTestApp(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := a.ServeEvents(ctx, strings.NewReader(`{"kind":"app_upgrade"}`+"\n"), &out)
	if err == nil {
		t.Fatal("ServeEvents() with canceled context should fail")
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want none", out.String())
	}
	if a.op.Status != StatusError {
		t.Errorf("operation status = %q, want %q", a.op.Status, StatusError)
	}
}

func TestServeEvents_OversizedLine(t *testing.T) {
	a := newTestApp(t, nil, nil)

	line := `{"kind":"file_deleted","path":"/` + strings.Repeat("x", maxEventSize) + `"}`
	var out bytes.Buffer
	if err := a.ServeEvents(context.Background(), strings.NewReader(line), &out); err == nil {
		t.Error("ServeEvents() with oversized line should fail")
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
