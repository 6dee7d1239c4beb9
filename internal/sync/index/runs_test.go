package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:         id,
		ConfigPath: "/etc/ftpfetch/mirror.json",
		Host:       "ftp.example.com:21",
		RemoteRoot: "/pub",
		LocalRoot:  "/srv/mirror",
		Status:     RunPartial,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		CreateDirs: 1,
		Fetches:    2,
		Deletes:    1,
		Failed:     1,
		Bytes:      42,
	}
}

func TestRecordAndGetRun(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	actions := []RunAction{
		{Type: "delete", Path: "old.txt", Kind: "file", Status: ActionOK},
		{Type: "create_dir", Path: "x", Kind: "dir", Status: ActionOK},
		{Type: "fetch", Path: "x/a.txt", Kind: "file", Status: ActionOK, Bytes: 42},
		{Type: "fetch", Path: "x/b.txt", Kind: "file", Status: ActionFailed, Error: "connection reset"},
	}
	if err := db.RecordRun(ctx, sampleRun("run-1", started), actions); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	run, err := db.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != RunPartial || run.Fetches != 2 || run.Bytes != 42 {
		t.Errorf("GetRun() = %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", run.StartedAt, started)
	}
	if run.Error != "" {
		t.Errorf("Error = %q, want empty", run.Error)
	}

	got, err := db.ListRunActions(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListRunActions() error = %v", err)
	}
	if len(got) != len(actions) {
		t.Fatalf("ListRunActions() returned %d actions, want %d", len(got), len(actions))
	}
	for i, a := range got {
		if a.Seq != i || a.Path != actions[i].Path || a.Status != actions[i].Status {
			t.Errorf("action %d = %+v, want %+v", i, a, actions[i])
		}
	}
	if got[3].Error != "connection reset" {
		t.Errorf("action error = %q", got[3].Error)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := db.RecordRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour)), nil); err != nil {
			t.Fatalf("RecordRun(%s) error = %v", id, err)
		}
	}

	runs, err := db.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("ListRuns(2) = %v", runs)
	}

	all, err := db.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns(0) error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListRuns(0) returned %d runs, want 3", len(all))
	}
}

func TestGetRunByPrefix(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for _, id := range []string{"3f2a0c1e-aaaa", "3f2b9d00-bbbb"} {
		if err := db.RecordRun(ctx, sampleRun(id, now), nil); err != nil {
			t.Fatalf("RecordRun() error = %v", err)
		}
	}

	run, err := db.GetRun(ctx, "3f2a")
	if err != nil {
		t.Fatalf("GetRun(prefix) error = %v", err)
	}
	if run.ID != "3f2a0c1e-aaaa" {
		t.Errorf("GetRun(prefix) = %s", run.ID)
	}

	if _, err := db.GetRun(ctx, "3f2"); !errors.Is(err, ErrAmbiguousRun) {
		t.Errorf("GetRun(3f2) error = %v, want ErrAmbiguousRun", err)
	}

	_, err = db.GetRun(ctx, "ffff")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun(missing) error = %v, want ErrRunNotFound", err)
	}
}

func TestRecordRunDuplicateIDRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	run := sampleRun("dup", time.Now())

	if err := db.RecordRun(ctx, run, []RunAction{{Type: "fetch", Path: "a", Kind: "file", Status: ActionOK}}); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if err := db.RecordRun(ctx, run, []RunAction{{Type: "fetch", Path: "b", Kind: "file", Status: ActionOK}}); err == nil {
		t.Fatal("expected duplicate run id to fail")
	}

	actions, err := db.ListRunActions(ctx, "dup")
	if err != nil {
		t.Fatalf("ListRunActions() error = %v", err)
	}
	if len(actions) != 1 || actions[0].Path != "a" {
		t.Errorf("actions = %+v, want only the first run's", actions)
	}
}

func TestOpenReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.RecordRun(context.Background(), sampleRun("keep", time.Now()), nil); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	_ = db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()
	if _, err := db.GetRun(context.Background(), "keep"); err != nil {
		t.Errorf("GetRun() after reopen error = %v", err)
	}
}
