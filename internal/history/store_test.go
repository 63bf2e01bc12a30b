package history_test

import (
	"context"
	"errors"
	"testing"

	"repack/internal/history"
	"repack/internal/testsupport"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBeginAndFinishRun(t *testing.T) {
	store := openStore(t)

	run, err := store.Begin(context.Background(), "/data/set", "")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if run.ID == "" || run.Status != history.StatusRunning {
		t.Fatalf("unexpected run: %+v", run)
	}

	outcome := history.Outcome{Deleted: 2, AlreadyAbsent: 1, Renamed: 3, Remaining: 4}
	if err := store.Finish(context.Background(), run, outcome, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	runs, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	got := runs[0]
	if got.Status != history.StatusCompleted || got.Deleted != 2 || got.Remaining != 4 {
		t.Fatalf("unexpected journaled run: %+v", got)
	}
	if got.FinishedAt == nil {
		t.Fatal("finished_at not recorded")
	}
}

func TestFinishRecordsFailure(t *testing.T) {
	store := openStore(t)

	run, err := store.Begin(context.Background(), "/data/set", "/data/out")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Finish(context.Background(), run, history.Outcome{}, errors.New("rename failed")); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	runs, err := store.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if runs[0].Status != history.StatusFailed || runs[0].ErrorMessage != "rename failed" {
		t.Fatalf("failure not journaled: %+v", runs[0])
	}
	if runs[0].TargetPath != "/data/out" {
		t.Fatalf("target path not journaled: %+v", runs[0])
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	store := openStore(t)

	for _, path := range []string{"/a", "/b", "/c"} {
		if _, err := store.Begin(context.Background(), path, ""); err != nil {
			t.Fatalf("Begin %s: %v", path, err)
		}
	}
	runs, err := store.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("limit not applied: %d runs", len(runs))
	}
}
