package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAddAndListRecordings(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.AddRecording(ctx, Recording{
		Path:              "/data/dive_a.aris",
		SerialNumber:      1234,
		BeamCount:         48,
		SamplesPerChannel: 512,
		FrameCount:        240,
		FrameRate:         7.5,
		WindowStart:       0.7,
		WindowLength:      5.0,
		RecordedAt:        "2021-06-14 10:30:00",
	})
	if err != nil {
		t.Fatalf("add recording: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected assigned id")
	}

	if _, err := store.AddRecording(ctx, Recording{Path: "/data/dive_b.aris", BeamCount: 96}); err != nil {
		t.Fatalf("add second recording: %v", err)
	}

	recs, err := store.ListRecordings(ctx)
	if err != nil {
		t.Fatalf("list recordings: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d recordings, want 2", len(recs))
	}
	if recs[0].Path != "/data/dive_a.aris" || recs[0].FrameCount != 240 {
		t.Fatalf("unexpected first recording: %+v", recs[0])
	}
}

func TestAddRecordingUpsertsByPath(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.AddRecording(ctx, Recording{Path: "/data/dive.aris", FrameCount: 10})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := store.AddRecording(ctx, Recording{Path: "/data/dive.aris", FrameCount: 20})
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("upsert changed id: %q -> %q", first.ID, second.ID)
	}
	if second.FrameCount != 20 {
		t.Fatalf("frame count not refreshed: %d", second.FrameCount)
	}

	recs, err := store.ListRecordings(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d recordings, want 1", len(recs))
	}
}

func TestRecordAndListRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	old := Run{
		ID:            "run-old",
		StartedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Duration:      90 * time.Second,
		OutputDir:     "/out",
		Files:         3,
		Frames:        700,
		FramesDecoded: 698,
		FramesFailed:  2,
	}
	recent := Run{
		ID:        "run-new",
		StartedAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		OutputDir: "/out",
		Files:     1,
	}
	if err := store.RecordRun(ctx, old); err != nil {
		t.Fatalf("record old run: %v", err)
	}
	if err := store.RecordRun(ctx, recent); err != nil {
		t.Fatalf("record recent run: %v", err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-new" {
		t.Fatalf("runs not newest-first: %q", runs[0].ID)
	}
	if runs[1].Duration != 90*time.Second || runs[1].FramesFailed != 2 {
		t.Fatalf("run fields lost: %+v", runs[1])
	}
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.AddRecording(ctx, Recording{Path: "/data/dive.aris"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.RecordRun(ctx, Run{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	recs, err := store.ListRecordings(ctx)
	if err != nil {
		t.Fatalf("list recordings: %v", err)
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(recs) != 0 || len(runs) != 0 {
		t.Fatalf("clear left %d recordings, %d runs", len(recs), len(runs))
	}
}

func TestOpenReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.AddRecording(context.Background(), Recording{Path: "/data/dive.aris"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	recs, err := reopened.ListRecordings(context.Background())
	if err != nil {
		t.Fatalf("list after reopen: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d recordings after reopen, want 1", len(recs))
	}
}

func TestOpenRejectsSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if _, err := Open(path); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
