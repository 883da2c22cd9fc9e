package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gestornet/internal/backup"
	"gestornet/internal/storage/memory"
)

func newTestSnapshotProcessor(t *testing.T, retain int) (*SnapshotProcessor, string) {
	t.Helper()
	dir := t.TempDir()
	f := newBackupFixture(t, memory.New())
	seedBackupFixture(t, f)

	p, err := NewSnapshotProcessor(f.store, SnapshotConfig{Dir: dir, Frequency: Daily, Retain: retain}, nil, nil)
	if err != nil {
		t.Fatalf("NewSnapshotProcessor() error = %v", err)
	}
	return p, dir
}

func TestSnapshotProcessor_SnapshotWritesDocument(t *testing.T) {
	p, dir := newTestSnapshotProcessor(t, 0)

	path, err := p.Snapshot(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("snapshot written to %s, want %s", path, dir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := backup.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(doc.Clients) != 1 || len(doc.Transactions) != 2 {
		t.Errorf("snapshot content = %d clients, %d transactions", len(doc.Clients), len(doc.Transactions))
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the snapshot", len(entries))
	}
}

func TestSnapshotProcessor_RunIfDue(t *testing.T) {
	p, _ := newTestSnapshotProcessor(t, 0)
	ctx := context.Background()

	if _, ran, err := p.RunIfDue(ctx, testNow); err != nil || !ran {
		t.Fatalf("first RunIfDue() = %v, %v", ran, err)
	}
	if _, ran, _ := p.RunIfDue(ctx, testNow.Add(2*time.Hour)); ran {
		t.Error("RunIfDue() ran twice on the same day")
	}
	if _, ran, _ := p.RunIfDue(ctx, testNow.Add(24*time.Hour)); !ran {
		t.Error("RunIfDue() did not run on the next day")
	}

	last, err := p.LastSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if !last.Equal(testNow.Add(24 * time.Hour)) {
		t.Errorf("LastSnapshot() = %v", last)
	}
}

func TestSnapshotProcessor_Prunes(t *testing.T) {
	p, dir := newTestSnapshotProcessor(t, 2)
	ctx := context.Background()

	// unrelated files are left alone
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if _, err := p.Snapshot(ctx, testNow.AddDate(0, 0, i)); err != nil {
			t.Fatalf("Snapshot(%d) error = %v", i, err)
		}
	}

	snaps, err := p.list()
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("kept %d snapshots, want 2", len(snaps))
	}
	if !snaps[0].at.Equal(testNow.AddDate(0, 0, 2)) || !snaps[1].at.Equal(testNow.AddDate(0, 0, 3)) {
		t.Errorf("kept %v and %v, want the two newest", snaps[0].at, snaps[1].at)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}

func TestSnapshotProcessor_StartStop(t *testing.T) {
	p, dir := newTestSnapshotProcessor(t, 0)
	p.now = fixedClock(testNow)
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if p.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}

	// the startup check ran before the loop exited
	if _, err := os.Stat(filepath.Join(dir, snapshotName(testNow))); err != nil {
		t.Errorf("startup snapshot missing: %v", err)
	}
}

func TestNewSnapshotProcessor_RejectsUnknownFrequency(t *testing.T) {
	if _, err := NewSnapshotProcessor(memory.New(), SnapshotConfig{Dir: t.TempDir(), Frequency: "hourly"}, nil, nil); err == nil {
		t.Error("expected error for unknown frequency")
	}
}
