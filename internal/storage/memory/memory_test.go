package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gestornet/internal/storage"
)

func TestStorePutGetRemove(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Put(ctx, storage.Clients, storage.Record{ID: "1", Data: []byte(`{"id":"1"}`)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, storage.Clients, storage.Record{ID: "2", Data: []byte(`{"id":"2"}`)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, storage.Clients, storage.Record{ID: "1", Data: []byte(`{"id":"1","v":2}`)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	recs, err := s.GetAll(ctx, storage.Clients)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "1" || string(recs[0].Data) != `{"id":"1","v":2}` {
		t.Fatalf("unexpected records %+v", recs)
	}

	if err := s.Remove(ctx, storage.Clients, "missing"); err != nil {
		t.Fatalf("remove missing must be a no-op: %v", err)
	}
	if err := s.Remove(ctx, storage.Clients, "1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	recs, _ = s.GetAll(ctx, storage.Clients)
	if len(recs) != 1 || recs[0].ID != "2" {
		t.Fatalf("unexpected records after remove %+v", recs)
	}
}

func TestStoreUnknownCollection(t *testing.T) {
	s := New()
	if _, err := s.GetAll(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error")
	}
	err := s.Restore(context.Background(), map[storage.Collection][]storage.Record{
		storage.Clients: {{ID: "1"}},
		"nope":          {{ID: "2"}},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	recs, _ := s.GetAll(context.Background(), storage.Clients)
	if len(recs) != 0 {
		t.Fatalf("failed restore must not write anything")
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	seed := `[{"id":"1","code":"F1","name":"Francisco Zinova"},{"id":"5","code":"A1","name":"Ana Beatriz"}]`
	if err := os.WriteFile(filepath.Join(dir, "clients.json"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("new from files: %v", err)
	}
	recs, _ := s.GetAll(context.Background(), storage.Clients)
	if len(recs) != 2 || recs[1].ID != "5" {
		t.Fatalf("unexpected seed %+v", recs)
	}
	managers, _ := s.GetAll(context.Background(), storage.Managers)
	if len(managers) != 0 {
		t.Fatalf("expected no managers")
	}
}

func TestNewFromFilesRejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "managers.json"), []byte(`[{"name":"x"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatalf("expected error")
	}
}
