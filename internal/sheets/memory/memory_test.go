package memory

import (
	"context"
	"testing"

	"gestornet/internal/core"
)

func TestStore_AppendRemoveList(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		ref, err := s.AppendTransaction(ctx, core.Transaction{ID: id, Amount: core.Kz(int64(i + 1))})
		if err != nil {
			t.Fatalf("AppendTransaction(%s) error = %v", id, err)
		}
		if want := "mem:" + string(rune('1'+i)); ref != want {
			t.Errorf("ref = %q, want %q", ref, want)
		}
	}

	if err := s.RemoveTransaction(ctx, "b"); err != nil {
		t.Fatalf("RemoveTransaction() error = %v", err)
	}
	if err := s.RemoveTransaction(ctx, "missing"); err != nil {
		t.Fatalf("RemoveTransaction(missing) error = %v", err)
	}

	rows, err := s.MirroredTransactions(ctx)
	if err != nil {
		t.Fatalf("MirroredTransactions() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v, want 2", rows)
	}
	if rows[0].ID != "a" || rows[1].ID != "c" || rows[1].Row != 3 {
		t.Errorf("rows = %+v", rows)
	}
	if rows[1].Amount != core.Kz(3) {
		t.Errorf("rows[1].Amount = %v, want 3", rows[1].Amount)
	}
	if got := len(s.Transactions()); got != 2 {
		t.Errorf("Transactions() len = %d, want 2", got)
	}
}

func TestStore_AppendRequiresID(t *testing.T) {
	if _, err := New().AppendTransaction(context.Background(), core.Transaction{}); err == nil {
		t.Fatal("AppendTransaction() expected error for empty id")
	}
}
