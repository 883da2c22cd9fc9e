package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gestornet/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheet serves the subset of the Sheets values API the client uses.
type fakeSheet struct {
	mu     sync.Mutex
	rows   [][]any
	clears []string
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.rows = append(f.rows, vr.Values...)
		n := len(f.rows)
		fmt.Fprintf(w, `{"updates":{"updatedRange":"'Ledger'!A%d:I%d"}}`, n, n)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		rng := strings.TrimSuffix(path[strings.LastIndex(path, "/")+1:], ":clear")
		f.clears = append(f.clears, rng)
		if n, ok := rowNumber(rng); ok && n <= len(f.rows) {
			f.rows[n-1] = []any{}
		}
		fmt.Fprintf(w, `{"clearedRange":%q}`, rng)
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(f.rows) == 0 {
			f.rows = append(f.rows, nil)
		}
		f.rows[0] = vr.Values[0]
		fmt.Fprint(w, `{"updatedRange":"'Ledger'!A1:I1"}`)
	case r.Method == http.MethodGet:
		values := f.rows
		if strings.HasSuffix(path, "A1:I1") {
			values = nil
			if len(f.rows) > 0 && len(f.rows[0]) > 0 {
				values = f.rows[:1]
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"values": values})
	default:
		http.NotFound(w, r)
	}
}

func newFakeClient(t *testing.T) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewWithService(svc, Config{SpreadsheetID: "sheet-1", SheetName: "Ledger"}, nil), fake
}

func sampleTx(id string, kz int64) core.Transaction {
	return core.Transaction{
		ID:          id,
		Type:        core.Entrada,
		Category:    core.Pagamento,
		Description: "Pagamento mensalidade - Ana",
		Amount:      core.Kz(kz),
		Date:        time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC),
		Method:      core.Cash,
		ClientName:  "Ana",
		ManagerName: "Rita",
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{}
	ctx := context.Background()
	if _, err := c.AppendTransaction(ctx, sampleTx("tx-1", 1)); err == nil {
		t.Error("AppendTransaction() expected error without service")
	}
	if err := c.RemoveTransaction(ctx, "tx-1"); err == nil {
		t.Error("RemoveTransaction() expected error without service")
	}
	if _, err := c.MirroredTransactions(ctx); err == nil {
		t.Error("MirroredTransactions() expected error without service")
	}
	if err := c.EnsureHeader(ctx); err == nil {
		t.Error("EnsureHeader() expected error without service")
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Fatal("New() expected error without spreadsheet id")
	}
}

func TestClient_AppendAndList(t *testing.T) {
	c, _ := newFakeClient(t)
	ctx := context.Background()

	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader() error = %v", err)
	}
	// A second call finds the header and leaves it alone.
	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader() second call error = %v", err)
	}

	ref, err := c.AppendTransaction(ctx, sampleTx("tx-1", 3500))
	if err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}
	if ref != "'Ledger'!A2:I2" {
		t.Errorf("AppendTransaction() ref = %q", ref)
	}
	if _, err := c.AppendTransaction(ctx, sampleTx("tx-2", 5000)); err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}

	rows, err := c.MirroredTransactions(ctx)
	if err != nil {
		t.Fatalf("MirroredTransactions() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("MirroredTransactions() = %+v, want 2 rows", rows)
	}
	if rows[0].ID != "tx-1" || rows[0].Amount != core.Kz(3500) {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].ID != "tx-2" || rows[1].Row != 3 {
		t.Errorf("rows[1] = %+v", rows[1])
	}
}

func TestClient_AppendRequiresID(t *testing.T) {
	c, fake := newFakeClient(t)
	if _, err := c.AppendTransaction(context.Background(), sampleTx("", 10)); err == nil {
		t.Fatal("AppendTransaction() expected error for empty id")
	}
	if len(fake.rows) != 0 {
		t.Errorf("sheet has %d rows, want none", len(fake.rows))
	}
}

func TestClient_RemoveTransaction(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()

	for _, id := range []string{"tx-1", "tx-2", "tx-3"} {
		if _, err := c.AppendTransaction(ctx, sampleTx(id, 100)); err != nil {
			t.Fatalf("AppendTransaction(%s) error = %v", id, err)
		}
	}

	if err := c.RemoveTransaction(ctx, "tx-2"); err != nil {
		t.Fatalf("RemoveTransaction() error = %v", err)
	}
	if len(fake.clears) != 1 || !strings.HasSuffix(fake.clears[0], "A2:I2") {
		t.Errorf("clears = %v, want row 2 cleared", fake.clears)
	}

	rows, err := c.MirroredTransactions(ctx)
	if err != nil {
		t.Fatalf("MirroredTransactions() error = %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "tx-1" || rows[1].ID != "tx-3" || rows[1].Row != 3 {
		t.Errorf("rows after remove = %+v", rows)
	}

	// Unknown ids are a no-op.
	if err := c.RemoveTransaction(ctx, "missing"); err != nil {
		t.Errorf("RemoveTransaction(missing) error = %v", err)
	}
	if len(fake.clears) != 1 {
		t.Errorf("clears = %v, want no new clear", fake.clears)
	}
}
