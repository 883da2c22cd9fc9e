package services

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"gestornet/internal/backup"
	"gestornet/internal/core"
	"gestornet/internal/storage"
	"gestornet/internal/storage/memory"
)

type backupFixture struct {
	service *BackupService
	auth    *AuthManager
	clients *ClientRegistry
	ledger  *TransactionLedger
	store   storage.Store
}

func newBackupFixture(t *testing.T, store storage.Store) backupFixture {
	t.Helper()
	q := NewWriteQueue(store, nil, nil, nil, DefaultWriteQueueConfig())
	auth := NewAuthManager(q, newTestTokens(), nil)
	clients := NewClientRegistry(q, nil)
	ledger := NewTransactionLedger(q, time.UTC, nil)
	svc := NewBackupService(store, q, auth, clients, ledger, nil)
	svc.now = fixedClock(testNow)
	return backupFixture{service: svc, auth: auth, clients: clients, ledger: ledger, store: store}
}

func seedBackupFixture(t *testing.T, f backupFixture) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.auth.RegisterManager(ctx, "Joao", "1234"); err != nil {
		t.Fatal(err)
	}
	c, err := f.clients.Add(ctx, sampleClient("Ana"))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.clients.MakePayment(ctx, c.ID, core.NewPayment{Amount: core.Kz(3500), Method: core.Cash}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Add(ctx, entrada(3500, testNow)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Add(ctx, saida(700, testNow)); err != nil {
		t.Fatal(err)
	}
}

func TestBackupService_RoundTrip(t *testing.T) {
	src := newBackupFixture(t, memory.New())
	seedBackupFixture(t, src)
	ctx := context.Background()

	data, err := backup.Encode(src.service.Export(ctx))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	dst := newBackupFixture(t, memory.New())
	if _, err := dst.clients.Add(ctx, sampleClient("Descartado")); err != nil {
		t.Fatal(err)
	}
	if _, err := dst.service.Import(ctx, data); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if !reflect.DeepEqual(sortedManagers(dst.auth.Managers()), sortedManagers(src.auth.Managers())) {
		t.Errorf("managers differ:\n got %+v\nwant %+v", dst.auth.Managers(), src.auth.Managers())
	}
	if !sameClients(dst.clients.All(), src.clients.All()) {
		t.Errorf("clients differ:\n got %+v\nwant %+v", dst.clients.All(), src.clients.All())
	}
	if !sameTransactions(dst.ledger.All(), src.ledger.All()) {
		t.Errorf("transactions differ:\n got %+v\nwant %+v", dst.ledger.All(), src.ledger.All())
	}

	// the store holds the restored state, not the discarded client
	reloaded := NewClientRegistry(nil, nil)
	if err := reloaded.Load(ctx, dst.store); err != nil {
		t.Fatal(err)
	}
	if !sameClients(reloaded.All(), src.clients.All()) {
		t.Errorf("stored clients differ: %+v", reloaded.All())
	}
}

func TestBackupService_ImportMissingArrayWritesNothing(t *testing.T) {
	f := newBackupFixture(t, memory.New())
	seedBackupFixture(t, f)
	ctx := context.Background()
	before := recordIDs(t, f.store, storage.Clients)

	_, err := f.service.Import(ctx, []byte(`{"version":1,"managers":[],"clients":[]}`))
	if !errors.Is(err, backup.ErrInvalidBackup) {
		t.Fatalf("Import() error = %v, want ErrInvalidBackup", err)
	}
	if after := recordIDs(t, f.store, storage.Clients); !equalStrings(before, after) {
		t.Errorf("store changed: %v -> %v", before, after)
	}
	if len(f.clients.All()) != 1 {
		t.Error("in-memory clients changed")
	}
}

func TestExportStore(t *testing.T) {
	f := newBackupFixture(t, memory.New())
	seedBackupFixture(t, f)

	doc, err := ExportStore(context.Background(), f.store, testNow)
	if err != nil {
		t.Fatalf("ExportStore() error = %v", err)
	}
	if len(doc.Managers) != 1 || len(doc.Clients) != 1 || len(doc.Transactions) != 2 {
		t.Errorf("doc = %d managers, %d clients, %d transactions", len(doc.Managers), len(doc.Clients), len(doc.Transactions))
	}
	if doc.Version != backup.Version || !doc.ExportedAt.Equal(testNow) {
		t.Errorf("doc header = %d %v", doc.Version, doc.ExportedAt)
	}
}

func sortedManagers(ms []core.Manager) []core.Manager {
	out := append([]core.Manager(nil), ms...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sameClients(a, b []core.Client) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Code != b[i].Code || a[i].Debt != b[i].Debt ||
			!a[i].ContractDate.Equal(b[i].ContractDate) || len(a[i].Payments) != len(b[i].Payments) {
			return false
		}
		for j := range a[i].Payments {
			pa, pb := a[i].Payments[j], b[i].Payments[j]
			if pa.ID != pb.ID || pa.Amount != pb.Amount || !pa.Date.Equal(pb.Date) {
				return false
			}
		}
	}
	return true
}

func sameTransactions(a, b []core.Transaction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.Type != y.Type || x.Category != y.Category || x.Amount != y.Amount ||
			x.Description != y.Description || x.Method != y.Method || !x.Date.Equal(y.Date) {
			return false
		}
	}
	return true
}
