package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gestornet/internal/core"
	"gestornet/internal/storage"
)

func newTestLedger(t *testing.T) (*TransactionLedger, storage.Store) {
	t.Helper()
	q, store := newTestQueue(t)
	l := NewTransactionLedger(q, time.UTC, nil)
	l.now = fixedClock(testNow)
	l.newID = sequentialIDs("tx")
	return l, store
}

func entrada(amount int64, at time.Time) core.NewTransaction {
	return core.NewTransaction{
		Type:        core.Entrada,
		Category:    core.Pagamento,
		Description: "Pagamento mensalidade",
		Amount:      core.Kz(amount),
		Date:        at,
		Method:      core.Cash,
	}
}

func saida(amount int64, at time.Time) core.NewTransaction {
	return core.NewTransaction{
		Type:        core.Saida,
		Category:    core.Alimentacao,
		Description: "Almoço",
		Amount:      core.Kz(amount),
		Date:        at,
	}
}

func TestTransactionLedger_AddValidation(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   core.NewTransaction
		want error
	}{
		{"zero amount", entrada(0, testNow), core.ErrInvalidAmount},
		{"negative amount", entrada(-5, testNow), core.ErrInvalidAmount},
		{"empty description", func() core.NewTransaction { tx := entrada(10, testNow); tx.Description = " "; return tx }(), core.ErrEmptyDescription},
		{"unknown category", func() core.NewTransaction { tx := entrada(10, testNow); tx.Category = "luz"; return tx }(), core.ErrInvalidCategory},
		{"unknown type", func() core.NewTransaction { tx := entrada(10, testNow); tx.Type = "x"; return tx }(), core.ErrInvalidTransactionType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.Add(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("Add() error = %v, want %v", err, tt.want)
			}
		})
	}
	if len(l.All()) != 0 || len(recordIDs(t, store, storage.Transactions)) != 0 {
		t.Error("rejected transactions were recorded")
	}
}

func TestTransactionLedger_AddDefaults(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	in := saida(1200, time.Time{})
	in.Method = core.Transfer
	tx, err := l.Add(ctx, in)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if tx.ID != "tx-1" {
		t.Errorf("ID = %q", tx.ID)
	}
	if !tx.Date.Equal(testNow) {
		t.Errorf("Date = %v, want now", tx.Date)
	}
	if tx.Method != "" {
		t.Errorf("saida kept method %q", tx.Method)
	}
	if ids := recordIDs(t, store, storage.Transactions); len(ids) != 1 || ids[0] != "tx-1" {
		t.Errorf("stored ids = %v", ids)
	}
}

func TestTransactionLedger_ReportForDay(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	l.Add(ctx, entrada(3500, day.Add(8*time.Hour)))
	l.Add(ctx, entrada(1750, day.Add(23*time.Hour+59*time.Minute)))
	l.Add(ctx, saida(500, day.Add(12*time.Hour)))
	// previous and next day
	l.Add(ctx, entrada(9999, day.Add(-time.Minute)))
	l.Add(ctx, saida(9999, day.Add(24*time.Hour)))

	r := l.ReportForDay(day.Add(15 * time.Hour))
	if len(r.Transactions) != 3 {
		t.Fatalf("report has %d transactions, want 3", len(r.Transactions))
	}
	if r.TotalEntradas != core.Kz(5250) || r.TotalSaidas != core.Kz(500) {
		t.Errorf("totals = %v / %v", r.TotalEntradas, r.TotalSaidas)
	}
	if r.Balance != r.TotalEntradas.Sub(r.TotalSaidas) {
		t.Errorf("Balance = %v, want entradas - saidas", r.Balance)
	}
	if !r.Date.Equal(day) {
		t.Errorf("Date = %v, want %v", r.Date, day)
	}
}

func TestTransactionLedger_ReportUsesLedgerLocation(t *testing.T) {
	luanda := time.FixedZone("WAT", 3600)
	l := NewTransactionLedger(nil, luanda, nil)
	ctx := context.Background()

	// 23:30 UTC on the 6th is 00:30 on the 7th in Luanda
	l.Add(ctx, entrada(100, time.Date(2024, 3, 6, 23, 30, 0, 0, time.UTC)))

	r := l.ReportForDay(time.Date(2024, 3, 7, 12, 0, 0, 0, luanda))
	if len(r.Transactions) != 1 {
		t.Errorf("report has %d transactions, want 1", len(r.Transactions))
	}
}

func TestTransactionLedger_TodayReportReflectsMutations(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	if r := l.TodayReport(); len(r.Transactions) != 0 || !r.Balance.IsZero() {
		t.Errorf("empty ledger report = %+v", r)
	}

	tx, _ := l.Add(ctx, entrada(3500, testNow))
	if r := l.TodayReport(); r.Balance != core.Kz(3500) {
		t.Errorf("Balance after add = %v, want 3500", r.Balance)
	}

	l.Remove(ctx, tx.ID)
	if r := l.TodayReport(); !r.Balance.IsZero() {
		t.Errorf("Balance after remove = %v, want 0", r.Balance)
	}
}

func TestTransactionLedger_TotalsAndOrder(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	l.Add(ctx, entrada(3500, testNow.AddDate(0, 0, -10)))
	l.Add(ctx, saida(1000, testNow))
	l.Add(ctx, entrada(500, testNow.AddDate(0, 0, -1)))

	totals := l.Totals()
	if totals.TotalEntradas != core.Kz(4000) || totals.TotalSaidas != core.Kz(1000) || totals.Balance != core.Kz(3000) {
		t.Errorf("Totals() = %+v", totals)
	}

	all := l.All()
	for i := 1; i < len(all); i++ {
		if all[i].Date.After(all[i-1].Date) {
			t.Fatalf("All() not newest first: %v before %v", all[i-1].Date, all[i].Date)
		}
	}
}

func TestTransactionLedger_Remove(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	tx, _ := l.Add(ctx, entrada(3500, testNow))

	if !l.Remove(ctx, tx.ID) {
		t.Fatal("Remove() = false")
	}
	if l.Remove(ctx, tx.ID) {
		t.Error("second Remove() = true")
	}
	if _, ok := l.Get(tx.ID); ok {
		t.Error("Get() found removed transaction")
	}
	if ids := recordIDs(t, store, storage.Transactions); len(ids) != 0 {
		t.Errorf("stored ids = %v", ids)
	}
}
