package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gestornet/internal/core"
	"gestornet/internal/log"
	"gestornet/internal/storage"
)

// TransactionLedger owns the working copy of the transaction collection.
// Days are computed in loc.
type TransactionLedger struct {
	mu  sync.Mutex
	txs []core.Transaction

	persist Persister
	loc     *time.Location
	logger  *log.Logger
	now     func() time.Time
	newID   func() string
}

func NewTransactionLedger(p Persister, loc *time.Location, logger *log.Logger) *TransactionLedger {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionLedger{
		persist: p,
		loc:     loc,
		logger:  logger.WithComponent(log.ComponentLedger),
		now:     time.Now,
		newID:   newID,
	}
}

func (l *TransactionLedger) Location() *time.Location { return l.loc }

func (l *TransactionLedger) Load(ctx context.Context, s storage.Store) error {
	txs, err := storage.Load[core.Transaction](ctx, s, storage.Transactions)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	l.Replace(txs)
	l.logger.InfoContext(ctx, "Transactions loaded", "count", len(txs))
	return nil
}

func (l *TransactionLedger) Replace(txs []core.Transaction) {
	cp := make([]core.Transaction, len(txs))
	copy(cp, txs)
	l.mu.Lock()
	l.txs = cp
	l.mu.Unlock()
}

// Add validates and records a transaction. A zero date means now; saida
// entries never carry a payment method.
func (l *TransactionLedger) Add(ctx context.Context, in core.NewTransaction) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:          l.newID(),
		Type:        in.Type,
		Category:    in.Category,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Date:        in.Date,
		Method:      in.Method,
		ClientID:    in.ClientID,
		ClientName:  in.ClientName,
		ManagerName: in.ManagerName,
	}
	if tx.Date.IsZero() {
		tx.Date = l.now()
	}
	if tx.Type == core.Saida {
		tx.Method = ""
	}

	l.mu.Lock()
	l.txs = append(l.txs, tx)
	persist(ctx, l.persist, storage.Transactions, tx.ID, tx)
	l.mu.Unlock()

	fields := log.NewFields().WithTransaction(string(tx.Type), string(tx.Category), string(tx.Method), tx.Amount.Cents)
	if tx.ManagerName != "" {
		fields = fields.WithManager(tx.ManagerName)
	}
	l.logger.InfoContext(ctx, "Transaction recorded", fields.ToSlice()...)
	return tx, nil
}

// Remove deletes a transaction; unknown ids are ignored.
func (l *TransactionLedger) Remove(ctx context.Context, id string) bool {
	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return false
	}
	l.txs = append(l.txs[:i], l.txs[i+1:]...)
	forget(ctx, l.persist, storage.Transactions, id)
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "Transaction removed", log.FieldRecordID, id)
	return true
}

func (l *TransactionLedger) Get(id string) (core.Transaction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOf(id); i >= 0 {
		return l.txs[i], true
	}
	return core.Transaction{}, false
}

// All lists transactions newest first.
func (l *TransactionLedger) All() []core.Transaction {
	out := l.snapshot()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// ReportForDay summarises the transactions dated on day's calendar day.
func (l *TransactionLedger) ReportForDay(day time.Time) core.DailyReport {
	return core.BuildDailyReport(day.In(l.loc), l.snapshot())
}

// TodayReport is recomputed on every call.
func (l *TransactionLedger) TodayReport() core.DailyReport {
	return l.ReportForDay(l.now())
}

// Totals covers the whole ledger regardless of date.
func (l *TransactionLedger) Totals() core.LedgerTotals {
	return core.Totals(l.snapshot())
}

func (l *TransactionLedger) snapshot() []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Transaction, len(l.txs))
	copy(out, l.txs)
	return out
}

func (l *TransactionLedger) indexOf(id string) int {
	for i := range l.txs {
		if l.txs[i].ID == id {
			return i
		}
	}
	return -1
}
