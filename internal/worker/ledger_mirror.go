package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gestornet/internal/amqp"
	"gestornet/internal/core"
	"gestornet/internal/log"
	"gestornet/internal/metrics"
	"gestornet/internal/sheets"
)

// TransactionSource lists the durable ledger.
type TransactionSource interface {
	Transactions(ctx context.Context) ([]core.Transaction, error)
}

// LedgerMirror copies ledger changes into a spreadsheet. Events keep the sheet
// current; a periodic reconcile appends anything the events missed.
type LedgerMirror struct {
	sheet    sheets.LedgerMirror
	source   TransactionSource
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *log.Logger

	// syncMu serializes event handling and reconciliation over known.
	syncMu sync.Mutex
	known  map[string]struct{}

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewLedgerMirror(sheet sheets.LedgerMirror, source TransactionSource, interval time.Duration, m *metrics.Metrics, logger *log.Logger) *LedgerMirror {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerMirror{
		sheet:    sheet,
		source:   source,
		interval: interval,
		metrics:  m,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent applies one ledger event to the sheet. Redelivered
// transaction.recorded events for rows already mirrored are skipped.
func (w *LedgerMirror) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()

	err := w.handle(ctx, ev)
	w.metrics.IncMirrorEvent(string(ev.Type), err)
	return err
}

func (w *LedgerMirror) handle(ctx context.Context, ev *amqp.LedgerEvent) error {
	if err := w.loadKnown(ctx); err != nil {
		return err
	}

	switch ev.Type {
	case amqp.EventTransactionRecorded:
		if ev.Transaction == nil {
			return fmt.Errorf("event %s for %s carries no transaction", ev.Type, ev.TransactionID)
		}
		if _, ok := w.known[ev.TransactionID]; ok {
			w.logger.DebugContext(ctx, "Transaction already mirrored", log.FieldRecordID, ev.TransactionID)
			return nil
		}
		return w.append(ctx, *ev.Transaction)

	case amqp.EventTransactionRemoved:
		if err := w.sheet.RemoveTransaction(ctx, ev.TransactionID); err != nil {
			return fmt.Errorf("remove transaction from sheet: %w", err)
		}
		delete(w.known, ev.TransactionID)
		w.logger.InfoContext(ctx, "Transaction removed from sheet", log.FieldRecordID, ev.TransactionID)
		return nil

	default:
		return fmt.Errorf("unknown ledger event type %q", ev.Type)
	}
}

func (w *LedgerMirror) append(ctx context.Context, tx core.Transaction) error {
	ref, err := w.sheet.AppendTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("append transaction to sheet: %w", err)
	}
	w.known[tx.ID] = struct{}{}

	fields := log.NewFields().
		WithRecord("transactions", tx.ID).
		WithTransaction(string(tx.Type), string(tx.Category), string(tx.Method), tx.Amount.Cents).
		WithOperation(log.OpAppend)
	fields[log.FieldSheetsRef] = ref
	w.logger.InfoContext(ctx, "Transaction mirrored", fields.ToSlice()...)
	return nil
}

// loadKnown reads the mirrored ids once; later calls reuse them.
func (w *LedgerMirror) loadKnown(ctx context.Context) error {
	if w.known != nil {
		return nil
	}
	return w.refreshKnown(ctx)
}

func (w *LedgerMirror) refreshKnown(ctx context.Context) error {
	rows, err := w.sheet.MirroredTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list mirrored transactions: %w", err)
	}
	known := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		known[r.ID] = struct{}{}
	}
	w.known = known
	return nil
}

// Reconcile appends every ledger transaction missing from the sheet, oldest
// first. Individual append failures are logged and retried on the next run.
func (w *LedgerMirror) Reconcile(ctx context.Context) (int, error) {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()

	if err := w.refreshKnown(ctx); err != nil {
		return 0, err
	}
	txs, err := w.source.Transactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })

	appended, failed := 0, 0
	for _, tx := range txs {
		if _, ok := w.known[tx.ID]; ok {
			continue
		}
		if err := w.append(ctx, tx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror transaction",
				log.FieldRecordID, tx.ID,
				log.FieldError, err)
			failed++
			continue
		}
		appended++
	}

	if appended > 0 || failed > 0 {
		w.logger.InfoContext(ctx, "Ledger reconcile completed",
			"total", len(txs),
			"appended", appended,
			"errors", failed)
	}
	return appended, nil
}

// Start reconciles once and then on every interval until Stop.
func (w *LedgerMirror) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("ledger mirror is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	go w.runLoop(ctx, w.stopCh, w.doneCh)

	w.logger.InfoContext(ctx, "Ledger mirror started", "reconcile_interval", w.interval)
	return nil
}

func (w *LedgerMirror) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		w.logger.InfoContext(ctx, "Ledger mirror stopped gracefully")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Ledger mirror stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

func (w *LedgerMirror) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *LedgerMirror) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.reconcile(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reconcile(ctx)
		}
	}
}

func (w *LedgerMirror) reconcile(ctx context.Context) {
	if _, err := w.Reconcile(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Ledger reconcile failed", log.FieldError, err)
	}
}
