package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"gestornet/internal/backup"
	"gestornet/internal/core"
	"gestornet/internal/log"
	"gestornet/internal/storage"
)

// BackupService exports the working state and restores it from a backup
// document.
type BackupService struct {
	store   storage.Store
	writes  Flusher
	auth    *AuthManager
	clients *ClientRegistry
	ledger  *TransactionLedger
	logger  *log.Logger
	now     func() time.Time
}

func NewBackupService(store storage.Store, writes Flusher, auth *AuthManager, clients *ClientRegistry, ledger *TransactionLedger, logger *log.Logger) *BackupService {
	if logger == nil {
		logger = log.Discard()
	}
	return &BackupService{
		store:   store,
		writes:  writes,
		auth:    auth,
		clients: clients,
		ledger:  ledger,
		logger:  logger.WithComponent(log.ComponentBackup),
		now:     time.Now,
	}
}

// Export builds a document from the in-memory collections.
func (s *BackupService) Export(ctx context.Context) backup.Document {
	doc := backup.New(s.auth.Managers(), s.clients.All(), s.ledger.snapshot(), s.now())
	s.logger.InfoContext(ctx, "Backup exported",
		log.FieldOperation, log.OpExport,
		"managers", len(doc.Managers),
		"clients", len(doc.Clients),
		"transactions", len(doc.Transactions))
	return doc
}

// Import replaces managers, clients and transactions with the document's
// content. Pending writes are flushed first and the three collections are
// restored in one store call, so a failed import leaves the store untouched.
func (s *BackupService) Import(ctx context.Context, data []byte) (backup.Document, error) {
	doc, err := backup.Decode(data)
	if err != nil {
		return backup.Document{}, err
	}

	snapshot, err := documentRecords(doc)
	if err != nil {
		return backup.Document{}, err
	}

	if s.writes != nil {
		if err := s.writes.Flush(ctx); err != nil {
			return backup.Document{}, fmt.Errorf("flush pending writes: %w", err)
		}
	}
	if err := s.store.Restore(ctx, snapshot); err != nil {
		s.logger.ErrorContext(ctx, "Backup restore failed",
			log.FieldOperation, log.OpRestore,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		return backup.Document{}, fmt.Errorf("restore backup: %w", err)
	}

	s.auth.Replace(doc.Managers)
	s.clients.Replace(doc.Clients)
	s.ledger.Replace(doc.Transactions)

	s.logger.InfoContext(ctx, "Backup restored",
		log.FieldOperation, log.OpRestore,
		"managers", len(doc.Managers),
		"clients", len(doc.Clients),
		"transactions", len(doc.Transactions))
	return doc, nil
}

// ExportStore builds a document straight from a store, loading the three
// collections concurrently.
func ExportStore(ctx context.Context, s storage.Store, at time.Time) (backup.Document, error) {
	var (
		managers []core.Manager
		clients  []core.Client
		txs      []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		managers, err = storage.Load[core.Manager](gctx, s, storage.Managers)
		return err
	})
	g.Go(func() (err error) {
		clients, err = storage.Load[core.Client](gctx, s, storage.Clients)
		return err
	})
	g.Go(func() (err error) {
		txs, err = storage.Load[core.Transaction](gctx, s, storage.Transactions)
		return err
	})
	if err := g.Wait(); err != nil {
		return backup.Document{}, fmt.Errorf("export store: %w", err)
	}
	return backup.New(managers, clients, txs, at), nil
}

func documentRecords(doc backup.Document) (map[storage.Collection][]storage.Record, error) {
	managers, err := storage.EncodeAll(doc.Managers, func(m core.Manager) string { return m.ID })
	if err != nil {
		return nil, fmt.Errorf("encode managers: %w", err)
	}
	clients, err := storage.EncodeAll(doc.Clients, func(c core.Client) string { return c.ID })
	if err != nil {
		return nil, fmt.Errorf("encode clients: %w", err)
	}
	txs, err := storage.EncodeAll(doc.Transactions, func(t core.Transaction) string { return t.ID })
	if err != nil {
		return nil, fmt.Errorf("encode transactions: %w", err)
	}
	return map[storage.Collection][]storage.Record{
		storage.Managers:     managers,
		storage.Clients:      clients,
		storage.Transactions: txs,
	}, nil
}
