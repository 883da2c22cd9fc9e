package adapters

import (
	"context"

	"gestornet/internal/amqp"
	"gestornet/internal/core"
	"gestornet/internal/log"
	"gestornet/internal/services"
	"gestornet/internal/storage"
)

// Publisher sends ledger events to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerEventNotifier turns durable transaction writes into ledger events.
// Writes to other collections are ignored. Publish failures are logged and
// never reach the writer.
type LedgerEventNotifier struct {
	publisher Publisher
	logger    *log.Logger
}

var _ services.WriteNotifier = (*LedgerEventNotifier)(nil)

func NewLedgerEventNotifier(p Publisher, logger *log.Logger) *LedgerEventNotifier {
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerEventNotifier{publisher: p, logger: logger.WithComponent(log.ComponentAMQP)}
}

func (n *LedgerEventNotifier) Notify(ctx context.Context, c storage.Collection, op services.WriteOp, rec storage.Record) {
	if c != storage.Transactions {
		return
	}

	var ev *amqp.LedgerEvent
	switch op {
	case services.OpPut:
		txs, err := storage.DecodeAll[core.Transaction]([]storage.Record{rec})
		if err != nil {
			n.logger.ErrorContext(ctx, "Failed to decode transaction for event",
				log.FieldRecordID, rec.ID,
				log.FieldError, err)
			return
		}
		ev = amqp.NewTransactionRecorded(txs[0])
	case services.OpRemove:
		ev = amqp.NewTransactionRemoved(rec.ID)
	default:
		return
	}

	if err := n.publisher.Publish(ctx, ev); err != nil {
		fields := log.NewFields().
			WithRecord(string(c), rec.ID).
			WithErrorType(log.ErrorTypeNetwork).
			WithError(err)
		n.logger.WarnContext(ctx, "Failed to publish ledger event", fields.ToSlice()...)
	}
}

// StoreLedger reads the transaction collection straight from a store.
type StoreLedger struct {
	store storage.Store
}

func NewStoreLedger(s storage.Store) *StoreLedger {
	return &StoreLedger{store: s}
}

func (l *StoreLedger) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return storage.Load[core.Transaction](ctx, l.store, storage.Transactions)
}
