package sheets

import (
	"context"

	"gestornet/internal/core"
)

// MirroredRow is one ledger row already present in the spreadsheet.
type MirroredRow struct {
	Row    int
	ID     string
	Amount core.Money
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// LedgerRemover clears the row of a transaction. Unknown ids are not an error.
	LedgerRemover interface {
		RemoveTransaction(ctx context.Context, id string) error
	}

	// LedgerReader lists the transactions the spreadsheet already holds.
	LedgerReader interface {
		MirroredTransactions(ctx context.Context) ([]MirroredRow, error)
	}

	LedgerMirror interface {
		LedgerWriter
		LedgerRemover
		LedgerReader
	}
)
