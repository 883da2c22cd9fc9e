package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gestornet/internal/core"
	ports "gestornet/internal/sheets"
)

// Store is an in-process ledger mirror for development. Removed rows are
// blanked so later row numbers never shift, like the Sheets client.
type Store struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var _ ports.LedgerMirror = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// AppendTransaction stores tx and returns a synthetic row reference.
func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if strings.TrimSpace(tx.ID) == "" {
		return "", errors.New("transaction id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, tx)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) RemoveTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i] = core.Transaction{}
		}
	}
	return nil
}

func (s *Store) MirroredTransactions(_ context.Context) ([]ports.MirroredRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.MirroredRow, 0, len(s.rows))
	for i, tx := range s.rows {
		if tx.ID == "" {
			continue
		}
		out = append(out, ports.MirroredRow{Row: i + 1, ID: tx.ID, Amount: tx.Amount})
	}
	return out, nil
}

// Transactions returns the mirrored transactions in row order.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.rows))
	for _, tx := range s.rows {
		if tx.ID != "" {
			out = append(out, tx)
		}
	}
	return out
}
