// Package backup encodes and decodes the portable JSON export of managers,
// clients and transactions.
package backup

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"gestornet/internal/core"
)

// Version is the only document version written and accepted.
const Version = 1

var ErrInvalidBackup = errors.New("invalid backup document")

// Document is the backup file layout. The boss account is never exported.
type Document struct {
	Version      int                `json:"version"`
	ExportedAt   time.Time          `json:"exportedAt"`
	Managers     []core.Manager     `json:"managers"`
	Clients      []core.Client      `json:"clients"`
	Transactions []core.Transaction `json:"transactions"`
}

// wireDocument distinguishes a missing array from an empty one.
type wireDocument struct {
	Version      int                 `json:"version"`
	ExportedAt   time.Time           `json:"exportedAt"`
	Managers     *[]core.Manager     `json:"managers"`
	Clients      *[]core.Client      `json:"clients"`
	Transactions *[]core.Transaction `json:"transactions"`
}

// New builds a document, normalizing nil slices so they encode as [].
func New(managers []core.Manager, clients []core.Client, txs []core.Transaction, exportedAt time.Time) Document {
	if managers == nil {
		managers = []core.Manager{}
	}
	if clients == nil {
		clients = []core.Client{}
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	for i := range clients {
		if clients[i].Payments == nil {
			clients[i].Payments = []core.Payment{}
		}
	}
	return Document{
		Version:      Version,
		ExportedAt:   exportedAt.UTC(),
		Managers:     managers,
		Clients:      clients,
		Transactions: txs,
	}
}

// Encode renders d as indented JSON.
func Encode(d Document) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

// Decode parses a backup and requires the three arrays to be present.
func Decode(data []byte) (Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	var missing []string
	if w.Managers == nil {
		missing = append(missing, "managers")
	}
	if w.Clients == nil {
		missing = append(missing, "clients")
	}
	if w.Transactions == nil {
		missing = append(missing, "transactions")
	}
	if len(missing) > 0 {
		return Document{}, fmt.Errorf("%w: missing %v", ErrInvalidBackup, missing)
	}
	if w.Version != 0 && w.Version != Version {
		return Document{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, w.Version)
	}
	return New(*w.Managers, *w.Clients, *w.Transactions, w.ExportedAt), nil
}

// FileName is the download name for a backup taken at t.
func FileName(t time.Time) string {
	return "gestornet-backup-" + t.Format("2006-01-02") + ".json"
}
