package backend

import (
	"context"
	"time"

	"gestornet/internal/sheets"
	"gestornet/internal/storage"
)

// Factory builds the persistence store and the ledger mirror selected by config.
type Factory interface {
	// CreateStore opens the store; the caller closes it.
	CreateStore(ctx context.Context, config Config) (storage.Store, error)
	CreateMirror(ctx context.Context, config Config) (sheets.LedgerMirror, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific; optional JSON seed files
	SeedDir string

	Mirror MirrorType

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	LedgerSheetName          string
	Location                 *time.Location
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// MirrorType selects where ledger transactions are mirrored.
type MirrorType string

const (
	MemoryMirror MirrorType = "memory"
	SheetsMirror MirrorType = "sheets"
)

func (mt MirrorType) IsValid() bool {
	return mt == MemoryMirror || mt == SheetsMirror
}
