package backend

import (
	"context"
	"fmt"

	"gestornet/internal/log"
	"gestornet/internal/sheets"
	gsheet "gestornet/internal/sheets/google"
	sheetsmem "gestornet/internal/sheets/memory"
	"gestornet/internal/storage"
	"gestornet/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (storage.Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil

	case MemoryBackend:
		if config.SeedDir == "" {
			f.logger.InfoContext(ctx, "Initialized memory backend")
			return memory.New(), nil
		}
		store, err := memory.NewFromFiles(config.SeedDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load seed files: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized memory backend", "seed_dir", config.SeedDir)
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (sheets.LedgerMirror, error) {
	if err := config.ValidateMirror(); err != nil {
		return nil, err
	}

	switch config.Mirror {
	case SheetsMirror:
		cli, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			SheetName:          config.LedgerSheetName,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
			Location:           config.Location,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		if err := cli.EnsureHeader(ctx); err != nil {
			return nil, fmt.Errorf("prepare ledger sheet: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "sheet", config.LedgerSheetName)
		return cli, nil

	case MemoryMirror:
		f.logger.InfoContext(ctx, "Initialized memory mirror")
		return sheetsmem.New(), nil

	default:
		return nil, fmt.Errorf("unsupported mirror type: %s", config.Mirror)
	}
}
