package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps every collection in a single records table keyed by
// (collection, id), each row holding the entity as JSON.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection serializes writers and keeps transactions on the same handle
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) GetAll(ctx context.Context, c Collection) ([]Record, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, data FROM records WHERE collection = ? ORDER BY rowid`, string(c))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id   string
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c, err)
		}
		out = append(out, Record{ID: id, Data: []byte(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c, err)
	}
	return out, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, c Collection, rec Record) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	if err := putRecord(ctx, r.db, c, rec); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Record saved to SQLite", "collection", c, "id", rec.ID)
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, c Collection, id string) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND id = ?`, string(c), id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", c, id, err)
	}
	slog.DebugContext(ctx, "Record removed from SQLite", "collection", c, "id", id)
	return nil
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, c Collection, recs []Record) error {
	return r.Restore(ctx, map[Collection][]Record{c: recs})
}

func (r *SQLiteRepository) Restore(ctx context.Context, snapshot map[Collection][]Record) error {
	for c := range snapshot {
		if err := checkCollection(c); err != nil {
			return err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer tx.Rollback()

	total := 0
	for c, recs := range snapshot {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, string(c)); err != nil {
			return fmt.Errorf("clear %s: %w", c, err)
		}
		for _, rec := range recs {
			if err := putRecord(ctx, tx, c, rec); err != nil {
				return err
			}
		}
		total += len(recs)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}

	slog.InfoContext(ctx, "Collections replaced in SQLite",
		"collections", len(snapshot),
		"records", total)
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putRecord(ctx context.Context, db execer, c Collection, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("put %s: empty id", c)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO records (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(c), rec.ID, string(rec.Data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", c, rec.ID, err)
	}
	return nil
}
