package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"gestornet/internal/storage"
)

// Store keeps collections in process memory. Useful for development and tests.
type Store struct {
	mu   sync.Mutex
	cols map[storage.Collection][]storage.Record
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{cols: make(map[storage.Collection][]storage.Record)}
}

// NewFromFiles seeds each collection from <base>/<collection>.json when the
// file exists. Each file holds a JSON array of objects with an "id" field.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	for _, c := range storage.Collections() {
		path := filepath.Join(base, string(c)+".json")
		recs, err := readSeed(path)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", c, err)
		}
		if recs == nil {
			continue
		}
		s.cols[c] = recs
		slog.Info("Seeded memory collection", "collection", c, "records", len(recs))
	}
	return s, nil
}

func (s *Store) GetAll(_ context.Context, c storage.Collection) ([]storage.Record, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownCollection, c)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.cols[c]), nil
}

func (s *Store) Put(_ context.Context, c storage.Collection, rec storage.Record) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", storage.ErrUnknownCollection, c)
	}
	if rec.ID == "" {
		return fmt.Errorf("put %s: empty id", c)
	}
	rec = cloneRecord(rec)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.cols[c] {
		if existing.ID == rec.ID {
			s.cols[c][i] = rec
			return nil
		}
	}
	s.cols[c] = append(s.cols[c], rec)
	return nil
}

func (s *Store) Remove(_ context.Context, c storage.Collection, id string) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", storage.ErrUnknownCollection, c)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.cols[c]
	for i, existing := range recs {
		if existing.ID == id {
			s.cols[c] = append(recs[:i:i], recs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) ReplaceAll(ctx context.Context, c storage.Collection, recs []storage.Record) error {
	return s.Restore(ctx, map[storage.Collection][]storage.Record{c: recs})
}

func (s *Store) Restore(_ context.Context, snapshot map[storage.Collection][]storage.Record) error {
	next := make(map[storage.Collection][]storage.Record, len(snapshot))
	for c, recs := range snapshot {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", storage.ErrUnknownCollection, c)
		}
		next[c] = cloneRecords(recs)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c, recs := range next {
		s.cols[c] = recs
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func readSeed(path string) ([]storage.Record, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	recs := make([]storage.Record, 0, len(items))
	for i, raw := range items {
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &head); err != nil || head.ID == "" {
			return nil, fmt.Errorf("%s: item %d has no id", path, i)
		}
		recs = append(recs, storage.Record{ID: head.ID, Data: []byte(raw)})
	}
	return recs, nil
}

func cloneRecord(r storage.Record) storage.Record {
	return storage.Record{ID: r.ID, Data: append([]byte(nil), r.Data...)}
}

func cloneRecords(in []storage.Record) []storage.Record {
	out := make([]storage.Record, len(in))
	for i, r := range in {
		out[i] = cloneRecord(r)
	}
	return out
}
