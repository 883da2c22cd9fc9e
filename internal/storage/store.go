package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Collection names a group of records, one per entity kind.
type Collection string

const (
	Managers     Collection = "managers"
	Clients      Collection = "clients"
	Transactions Collection = "transactions"
	BossConfig   Collection = "bossConfig"
)

// Collections lists every known collection.
func Collections() []Collection {
	return []Collection{Managers, Clients, Transactions, BossConfig}
}

func (c Collection) Valid() bool {
	switch c {
	case Managers, Clients, Transactions, BossConfig:
		return true
	}
	return false
}

var ErrUnknownCollection = errors.New("unknown collection")

// Record is one stored entity: its id and its JSON document.
type Record struct {
	ID   string
	Data []byte
}

// Store is the durable key-value store behind the in-memory registries.
// Records are returned in insertion order.
type Store interface {
	GetAll(ctx context.Context, c Collection) ([]Record, error)
	// Put inserts or replaces the record with the same id.
	Put(ctx context.Context, c Collection, rec Record) error
	// Remove deletes by id; a missing id is not an error.
	Remove(ctx context.Context, c Collection, id string) error
	// ReplaceAll clears the collection and inserts recs, atomically.
	ReplaceAll(ctx context.Context, c Collection, recs []Record) error
	// Restore replaces several collections in one atomic step. Either every
	// collection in snapshot is replaced or none is.
	Restore(ctx context.Context, snapshot map[Collection][]Record) error
	Ping(ctx context.Context) error
	Close() error
}

// Encode marshals v into a record with the given id.
func Encode(id string, v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("encode record %s: %w", id, err)
	}
	return Record{ID: id, Data: data}, nil
}

// EncodeAll marshals items, taking each id from idOf.
func EncodeAll[T any](items []T, idOf func(T) string) ([]Record, error) {
	recs := make([]Record, 0, len(items))
	for _, it := range items {
		rec, err := Encode(idOf(it), it)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// DecodeAll unmarshals every record into T.
func DecodeAll[T any](recs []Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		var v T
		if err := json.Unmarshal(rec.Data, &v); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", rec.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Load reads and decodes a whole collection.
func Load[T any](ctx context.Context, s Store, c Collection) ([]T, error) {
	recs, err := s.GetAll(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("get all %s: %w", c, err)
	}
	return DecodeAll[T](recs)
}

func checkCollection(c Collection) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	return nil
}
