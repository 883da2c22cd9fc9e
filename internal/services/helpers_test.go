package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"gestornet/internal/storage"
	"gestornet/internal/storage/memory"
)

// fixedClock returns a clock that always reports t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// sequentialIDs returns an id generator producing prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// newTestQueue returns a stopped queue over a fresh memory store, so every
// write is applied before the call returns.
func newTestQueue(t *testing.T) (*WriteQueue, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewWriteQueue(store, nil, nil, nil, DefaultWriteQueueConfig()), store
}

func recordIDs(t *testing.T, s storage.Store, c storage.Collection) []string {
	t.Helper()
	recs, err := s.GetAll(context.Background(), c)
	if err != nil {
		t.Fatalf("GetAll(%s) error = %v", c, err)
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

func newTestTokens() *SessionTokens {
	return NewSessionTokens("test-secret", time.Hour)
}
