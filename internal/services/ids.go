package services

import (
	"context"

	"github.com/google/uuid"

	"gestornet/internal/log"
	"gestornet/internal/storage"
)

// newID returns a time-ordered unique id.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// persist encodes v and hands it to p. Encoding failures are logged like
// any other persistence failure.
func persist(ctx context.Context, p Persister, c storage.Collection, id string, v any) {
	if p == nil {
		return
	}
	rec, err := storage.Encode(id, v)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to encode record",
			log.FieldCollection, c,
			log.FieldRecordID, id,
			log.FieldError, err)
		return
	}
	p.Put(ctx, c, rec)
}

func forget(ctx context.Context, p Persister, c storage.Collection, id string) {
	if p == nil {
		return
	}
	p.Remove(ctx, c, id)
}
