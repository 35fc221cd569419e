// Package store loads schema documents from a backing source and keeps them
// in memory once parsed.
package store

import (
	"context"
	"errors"

	"event-validation-service/internal/schema"
)

// ErrSchemaExists is returned when a different document is already
// registered for a key. Registered versions are immutable.
var ErrSchemaExists = errors.New("schema already registered with a different document")

// Source returns the raw bytes of the schema document registered for key.
// Unknown keys yield an error wrapping schema.ErrSchemaNotFound.
type Source interface {
	Fetch(ctx context.Context, key schema.Key) ([]byte, error)
}

// Lister enumerates the keys a source can serve.
type Lister interface {
	List(ctx context.Context) ([]schema.Key, error)
}

// Registry is a source that accepts new schema versions.
type Registry interface {
	Source
	Lister
	Put(ctx context.Context, key schema.Key, raw []byte) error
}
