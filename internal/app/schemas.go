package app

import (
	"context"
	"fmt"
	"io"

	"event-validation-service/internal/config"
	"event-validation-service/internal/schema/store"
	"event-validation-service/internal/storage/sqlite"
	"event-validation-service/migrations"
)

// Schemas is the configured schema backend. Registry is nil for read-only
// backends; Files is set only for the directory backend.
type Schemas struct {
	Source   store.Source
	Lister   store.Lister
	Registry store.Registry
	Files    *store.FileSource

	closer io.Closer
}

// OpenSchemas opens the backend selected by cfg.Source, running migrations
// for the sqlite registry.
func OpenSchemas(ctx context.Context, cfg config.SchemasConfig) (*Schemas, error) {
	switch cfg.Source {
	case config.SourceFiles:
		files := store.NewFileSource(cfg.Dir)
		return &Schemas{Source: files, Lister: files, Files: files}, nil

	case config.SourceSQLite:
		db, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open schema db: %w", err)
		}
		sqlDB, err := db.WriteSQLDB()
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := migrations.Up(ctx, sqlDB); err != nil {
			_ = db.Close()
			return nil, err
		}
		src := sqlite.NewSchemaSource(db)
		return &Schemas{Source: src, Lister: src, Registry: src, closer: db}, nil

	default:
		return nil, fmt.Errorf("unknown schema source %q", cfg.Source)
	}
}

// Close releases the backend.
func (s *Schemas) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
