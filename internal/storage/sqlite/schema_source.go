package sqlite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"event-validation-service/internal/schema"
	"event-validation-service/internal/schema/store"
)

type eventSchemaModel struct {
	Name      string    `gorm:"column:name;primaryKey"`
	Version   int       `gorm:"column:version;primaryKey"`
	Document  string    `gorm:"column:document;not null"`
	Checksum  string    `gorm:"column:checksum;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (eventSchemaModel) TableName() string {
	return "event_schemas"
}

// SchemaSource is a schema registry backed by the event_schemas table.
type SchemaSource struct {
	db *DB
}

var _ store.Registry = (*SchemaSource)(nil)

func NewSchemaSource(db *DB) *SchemaSource {
	return &SchemaSource{db: db}
}

func (s *SchemaSource) Fetch(ctx context.Context, key schema.Key) ([]byte, error) {
	var model eventSchemaModel
	err := s.db.ReadTX(ctx, func(tx *Tx) error {
		return tx.Where("name = ? AND version = ?", key.Name, key.Version).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("schema %s: %w", key, schema.ErrSchemaNotFound)
		}
		return nil, fmt.Errorf("fetch schema %s: %w", key, err)
	}
	return []byte(model.Document), nil
}

// Put registers raw under key. Putting the same document again is a no-op;
// a different document for a registered key fails with store.ErrSchemaExists.
func (s *SchemaSource) Put(ctx context.Context, key schema.Key, raw []byte) error {
	sum := checksum(raw)
	return s.db.WriteTX(ctx, func(tx *Tx) error {
		var existing eventSchemaModel
		err := tx.Where("name = ? AND version = ?", key.Name, key.Version).First(&existing).Error
		switch {
		case err == nil:
			if existing.Checksum == sum {
				return nil
			}
			return fmt.Errorf("schema %s: %w", key, store.ErrSchemaExists)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("load schema %s: %w", key, err)
		}

		model := eventSchemaModel{
			Name:      key.Name,
			Version:   key.Version,
			Document:  string(raw),
			Checksum:  sum,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert schema %s: %w", key, err)
		}
		return nil
	})
}

func (s *SchemaSource) List(ctx context.Context) ([]schema.Key, error) {
	var models []eventSchemaModel
	err := s.db.ReadTX(ctx, func(tx *Tx) error {
		return tx.Select("name", "version").Order("name, version").Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	keys := make([]schema.Key, len(models))
	for i, m := range models {
		keys[i] = schema.Key{Name: m.Name, Version: m.Version}
	}
	return keys, nil
}

func checksum(raw []byte) string {
	h := sha256.Sum256(raw)
	return hex.EncodeToString(h[:])
}
