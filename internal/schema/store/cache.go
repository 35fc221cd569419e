package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"event-validation-service/internal/observability/logging"
	"event-validation-service/internal/observability/metrics"
	"event-validation-service/internal/schema"
)

// Cache memoizes parsed documents per key. Concurrent misses for the same key
// share one fetch and parse. Entries are never evicted or replaced; a key that
// is not found is not cached, so a version registered later becomes visible.
type Cache struct {
	source  Source
	docs    sync.Map // schema.Key -> *schema.Document
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

var _ schema.Lookup = (*Cache)(nil)

// NewCache creates a cache in front of source.
func NewCache(source Source) *Cache {
	return &Cache{
		source:  source,
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithComponent("schema-cache"),
	}
}

// Get returns the document for key, loading it on first use.
func (c *Cache) Get(ctx context.Context, key schema.Key) (*schema.Document, error) {
	if doc, ok := c.docs.Load(key); ok {
		c.metrics.RecordCacheHit()
		return doc.(*schema.Document), nil
	}
	c.metrics.RecordCacheMiss()

	v, err, shared := c.group.Do(key.String(), func() (any, error) {
		if doc, ok := c.docs.Load(key); ok {
			return doc, nil
		}
		start := time.Now()
		doc, err := c.load(ctx, key)
		c.metrics.RecordSchemaLoad(err, time.Since(start).Seconds())
		if err != nil {
			return nil, err
		}
		c.docs.Store(key, doc)
		c.logger.Debug().Str("schema", key.String()).Msg("schema loaded")
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug().Str("schema", key.String()).Msg("schema load shared with concurrent caller")
	}
	return v.(*schema.Document), nil
}

// Warm loads key if it is not cached yet. Not-found keys are not an error.
func (c *Cache) Warm(ctx context.Context, key schema.Key) error {
	if _, ok := c.docs.Load(key); ok {
		return nil
	}
	_, err := c.Get(ctx, key)
	if errors.Is(err, schema.ErrSchemaNotFound) {
		return nil
	}
	return err
}

// Cached reports whether key has been loaded.
func (c *Cache) Cached(key schema.Key) bool {
	_, ok := c.docs.Load(key)
	return ok
}

func (c *Cache) load(ctx context.Context, key schema.Key) (*schema.Document, error) {
	raw, err := c.source.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	doc, err := schema.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", key, err)
	}
	return doc, nil
}
