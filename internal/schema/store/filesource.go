package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"event-validation-service/internal/observability/logging"
	"event-validation-service/internal/observability/metrics"
	"event-validation-service/internal/schema"
)

// Extensions tried, in order, for a schema file.
var schemaExtensions = []string{".yaml", ".yml", ".json"}

// FileSource reads schema documents laid out as <dir>/<name>/<version>.yaml
// (.yml and .json are accepted too).
type FileSource struct {
	dir    string
	logger zerolog.Logger
}

var (
	_ Source = (*FileSource)(nil)
	_ Lister = (*FileSource)(nil)
)

func NewFileSource(dir string) *FileSource {
	return &FileSource{
		dir:    dir,
		logger: logging.WithComponent("schema-files"),
	}
}

// Dir returns the root directory.
func (s *FileSource) Dir() string {
	return s.dir
}

func (s *FileSource) Fetch(_ context.Context, key schema.Key) ([]byte, error) {
	if !validName(key.Name) {
		return nil, fmt.Errorf("schema %s: invalid name: %w", key, schema.ErrSchemaNotFound)
	}
	base := filepath.Join(s.dir, key.Name, strconv.Itoa(key.Version))
	for _, ext := range schemaExtensions {
		raw, err := os.ReadFile(base + ext)
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read schema %s: %w", key, err)
		}
	}
	return nil, fmt.Errorf("schema %s: %w", key, schema.ErrSchemaNotFound)
}

func (s *FileSource) List(_ context.Context) ([]schema.Key, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}

	var keys []schema.Key
	seen := make(map[schema.Key]struct{})
	for _, entry := range entries {
		if !entry.IsDir() || !validName(entry.Name()) {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("list schemas %s: %w", entry.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			key, ok := keyFromPath(filepath.Join(s.dir, entry.Name(), f.Name()))
			if !ok {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	SortKeys(keys)
	return keys, nil
}

// Watch reports schema files that are created or written under the root
// directory until ctx is done. New name directories are watched as they
// appear.
func (s *FileSource) Watch(ctx context.Context, fn func(schema.Key)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() && validName(entry.Name()) {
			if err := watcher.Add(filepath.Join(s.dir, entry.Name())); err != nil {
				return fmt.Errorf("watch %s: %w", entry.Name(), err)
			}
		}
	}

	s.logger.Info().Str("dir", s.dir).Msg("watching schema directory")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if filepath.Dir(event.Name) == filepath.Clean(s.dir) && validName(info.Name()) {
					if err := watcher.Add(event.Name); err != nil {
						s.logger.Error().Err(err).Str("dir", event.Name).Msg("failed to watch schema directory")
					}
				}
				continue
			}

			key, ok := keyFromPath(event.Name)
			if !ok || filepath.Dir(filepath.Dir(event.Name)) != filepath.Clean(s.dir) {
				continue
			}
			s.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("schema file changed")
			metrics.DefaultMetrics.RecordSchemaDiscovered()
			fn(key)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error().Err(err).Msg("schema watcher error")
		}
	}
}

// keyFromPath maps <dir>/<name>/<version>.<ext> to its key.
func keyFromPath(path string) (schema.Key, bool) {
	ext := filepath.Ext(path)
	known := false
	for _, e := range schemaExtensions {
		if ext == e {
			known = true
			break
		}
	}
	if !known {
		return schema.Key{}, false
	}
	version, err := strconv.Atoi(strings.TrimSuffix(filepath.Base(path), ext))
	if err != nil || version < 0 {
		return schema.Key{}, false
	}
	name := filepath.Base(filepath.Dir(path))
	if !validName(name) {
		return schema.Key{}, false
	}
	return schema.Key{Name: name, Version: version}, true
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && !strings.HasPrefix(name, ".")
}
