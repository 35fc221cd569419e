package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"event-validation-service/internal/config"
	"event-validation-service/internal/models"
	"event-validation-service/internal/schema"
)

const loginSchema = `
event: {name: login, version: 1}
validation:
  payload:
    user: {of: string, is: required}
`

func testConfig(schemas config.SchemasConfig) *config.Config {
	return &config.Config{
		Schemas:       schemas,
		Validation:    config.ValidationConfig{Workers: 1},
		Observability: config.ObservabilityConfig{LogLevel: "error", LogFormat: "json"},
	}
}

func writeSchema(t *testing.T, dir, name, version, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name, version+".yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write schema: %v", err)
	}
}

func TestOpenSchemas_Files(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSchemas(context.Background(), config.SchemasConfig{Source: config.SourceFiles, Dir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	if s.Files == nil {
		t.Error("expected file source to be set")
	}
	if s.Registry != nil {
		t.Error("expected no registry for the file source")
	}
}

func TestOpenSchemas_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "schemas.sqlite")

	s, err := OpenSchemas(ctx, config.SchemasConfig{Source: config.SourceSQLite, DBPath: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	if s.Registry == nil {
		t.Fatal("expected registry for the sqlite source")
	}
	key := schema.Key{Name: "login", Version: 1}
	if err := s.Registry.Put(ctx, key, []byte(loginSchema)); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	keys, err := s.Lister.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != key {
		t.Errorf("expected [%s], got %v", key, keys)
	}
}

func TestOpenSchemas_Unknown(t *testing.T) {
	_, err := OpenSchemas(context.Background(), config.SchemasConfig{Source: "ftp"})
	if err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestApplication_StartPreloadsSchemas(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeSchema(t, dir, "login", "1", loginSchema)
	writeSchema(t, dir, "broken", "1", "event: [")

	a, err := New(ctx, testConfig(config.SchemasConfig{Source: config.SourceFiles, Dir: dir}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Shutdown()

	if a.Consumer != nil {
		t.Error("expected no consumer with Kafka disabled")
	}
	if a.Ready() {
		t.Error("expected not ready before Start")
	}
	if err := a.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !a.Ready() {
		t.Error("expected ready after Start")
	}
	if !a.Cache.Cached(schema.Key{Name: "login", Version: 1}) {
		t.Error("expected login/1 to be preloaded")
	}
	if a.Cache.Cached(schema.Key{Name: "broken", Version: 1}) {
		t.Error("expected broken/1 not to be cached")
	}

	res, err := a.Validator.Validate(ctx, &models.Event{
		Name:    "login",
		Version: 1,
		Payload: json.RawMessage(`{"user":"ana"}`),
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !res.Success {
		t.Errorf("expected success, got %v", res.Messages())
	}
}
