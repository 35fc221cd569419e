package store

import (
	"errors"
	"os"
	"testing"
)

func TestLint_Valid(t *testing.T) {
	raw, err := os.ReadFile("../testdata/event_test.yaml")
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}

	if err := Lint(raw); err != nil {
		t.Errorf("expected test schema to lint clean, got %v", err)
	}
	if err := Lint([]byte(testDocument)); err != nil {
		t.Errorf("expected document to lint clean, got %v", err)
	}
}

func TestLint_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "validation: [1, 2"},
		{"missing event", "validation:\n  payload: {}\n"},
		{"missing payload", "event: {name: a, version: 1}\nvalidation:\n  identity: {}\n"},
		{"version not integer", "event: {name: a, version: one}\nvalidation:\n  payload: {}\n"},
		{"unknown section", "event: {name: a, version: 1}\nvalidation:\n  payload: {}\n  extra: {}\n"},
		{"field without type", "event: {name: a, version: 1}\nvalidation:\n  payload:\n    x: {is: required}\n"},
		{"field list", "event: {name: a, version: 1}\nvalidation:\n  payload:\n    x: [1]\n"},
		{"unknown field key", "event: {name: a, version: 1}\nvalidation:\n  payload:\n    x: {of: string, size: 3}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Lint([]byte(tt.doc))
			var le *LintError
			if !errors.As(err, &le) {
				t.Fatalf("expected LintError, got %v", err)
			}
			if len(le.Problems) == 0 {
				t.Error("expected at least one problem")
			}
		})
	}
}
