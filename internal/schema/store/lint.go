package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// documentShape describes the top-level layout of a schema document.
const documentShape = `{
  "type": "object",
  "required": ["event", "validation"],
  "properties": {
    "schema": {
      "type": "object",
      "properties": {"version": {"type": "integer", "minimum": 0}}
    },
    "event": {
      "type": "object",
      "required": ["name", "version"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "version": {"type": "integer", "minimum": 0}
      }
    },
    "types": {
      "type": "object",
      "additionalProperties": {"$ref": "#/definitions/fields"}
    },
    "validation": {
      "type": "object",
      "required": ["payload"],
      "additionalProperties": false,
      "properties": {
        "payload": {"$ref": "#/definitions/fields"},
        "identity": {"$ref": "#/definitions/fields"},
        "metadata": {"$ref": "#/definitions/fields"}
      }
    }
  },
  "definitions": {
    "fields": {
      "type": ["object", "null"],
      "additionalProperties": {"$ref": "#/definitions/field"}
    },
    "field": {
      "oneOf": [
        {"type": "string", "minLength": 1},
        {
          "type": "object",
          "required": ["of"],
          "additionalProperties": false,
          "properties": {
            "of": {"type": "string", "minLength": 1},
            "format": {"type": "string", "minLength": 1},
            "is": {
              "oneOf": [
                {"type": "string"},
                {"type": "array", "items": {"type": "string"}}
              ]
            },
            "contains": {"$ref": "#/definitions/field"}
          }
        }
      ]
    }
  }
}`

var compileShape = sync.OnceValues(func() (*santhosh.Schema, error) {
	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	if err := compiler.AddResource("document.json", strings.NewReader(documentShape)); err != nil {
		return nil, err
	}
	return compiler.Compile("document.json")
})

// LintError lists the problems found in a schema document.
type LintError struct {
	Problems []string
}

func (e *LintError) Error() string {
	return "invalid schema document: " + strings.Join(e.Problems, "; ")
}

// Lint checks the layout of a YAML or JSON schema document. It is stricter
// than parsing: it is meant to gate registration, while lookups accept
// whatever parses and report field problems during validation.
func Lint(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return &LintError{Problems: []string{err.Error()}}
	}
	// Round-trip through JSON so the validator sees JSON value types.
	data, err := json.Marshal(doc)
	if err != nil {
		return &LintError{Problems: []string{err.Error()}}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return &LintError{Problems: []string{err.Error()}}
	}

	shape, err := compileShape()
	if err != nil {
		return fmt.Errorf("compile document shape: %w", err)
	}
	if err := shape.Validate(v); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return &LintError{Problems: collectProblems(ve)}
		}
		return &LintError{Problems: []string{err.Error()}}
	}
	return nil
}

func collectProblems(ve *santhosh.ValidationError) []string {
	var msgs []string
	for _, cause := range ve.Causes {
		msgs = append(msgs, collectProblems(cause)...)
	}
	if len(ve.Causes) == 0 {
		msgs = append(msgs, fmt.Sprintf("%s: %s", locationOf(ve), ve.Message))
	}
	return msgs
}

func locationOf(ve *santhosh.ValidationError) string {
	if ve.InstanceLocation == "" {
		return "/"
	}
	return ve.InstanceLocation
}
