package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"event-validation-service/internal/models"
	"event-validation-service/internal/observability/metrics"
)

// Event-side fields that must exist when a schema declares the section.
const (
	identityUserIDField = "userId"
	metadataOriginField = "origin"
)

// Lookup returns the schema document registered for a key. Implementations
// return an error wrapping ErrSchemaNotFound for unknown keys.
type Lookup interface {
	Get(ctx context.Context, key Key) (*Document, error)
}

// Validator checks events against their schemas. It keeps no per-event
// state and is safe for concurrent use.
type Validator struct {
	lookup  Lookup
	metrics *metrics.Metrics
}

// New creates a validator that resolves schemas through lookup.
func New(lookup Lookup) *Validator {
	return &Validator{
		lookup:  lookup,
		metrics: metrics.DefaultMetrics,
	}
}

// Validate checks ev against the schema registered for its name and version.
// All checks run; failures are collected in the result. The only error
// returned is a failed schema lookup, in which case there is no result.
func (v *Validator) Validate(ctx context.Context, ev *models.Event) (*Result, error) {
	start := time.Now()
	key := Key{Name: ev.Name, Version: ev.Version}

	doc, err := v.lookup.Get(ctx, key)
	if err != nil {
		v.metrics.RecordLookupFailure()
		return nil, fmt.Errorf("lookup schema %s: %w", key, err)
	}

	res := newResult()
	if doc.Event.Name != ev.Name {
		res.addError(newError(CodeIdentityMismatch, NewPath("name"),
			"The event name '%s' is different from schema '%s'", ev.Name, doc.Event.Name))
	}
	if doc.Event.Version != ev.Version {
		res.addError(newError(CodeIdentityMismatch, NewPath("version"),
			"The event version '%d' is different from schema '%d'", ev.Version, doc.Event.Version))
	}

	w := &walker{doc: doc, res: res}

	if doc.Validation.Payload == nil {
		res.addError(newError(CodeSchemaFormat, NewPath("payload"), "The schema '%s' has no payload", key))
	} else {
		w.section("payload", *doc.Validation.Payload, ev.Payload, "", "")
	}
	if doc.Validation.Identity != nil {
		w.section("identity", *doc.Validation.Identity, ev.Identity, identityUserIDField,
			fmt.Sprintf("The event '%s' has no userId", ev.Name))
	}
	if doc.Validation.Metadata != nil {
		w.section("metadata", *doc.Validation.Metadata, ev.Metadata, metadataOriginField,
			fmt.Sprintf("The event '%s' has no origin", ev.Name))
	}

	res.Success = len(res.Errors) == 0

	v.metrics.RecordValidation(res.Success, time.Since(start).Seconds())
	v.metrics.RecordEncryptedFields(len(res.EncryptedFields))
	for _, e := range res.Errors {
		v.metrics.RecordValidationError(string(e.Code))
	}
	log.Debug().
		Str("schema", key.String()).
		Str("eventId", ev.ID).
		Bool("success", res.Success).
		Int("errors", len(res.Errors)).
		Strs("encryptedFields", res.EncryptedFields).
		Msg("event validated")

	return res, nil
}

// walker carries the state of one validation call.
type walker struct {
	doc *Document
	res *Result
}

// section validates one top-level event section. When mustHave is set the
// section's object must contain that key before any field is checked.
func (w *walker) section(name string, fields Fields, raw json.RawMessage, mustHave, missing string) {
	loc := NewPath(name)

	if msg := fields.Malformed(); msg != "" {
		w.res.addError(newError(CodeSchemaFormat, loc, "The section '%s' is malformed: %s", name, msg))
		return
	}

	value, err := decodeSection(raw)
	if err != nil {
		w.res.addError(newError(CodeInvalidInput, loc, "Element '%s' is not valid JSON", name))
		return
	}
	obj, isObject := value.(map[string]any)
	if value != nil && !isObject {
		w.res.addError(newError(CodeInvalidInput, loc, "Element '%s' is in the wrong format", name))
		return
	}

	if mustHave != "" {
		if _, ok := obj[mustHave]; !ok {
			w.res.addError(newError(CodeSchemaFormat, loc.Push(mustHave), "%s", missing))
			return
		}
	}

	w.fields(fields, obj, Path{}, loc)
}

// fields validates each declared field of obj independently. enc is the
// encrypted-path prefix, loc the location used in error paths.
func (w *walker) fields(fields Fields, obj map[string]any, enc, loc Path) {
	for _, nf := range fields.Named {
		w.res.addError(w.field(nf.Name, nf.Field, obj, enc, loc.Push(nf.Name)))
	}
}

func (w *walker) field(name string, f *Field, obj map[string]any, enc, loc Path) *FieldError {
	t, err := resolve(w.doc, name, f, loc)
	if err != nil {
		return asFieldError(err, loc)
	}

	value, ok := obj[name]
	if !ok || value == nil {
		if f.Is.Has(AttrRequired) {
			return newError(CodeRequired, loc, "Element '%s' is required", name)
		}
		return nil
	}
	return w.byType(t, f, value, false, enc, loc)
}

// byType validates value against t. Errors found below this value are added
// to the result directly; the returned error is about value itself.
func (w *walker) byType(t Type, f *Field, value any, arrayElem bool, enc, loc Path) *FieldError {
	if value != nil && f.Is.Has(AttrEncrypted) {
		w.res.addEncrypted(enc.Push(t.NodeKey()).String())
	}

	switch t := t.(type) {
	case Array:
		items, ok := value.([]any)
		if !ok {
			return newError(CodeInvalidInput, loc, "Array element '%s' is in the wrong format", t.Key)
		}
		for i, item := range items {
			w.res.addError(w.byType(t.Content, f, item, true, enc, loc.Index(i)))
		}
		return nil

	case Date:
		s, ok := value.(string)
		if !ok {
			return newError(CodeInvalidInput, loc, "Date Element '%v' is not in the format '%s'", value, t.Format)
		}
		if _, err := parseDate(t.Format, s); err != nil {
			var pe *patternError
			if errors.As(err, &pe) {
				return newError(CodeSchemaFormat, loc, "Date element '%s' has an invalid format: %v", t.Key, pe)
			}
			return newError(CodeInvalidInput, loc, "Date Element '%s' is not in the format '%s'", s, t.Format)
		}
		return nil

	case UserDefined:
		obj, ok := value.(map[string]any)
		if !ok {
			return newError(CodeInvalidInput, loc, "Element '%s' is in the wrong format", t.Key)
		}
		key := t.Key
		if arrayElem {
			key += "[*]"
		}
		w.fields(t.Fields, obj, enc.Push(key), loc)
		return nil

	case Primitive:
		if !t.Kind.Matches(value) {
			return newError(CodeInvalidInput, loc, "Element '%s' should be of type '%s'", t.Key, t.Kind)
		}
		return nil

	default:
		return newError(CodeSchemaFormat, loc, "Element '%s' has an unsupported type %T", t.NodeKey(), t)
	}
}

func asFieldError(err error, loc Path) *FieldError {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe
	}
	return newError(CodeSchemaFormat, loc, "%v", err)
}

// decodeSection decodes a raw JSON section. An empty section decodes to nil.
func decodeSection(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
