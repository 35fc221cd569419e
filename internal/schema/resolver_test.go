package schema

import (
	"testing"
)

func TestResolve(t *testing.T) {
	doc, err := Parse([]byte(`
types:
  user:
    name: string
validation:
  payload:
    a: {of: string}
    b: {of: number}
    c: {of: boolean}
    d: {of: date, format: yyyy-MM-dd}
    e: {of: user}
    f: {of: array, contains: user}
    g: {of: array, contains: {of: array, contains: number}}
`))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	payload := *doc.Validation.Payload

	field := func(name string) *Field {
		f, ok := payload.Lookup(name)
		if !ok {
			t.Fatalf("field %s not declared", name)
		}
		return f
	}

	tests := []struct {
		name     string
		expected Type
	}{
		{"a", Primitive{Kind: KindString, Key: "a"}},
		{"b", Primitive{Kind: KindNumber, Key: "b"}},
		{"c", Primitive{Kind: KindBoolean, Key: "c"}},
		{"d", Date{Format: "yyyy-MM-dd", Key: "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(doc, tt.name, field(tt.name))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %#v, got %#v", tt.expected, got)
			}
		})
	}

	t.Run("user defined", func(t *testing.T) {
		got, err := Resolve(doc, "e", field("e"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ud, ok := got.(UserDefined)
		if !ok {
			t.Fatalf("expected UserDefined, got %T", got)
		}
		if ud.Name != "user" || ud.Key != "e" || len(ud.Fields.Named) != 1 {
			t.Errorf("unexpected user defined type %+v", ud)
		}
	})

	t.Run("array of user", func(t *testing.T) {
		got, err := Resolve(doc, "f", field("f"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		arr, ok := got.(Array)
		if !ok {
			t.Fatalf("expected Array, got %T", got)
		}
		if arr.Key != "f" {
			t.Errorf("expected key f, got %s", arr.Key)
		}
		if ud, ok := arr.Content.(UserDefined); !ok || ud.Key != "f" {
			t.Errorf("expected user content keyed f, got %#v", arr.Content)
		}
	})

	t.Run("nested array", func(t *testing.T) {
		got, err := Resolve(doc, "g", field("g"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		outer, ok := got.(Array)
		if !ok {
			t.Fatalf("expected Array, got %T", got)
		}
		inner, ok := outer.Content.(Array)
		if !ok {
			t.Fatalf("expected inner Array, got %T", outer.Content)
		}
		if inner.Content != (Primitive{Kind: KindNumber, Key: "g"}) {
			t.Errorf("unexpected inner content %#v", inner.Content)
		}
	})
}

func TestResolve_Errors(t *testing.T) {
	doc := &Document{Types: map[string]Fields{
		"broken": {malformed: "line 3: expected a mapping of field declarations"},
	}}

	tests := []struct {
		name  string
		field *Field
	}{
		{"nil declaration", nil},
		{"no type", &Field{}},
		{"unknown type", &Field{Of: "spaceship"}},
		{"array without content", &Field{Of: "array"}},
		{"array of unknown", &Field{Of: "array", Contains: &Field{Of: "spaceship"}}},
		{"date without format", &Field{Of: "date"}},
		{"malformed", &Field{malformed: "bad"}},
		{"malformed catalog type", &Field{Of: "broken"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(doc, "x", tt.field)
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsCode(err, CodeSchemaFormat) {
				t.Errorf("expected schema-format error, got %v", err)
			}
		})
	}
}

func TestResolve_CatalogShadowsPrimitive(t *testing.T) {
	doc := &Document{Types: map[string]Fields{
		"string": NewFields(NamedField{Name: "value", Field: &Field{Of: "number"}}),
	}}

	got, err := Resolve(doc, "x", &Field{Of: "string"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got.(UserDefined); !ok {
		t.Errorf("expected catalog entry to win, got %T", got)
	}
}
