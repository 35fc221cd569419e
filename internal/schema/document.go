// Package schema validates events against versioned schema documents.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Field attributes recognised in a field declaration's "is" list.
const (
	AttrRequired  = "required"
	AttrEncrypted = "encrypted"
)

// Reserved type markers. Any other "of" value names a catalog type or a primitive.
const (
	markerArray = "array"
	markerDate  = "date"
)

// Key identifies exactly one schema document.
type Key struct {
	Name    string
	Version int
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Name, k.Version)
}

// Document is a parsed schema.
type Document struct {
	Schema     SchemaInfo        `yaml:"schema" json:"schema"`
	Event      Identity          `yaml:"event" json:"event"`
	Types      map[string]Fields `yaml:"types" json:"types,omitempty"`
	Validation Sections          `yaml:"validation" json:"validation"`
}

// SchemaInfo holds the schema format version, independent of the event version.
type SchemaInfo struct {
	Version int `yaml:"version" json:"version"`
}

// Identity is the event name and version a schema declares for itself.
type Identity struct {
	Name    string `yaml:"name" json:"name"`
	Version int    `yaml:"version" json:"version"`
}

// Sections holds the three optional field trees of a schema. A nil section
// is one the schema does not declare.
type Sections struct {
	Payload  *Fields `yaml:"payload" json:"payload,omitempty"`
	Identity *Fields `yaml:"identity" json:"identity,omitempty"`
	Metadata *Fields `yaml:"metadata" json:"metadata,omitempty"`
}

// Attributes is the "is" list of a field declaration. A single scalar is
// accepted as a one-element list.
type Attributes []string

// Has reports whether attr is present.
func (a Attributes) Has(attr string) bool {
	for _, v := range a {
		if v == attr {
			return true
		}
	}
	return false
}

// Field is one field declaration. Malformed declarations are kept and
// reported when the field is resolved, not when the document is parsed.
type Field struct {
	Is       Attributes `yaml:"is,omitempty" json:"is,omitempty"`
	Of       string     `yaml:"of,omitempty" json:"of,omitempty"`
	Format   string     `yaml:"format,omitempty" json:"format,omitempty"`
	Contains *Field     `yaml:"contains,omitempty" json:"contains,omitempty"`

	malformed string
}

// UnmarshalYAML accepts either a mapping or a bare type name ("contains: user").
func (f *Field) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.AliasNode && value.Alias != nil {
		value = value.Alias
	}
	switch value.Kind {
	case yaml.ScalarNode:
		f.Of = value.Value
		return nil
	case yaml.MappingNode:
	default:
		f.malformed = fmt.Sprintf("line %d: field declaration must be a mapping or a type name", value.Line)
		return nil
	}

	var raw struct {
		Is       yaml.Node `yaml:"is"`
		Of       yaml.Node `yaml:"of"`
		Format   yaml.Node `yaml:"format"`
		Contains *Field    `yaml:"contains"`
	}
	if err := value.Decode(&raw); err != nil {
		f.malformed = err.Error()
		return nil
	}
	f.Contains = raw.Contains

	if raw.Is.Kind != 0 {
		attrs, err := decodeAttributes(&raw.Is)
		if err != nil {
			f.malformed = err.Error()
			return nil
		}
		f.Is = attrs
	}
	if raw.Of.Kind != 0 {
		if raw.Of.Kind != yaml.ScalarNode {
			f.malformed = fmt.Sprintf("line %d: \"of\" must be a type name", raw.Of.Line)
			return nil
		}
		f.Of = raw.Of.Value
	}
	if raw.Format.Kind != 0 {
		if raw.Format.Kind != yaml.ScalarNode {
			f.malformed = fmt.Sprintf("line %d: \"format\" must be a string", raw.Format.Line)
			return nil
		}
		f.Format = raw.Format.Value
	}
	return nil
}

func decodeAttributes(node *yaml.Node) (Attributes, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
		return Attributes{node.Value}, nil
	case yaml.SequenceNode:
		var attrs []string
		if err := node.Decode(&attrs); err != nil {
			return nil, fmt.Errorf("line %d: \"is\" must list attribute names: %w", node.Line, err)
		}
		return attrs, nil
	default:
		return nil, fmt.Errorf("line %d: \"is\" must be a string or a list", node.Line)
	}
}

// NamedField pairs a field name with its declaration.
type NamedField struct {
	Name  string
	Field *Field
}

// Fields is an ordered field map. Declaration order drives validation order,
// which in turn drives error order. Like Field, a malformed map is kept and
// reported when validation reaches it.
type Fields struct {
	Named []NamedField

	malformed string
}

// NewFields returns fields declared in the given order.
func NewFields(named ...NamedField) Fields {
	return Fields{Named: named}
}

// Malformed returns why the map could not be decoded, or "".
func (fs Fields) Malformed() string {
	return fs.malformed
}

// UnmarshalYAML decodes a mapping while keeping key order.
func (fs *Fields) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.AliasNode && value.Alias != nil {
		value = value.Alias
	}
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*fs = Fields{}
		return nil
	}
	if value.Kind != yaml.MappingNode {
		*fs = Fields{malformed: fmt.Sprintf("line %d: expected a mapping of field declarations", value.Line)}
		return nil
	}

	out := make([]NamedField, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode, valNode := value.Content[i], value.Content[i+1]
		f := &Field{}
		if err := valNode.Decode(f); err != nil {
			return fmt.Errorf("field %q: %w", keyNode.Value, err)
		}
		out = append(out, NamedField{Name: keyNode.Value, Field: f})
	}
	*fs = Fields{Named: out}
	return nil
}

// MarshalJSON encodes the fields as a JSON object in declaration order.
func (fs Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, nf := range fs.Named {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(nf.Name)
		if err != nil {
			return nil, err
		}
		decl, err := json.Marshal(nf.Field)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(decl)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Lookup returns the declaration for name.
func (fs Fields) Lookup(name string) (*Field, bool) {
	for _, nf := range fs.Named {
		if nf.Name == name {
			return nf.Field, true
		}
	}
	return nil, false
}
