package schema

import "encoding/json"

// Type is a resolved field type: one of Primitive, Array, Date or UserDefined.
type Type interface {
	// NodeKey is the name of the field the type was resolved for.
	NodeKey() string
	isType()
}

// PrimitiveKind is a JSON scalar kind.
type PrimitiveKind string

const (
	KindString  PrimitiveKind = "string"
	KindNumber  PrimitiveKind = "number"
	KindBoolean PrimitiveKind = "boolean"
)

var primitiveKinds = map[string]PrimitiveKind{
	string(KindString):  KindString,
	string(KindNumber):  KindNumber,
	string(KindBoolean): KindBoolean,
}

// Matches reports whether a decoded JSON value has this kind.
func (k PrimitiveKind) Matches(v any) bool {
	switch k {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindNumber:
		switch v.(type) {
		case json.Number, float64:
			return true
		}
		return false
	case KindBoolean:
		_, ok := v.(bool)
		return ok
	default:
		return false
	}
}

// Primitive is a string, number or boolean value.
type Primitive struct {
	Kind PrimitiveKind
	Key  string
}

// Array is a list whose elements all have the Content type.
type Array struct {
	Content Type
	Key     string
}

// Date is a string parsed with Format.
type Date struct {
	Format string
	Key    string
}

// UserDefined is a catalog type. Its fields are resolved when validation
// descends into them.
type UserDefined struct {
	Name   string
	Fields Fields
	Key    string
}

func (t Primitive) NodeKey() string   { return t.Key }
func (t Array) NodeKey() string       { return t.Key }
func (t Date) NodeKey() string        { return t.Key }
func (t UserDefined) NodeKey() string { return t.Key }

func (Primitive) isType()   {}
func (Array) isType()       {}
func (Date) isType()        {}
func (UserDefined) isType() {}
