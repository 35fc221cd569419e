package schema

// Resolve resolves a field declaration to its Type. The returned error is
// always a *FieldError with CodeSchemaFormat.
//
// Rules, in order: array marker, date marker, catalog type, primitive.
// Catalog types are not expanded here; their fields are resolved one level
// at a time as validation descends, so self-referencing types terminate as
// long as the event data does.
func Resolve(doc *Document, name string, f *Field) (Type, error) {
	return resolve(doc, name, f, NewPath(name))
}

func resolve(doc *Document, name string, f *Field, at Path) (Type, error) {
	if f == nil {
		return nil, newError(CodeSchemaFormat, at, "Element '%s' has no type declaration", name)
	}
	if f.malformed != "" {
		return nil, newError(CodeSchemaFormat, at, "Element '%s' has a malformed declaration: %s", name, f.malformed)
	}

	switch f.Of {
	case "":
		return nil, newError(CodeSchemaFormat, at, "Element '%s' has no type", name)
	case markerArray:
		if f.Contains == nil {
			return nil, newError(CodeSchemaFormat, at, "Array element '%s' has no content type", name)
		}
		content, err := resolve(doc, name, f.Contains, at)
		if err != nil {
			return nil, err
		}
		return Array{Content: content, Key: name}, nil
	case markerDate:
		if f.Format == "" {
			return nil, newError(CodeSchemaFormat, at, "Date element '%s' has no format", name)
		}
		return Date{Format: f.Format, Key: name}, nil
	}

	if fields, ok := doc.Types[f.Of]; ok {
		if msg := fields.Malformed(); msg != "" {
			return nil, newError(CodeSchemaFormat, at, "Element '%s' references malformed type '%s': %s", name, f.Of, msg)
		}
		return UserDefined{Name: f.Of, Fields: fields, Key: name}, nil
	}
	if kind, ok := primitiveKinds[f.Of]; ok {
		return Primitive{Kind: kind, Key: name}, nil
	}
	return nil, newError(CodeSchemaFormat, at, "Element '%s' references unknown type '%s'", name, f.Of)
}
