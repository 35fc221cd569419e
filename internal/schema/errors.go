package schema

import (
	"errors"
	"fmt"
)

// ErrSchemaNotFound is returned by a Lookup when no schema is registered for a key.
var ErrSchemaNotFound = errors.New("schema not found")

// ErrorCode classifies a validation failure.
type ErrorCode string

const (
	// CodeIdentityMismatch indicates the event name or version differs from the schema's.
	CodeIdentityMismatch ErrorCode = "identity-mismatch"
	// CodeSchemaFormat indicates the schema is missing a section, a type or a type reference.
	CodeSchemaFormat ErrorCode = "schema-format"
	// CodeRequired indicates a required field is absent or null.
	CodeRequired ErrorCode = "required"
	// CodeInvalidInput indicates a value has the wrong shape, kind or date format.
	CodeInvalidInput ErrorCode = "invalid-input"
)

// FieldError is one validation failure.
type FieldError struct {
	Code    ErrorCode `json:"code"`
	Path    string    `json:"path,omitempty"`
	Message string    `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Message
}

func newError(code ErrorCode, path Path, format string, args ...any) *FieldError {
	return &FieldError{
		Code:    code,
		Path:    path.String(),
		Message: fmt.Sprintf(format, args...),
	}
}

// IsCode reports whether err is a *FieldError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var fe *FieldError
	return errors.As(err, &fe) && fe.Code == code
}
