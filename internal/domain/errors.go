package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument signals a malformed request value (blank field, negative boost).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidValue signals a value the field's mapper cannot coerce.
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnknownField signals a condition referencing a field absent from the schema.
	ErrUnknownField = errors.New("unknown field")
	// ErrUnsupportedType signals a mapper base type with no strategy for the requested query.
	ErrUnsupportedType = errors.New("unsupported field type")
	// ErrInvalidSchema signals an invalid schema definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrInvalidOptions signals malformed index options at validation time.
	ErrInvalidOptions = errors.New("invalid index options")

	// ErrTableNotFound signals a missing table.
	ErrTableNotFound = errors.New("table not found")
	// ErrTableExists signals a duplicate table.
	ErrTableExists = errors.New("table already exists")
	// ErrRowNotFound signals a missing row.
	ErrRowNotFound = errors.New("row not found")
	// ErrIndexRemoved signals an operation against an index that was torn down.
	ErrIndexRemoved = errors.New("index removed")
)

// UnsupportedTypeError wraps ErrUnsupportedType with the offending mapper type name.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("%s: %q mapper", ErrUnsupportedType.Error(), e.Type)
}

func (e *UnsupportedTypeError) Unwrap() error { return ErrUnsupportedType }

// NewUnsupportedType creates an unsupported-type error for a mapper type name.
func NewUnsupportedType(typeName string) error {
	return &UnsupportedTypeError{Type: typeName}
}
