package table

import (
	"fmt"
	"regexp"
	"time"
)

var (
	nameRegex     = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	reservedNames = map[string]bool{"tables": true, "search": true}
)

// Table is the indexed-table aggregate (immutable value object).
// It records what the operator created: the name, the mapper schema as
// JSON and the raw index options. Schema semantics are validated by the
// schema package in the service layer, not here.
type Table struct {
	name      string
	schema    string
	options   map[string]string
	createdAt int64
	version   int
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("table name is required")
	}
	if len(name) > 128 {
		return fmt.Errorf("table name too long (max 128)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("table name must be alphanumeric with underscores and hyphens")
	}
	if reservedNames[name] {
		return fmt.Errorf("table name %q is reserved", name)
	}
	return nil
}

// New validates and creates a Table.
// Name: ^[a-zA-Z0-9_-]+$, 1-128 chars, not reserved. Schema: non-empty JSON.
func New(name, schemaJSON string, options map[string]string) (Table, error) {
	if err := validateName(name); err != nil {
		return Table{}, err
	}
	if schemaJSON == "" {
		return Table{}, fmt.Errorf("schema definition is required")
	}
	return Table{
		name:      name,
		schema:    schemaJSON,
		options:   cloneOptions(options),
		createdAt: time.Now().UnixMilli(),
		version:   1,
	}, nil
}

// Reconstruct creates a Table without validation (storage hydration).
func Reconstruct(name, schemaJSON string, options map[string]string, createdAt int64, version int) Table {
	return Table{name: name, schema: schemaJSON, options: options, createdAt: createdAt, version: version}
}

// Name returns the table name.
func (t Table) Name() string { return t.name }

// SchemaJSON returns the mapper schema definition as JSON.
func (t Table) SchemaJSON() string { return t.schema }

// Options returns the raw index options.
func (t Table) Options() map[string]string { return t.options }

// CreatedAt returns the creation time in unix milliseconds.
func (t Table) CreatedAt() int64 { return t.createdAt }

// Version returns the metadata version, bumped on every alter.
func (t Table) Version() int { return t.version }

// WithVersion returns a copy with the given version set.
func (t Table) WithVersion(v int) Table {
	return Table{name: t.name, schema: t.schema, options: t.options, createdAt: t.createdAt, version: v}
}

func cloneOptions(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
