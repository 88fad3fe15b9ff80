package row

import (
	"fmt"
)

// MaxKeySize is the maximum partition key length in bytes.
const MaxKeySize = 256

// MaxColumns is the maximum number of columns in a single row.
const MaxColumns = 256

// Row is one store row keyed by partition key (immutable value object).
// Column values carry whatever the codec produced: string, bool, int64,
// float64 or []byte. Type discipline is enforced by the schema mappers,
// not here.
type Row struct {
	key     string
	columns map[string]any
}

// New validates and creates a Row.
// Key: non-empty, max 256 bytes. Columns: max 256, nil is allowed.
func New(key string, columns map[string]any) (Row, error) {
	if key == "" {
		return Row{}, fmt.Errorf("partition key is required")
	}
	if len(key) > MaxKeySize {
		return Row{}, fmt.Errorf("partition key too long (max %d)", MaxKeySize)
	}
	if len(columns) > MaxColumns {
		return Row{}, fmt.Errorf("too many columns (max %d)", MaxColumns)
	}
	return Row{key: key, columns: cloneColumns(columns)}, nil
}

// Reconstruct creates a Row without validation (storage hydration).
func Reconstruct(key string, columns map[string]any) Row {
	return Row{key: key, columns: columns}
}

// Key returns the partition key.
func (r Row) Key() string { return r.key }

// Columns returns the column values keyed by column name.
func (r Row) Columns() map[string]any { return r.columns }

// Column returns a single column value and whether it is present.
func (r Row) Column(name string) (any, bool) {
	v, ok := r.columns[name]
	return v, ok
}

func cloneColumns(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
