package rowdex

import (
	"context"
	"fmt"
)

// Table is a generic, schema-first handle on one table backed by an
// Engine. The schema is inferred from T's struct tags at construction
// time.
type Table[T any] struct {
	name string
	eng  *Engine
	meta *schemaMeta
}

// NewTable creates a typed table handle for the given table name.
// T must be a struct with rowdex tags. The schema is parsed once and
// cached.
func NewTable[T any](eng *Engine, name string) (*Table[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("new table %q: %w", name, err)
	}
	return &Table[T]{name: name, eng: eng, meta: meta}, nil
}

// Ensure creates the table from T's tags if it does not exist
// (idempotent).
func (t *Table[T]) Ensure(ctx context.Context, opts ...TableOption) error {
	schemaJSON, err := t.meta.schemaJSON(t.eng.defaultAnalyzer)
	if err != nil {
		return fmt.Errorf("ensure %q: %w", t.name, err)
	}
	if _, err := t.eng.Tables().Ensure(ctx, t.name, schemaJSON, opts...); err != nil {
		return fmt.Errorf("ensure %q: %w", t.name, err)
	}
	return nil
}

// Upsert creates or updates a single item.
func (t *Table[T]) Upsert(ctx context.Context, item T) error {
	return t.eng.Rows(t.name).Upsert(ctx, t.meta.toRow(item))
}

// UpsertBatch creates or updates items in batch with per-item outcomes.
func (t *Table[T]) UpsertBatch(ctx context.Context, items []T) []BatchResult {
	rows := make([]Row, len(items))
	for i, item := range items {
		rows[i] = t.meta.toRow(item)
	}
	return t.eng.Rows(t.name).BatchUpsert(ctx, rows)
}

// Get retrieves a typed item by key.
func (t *Table[T]) Get(ctx context.Context, key string) (T, error) {
	row, err := t.eng.Rows(t.name).Get(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	item, ok := t.meta.fromRow(row.Key, row.Columns).(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("get: type assertion failed")
	}
	return item, nil
}

// Delete removes an item by key.
func (t *Table[T]) Delete(ctx context.Context, key string) error {
	return t.eng.Rows(t.name).Delete(ctx, key)
}

// Count returns the number of stored items.
func (t *Table[T]) Count(ctx context.Context) (int, error) {
	return t.eng.Rows(t.name).Count(ctx)
}

// Commit flushes buffered index writes so they become searchable
// immediately.
func (t *Table[T]) Commit(ctx context.Context) error {
	return t.eng.Tables().Commit(ctx, t.name)
}

// Search returns a fluent search builder for this table.
func (t *Table[T]) Search() *SearchBuilder[T] {
	return &SearchBuilder[T]{tab: t}
}
