// Package table persists the table catalog in the row store.
package table

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/rowdex/internal/db"
	"github.com/kailas-cloud/rowdex/internal/domain"
	domtab "github.com/kailas-cloud/rowdex/internal/domain/table"
)

// store is the consumer interface for the table catalog (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MultiGet(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, prefix string) ([]string, error)
}

// Repo implements usecase/table.Repository.
type Repo struct {
	store  store
	prefix string
}

// New creates a table catalog repository. An empty prefix falls back to
// domain.KeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

// Create stores a new table definition.
func (r *Repo) Create(ctx context.Context, t domtab.Table) error {
	key := r.metaKey(t.Name())
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return domain.ErrTableExists
	}

	data, err := encodeTable(t)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set table %s: %w", t.Name(), err)
	}
	return nil
}

// Update overwrites an existing table definition.
func (r *Repo) Update(ctx context.Context, t domtab.Table) error {
	key := r.metaKey(t.Name())
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return domain.ErrTableNotFound
	}

	data, err := encodeTable(t)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set table %s: %w", t.Name(), err)
	}
	return nil
}

// Get retrieves a table definition by name.
func (r *Repo) Get(ctx context.Context, name string) (domtab.Table, error) {
	data, err := r.store.Get(ctx, r.metaKey(name))
	if errors.Is(err, db.ErrKeyNotFound) {
		return domtab.Table{}, domain.ErrTableNotFound
	}
	if err != nil {
		return domtab.Table{}, fmt.Errorf("get table %s: %w", name, err)
	}
	return decodeTable(data)
}

// List returns all table definitions sorted by creation time.
func (r *Repo) List(ctx context.Context) ([]domtab.Table, error) {
	keys, err := r.store.Scan(ctx, r.metaKey(""))
	if err != nil {
		return nil, fmt.Errorf("scan tables: %w", err)
	}
	if len(keys) == 0 {
		return []domtab.Table{}, nil
	}

	values, err := r.store.MultiGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("multiget tables: %w", err)
	}

	tables := make([]domtab.Table, 0, len(values))
	for i, data := range values {
		if data == nil {
			continue
		}
		t, err := decodeTable(data)
		if err != nil {
			return nil, fmt.Errorf("parse table %s: %w", keys[i], err)
		}
		tables = append(tables, t)
	}

	sort.Slice(tables, func(i, j int) bool {
		if tables[i].CreatedAt() != tables[j].CreatedAt() {
			return tables[i].CreatedAt() < tables[j].CreatedAt()
		}
		return tables[i].Name() < tables[j].Name()
	})
	return tables, nil
}

// Delete removes a table definition.
func (r *Repo) Delete(ctx context.Context, name string) error {
	key := r.metaKey(name)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return domain.ErrTableNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del table %s: %w", name, err)
	}
	return nil
}

// Store key pattern: rowdex:table:{name}

func (r *Repo) metaKey(name string) string {
	return r.prefix + "table:" + name
}
