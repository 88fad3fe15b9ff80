// Package row persists rows in the authoritative row store.
package row

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/rowdex/internal/db"
	"github.com/kailas-cloud/rowdex/internal/domain"
	domrow "github.com/kailas-cloud/rowdex/internal/domain/row"
)

// store is the consumer interface for rows (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MultiGet(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMulti(ctx context.Context, items []db.SetItem) error
	Del(ctx context.Context, key string) error
	DelPrefix(ctx context.Context, prefix string) (int, error)
	Scan(ctx context.Context, prefix string) ([]string, error)
}

// Repo implements usecase/row.Repository.
type Repo struct {
	store  store
	prefix string
}

// New creates a row repository. An empty prefix falls back to
// domain.KeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

// Put creates or overwrites a row.
func (r *Repo) Put(ctx context.Context, tableName string, row domrow.Row) error {
	data, err := encodeRow(row)
	if err != nil {
		return err
	}
	key := r.rowKey(tableName, row.Key())
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// PutMulti writes a batch of rows in one round trip.
func (r *Repo) PutMulti(ctx context.Context, tableName string, rows []domrow.Row) error {
	if len(rows) == 0 {
		return nil
	}
	items := make([]db.SetItem, 0, len(rows))
	for _, row := range rows {
		data, err := encodeRow(row)
		if err != nil {
			return err
		}
		items = append(items, db.SetItem{Key: r.rowKey(tableName, row.Key()), Value: data})
	}
	if err := r.store.SetMulti(ctx, items); err != nil {
		return fmt.Errorf("setmulti %s: %w", tableName, err)
	}
	return nil
}

// Get returns a row by key.
func (r *Repo) Get(ctx context.Context, tableName, key string) (domrow.Row, error) {
	storeKey := r.rowKey(tableName, key)
	data, err := r.store.Get(ctx, storeKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return domrow.Row{}, domain.ErrRowNotFound
	}
	if err != nil {
		return domrow.Row{}, fmt.Errorf("get %s: %w", storeKey, err)
	}
	return decodeRow(data)
}

// GetMulti returns the rows that still exist for the given keys, in the
// order requested. Keys deleted since they were indexed are skipped, so
// callers must match results by Row.Key rather than by position.
func (r *Repo) GetMulti(ctx context.Context, tableName string, keys []string) ([]domrow.Row, error) {
	if len(keys) == 0 {
		return []domrow.Row{}, nil
	}
	storeKeys := make([]string, len(keys))
	for i, k := range keys {
		storeKeys[i] = r.rowKey(tableName, k)
	}

	values, err := r.store.MultiGet(ctx, storeKeys)
	if err != nil {
		return nil, fmt.Errorf("multiget %s: %w", tableName, err)
	}

	rows := make([]domrow.Row, 0, len(values))
	for i, data := range values {
		if data == nil {
			continue
		}
		row, err := decodeRow(data)
		if err != nil {
			return nil, fmt.Errorf("parse row %s: %w", storeKeys[i], err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Delete removes a row. Deleting an absent key is not an error.
func (r *Repo) Delete(ctx context.Context, tableName, key string) error {
	storeKey := r.rowKey(tableName, key)
	if err := r.store.Del(ctx, storeKey); err != nil {
		return fmt.Errorf("del %s: %w", storeKey, err)
	}
	return nil
}

// DeleteTable removes every row of a table and reports how many were
// deleted.
func (r *Repo) DeleteTable(ctx context.Context, tableName string) (int, error) {
	n, err := r.store.DelPrefix(ctx, r.rowKey(tableName, ""))
	if err != nil {
		return 0, fmt.Errorf("delprefix %s: %w", tableName, err)
	}
	return n, nil
}

// Keys returns all row keys of a table, sorted.
func (r *Repo) Keys(ctx context.Context, tableName string) ([]string, error) {
	prefix := r.rowKey(tableName, "")
	storeKeys, err := r.store.Scan(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", tableName, err)
	}
	keys := make([]string, 0, len(storeKeys))
	for _, k := range storeKeys {
		keys = append(keys, strings.TrimPrefix(k, prefix))
	}
	return keys, nil
}

// Store key pattern: rowdex:row:{table}:{key}

func (r *Repo) rowKey(table, key string) string {
	return r.prefix + "row:" + table + ":" + key
}
