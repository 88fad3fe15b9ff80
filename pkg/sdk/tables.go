package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Index option keys understood by the server.
const (
	optionRefreshSeconds  = "refresh_seconds"
	optionMaxBufferedDocs = "max_buffered_docs"
	optionDirectory       = "directory"
	optionInMemory        = "in_memory"
)

// TableOption configures table creation and alteration.
type TableOption func(*tableConfig)

type tableConfig struct {
	options map[string]string
}

func newTableConfig(opts []TableOption) *tableConfig {
	cfg := &tableConfig{options: make(map[string]string)}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// WithRefreshInterval sets the background commit interval in seconds.
// Zero disables background commits.
func WithRefreshInterval(seconds int) TableOption {
	return func(c *tableConfig) {
		c.options[optionRefreshSeconds] = strconv.Itoa(seconds)
	}
}

// WithMaxBufferedDocs sets the buffered-write threshold that forces an
// automatic commit.
func WithMaxBufferedDocs(n int) TableOption {
	return func(c *tableConfig) {
		c.options[optionMaxBufferedDocs] = strconv.Itoa(n)
	}
}

// WithDirectory overrides the server data dir for this table's index
// segments.
func WithDirectory(dir string) TableOption {
	return func(c *tableConfig) {
		c.options[optionDirectory] = dir
	}
}

// WithMemoryIndex keeps this table's index in memory on the server.
func WithMemoryIndex() TableOption {
	return func(c *tableConfig) {
		c.options[optionInMemory] = "true"
	}
}

// WithTableOption passes a raw index option through verbatim. Unknown
// keys are rejected by the server.
func WithTableOption(key, value string) TableOption {
	return func(c *tableConfig) {
		c.options[key] = value
	}
}

// TableService manages the server's table catalog. Obtain one via
// Client.Tables.
type TableService struct {
	c *Client
}

// Ensure creates the table if it does not exist yet, with the given
// schema (JSON mapper definition) and index options. For an existing
// table the options are applied and the schema must match the stored
// one; the server rejects schema changes.
func (t *TableService) Ensure(
	ctx context.Context, name string, schemaJSON []byte, opts ...TableOption,
) (_ TableInfo, err error) {
	start := time.Now()
	defer func() { t.c.obs.observe("table.ensure", start, err) }()

	req := tableRequest{Schema: schemaJSON, Options: newTableConfig(opts).options}
	var info TableInfo
	if err = t.c.do(ctx, http.MethodPut, tablePath(name, ""), req, &info); err != nil {
		return TableInfo{}, fmt.Errorf("ensure table: %w", err)
	}
	return info, nil
}

// Alter replaces a table's index options; the index is reopened on the
// server. The schema is left untouched.
func (t *TableService) Alter(
	ctx context.Context, name string, opts ...TableOption,
) (_ TableInfo, err error) {
	start := time.Now()
	defer func() { t.c.obs.observe("table.alter", start, err) }()

	req := tableRequest{Options: newTableConfig(opts).options}
	var info TableInfo
	if err = t.c.do(ctx, http.MethodPut, tablePath(name, ""), req, &info); err != nil {
		return TableInfo{}, fmt.Errorf("alter table: %w", err)
	}
	return info, nil
}

// Get retrieves a table definition by name.
func (t *TableService) Get(ctx context.Context, name string) (_ TableInfo, err error) {
	start := time.Now()
	defer func() { t.c.obs.observe("table.get", start, err) }()

	var info TableInfo
	if err = t.c.do(ctx, http.MethodGet, tablePath(name, ""), nil, &info); err != nil {
		return TableInfo{}, fmt.Errorf("get table: %w", err)
	}
	return info, nil
}

// List returns a page of tables ordered by creation time. cursor is the
// name of the last table from the previous page; pass "" for the first
// page. limit <= 0 uses the server default of 20.
func (t *TableService) List(
	ctx context.Context, cursor string, limit int,
) (_ TableListResult, err error) {
	start := time.Now()
	defer func() { t.c.obs.observe("table.list", start, err) }()

	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := apiPrefix
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list TableListResult
	if err = t.c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return TableListResult{}, fmt.Errorf("list tables: %w", err)
	}
	return list, nil
}

// Drop removes a table: its index, its rows, then the catalog entry.
func (t *TableService) Drop(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { t.c.obs.observe("table.drop", start, err) }()

	if err = t.c.do(ctx, http.MethodDelete, tablePath(name, ""), nil, nil); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	return nil
}

// Commit flushes a table's buffered index writes so they become
// searchable immediately.
func (t *TableService) Commit(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { t.c.obs.observe("table.commit", start, err) }()

	if err = t.c.do(ctx, http.MethodPost, tablePath(name, "/commit"), nil, nil); err != nil {
		return fmt.Errorf("commit table: %w", err)
	}
	return nil
}

// Truncate drops index documents written before the given time. A zero
// time drops every document. Stored rows are not touched.
func (t *TableService) Truncate(
	ctx context.Context, name string, before time.Time,
) (err error) {
	start := time.Now()
	defer func() { t.c.obs.observe("table.truncate", start, err) }()

	var req truncateRequest
	if !before.IsZero() {
		req.Before = &before
	}
	if err = t.c.do(ctx, http.MethodPost, tablePath(name, "/truncate"), req, nil); err != nil {
		return fmt.Errorf("truncate table: %w", err)
	}
	return nil
}

// Reload re-establishes a table's index after a failure or removal.
func (t *TableService) Reload(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { t.c.obs.observe("table.reload", start, err) }()

	if err = t.c.do(ctx, http.MethodPost, tablePath(name, "/reload"), nil, nil); err != nil {
		return fmt.Errorf("reload table: %w", err)
	}
	return nil
}

// Stats reports a table's stored row count, index document count and
// index state.
func (t *TableService) Stats(ctx context.Context, name string) (_ TableStats, err error) {
	start := time.Now()
	defer func() { t.c.obs.observe("table.stats", start, err) }()

	var st TableStats
	if err = t.c.do(ctx, http.MethodGet, tablePath(name, "/stats"), nil, &st); err != nil {
		return TableStats{}, fmt.Errorf("table stats: %w", err)
	}
	return st, nil
}
