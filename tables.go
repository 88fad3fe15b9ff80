package rowdex

import (
	"context"
	"time"

	domtab "github.com/kailas-cloud/rowdex/internal/domain/table"
	rowuc "github.com/kailas-cloud/rowdex/internal/usecase/row"
	tableuc "github.com/kailas-cloud/rowdex/internal/usecase/table"
)

const defaultListLimit = 20

// TableService manages the table catalog and the per-table index
// lifecycle. Obtain one via Engine.Tables.
type TableService struct {
	tabs *tableuc.Service
	rows *rowuc.Service
}

// Create registers a new table with the given schema (JSON mapper
// definition) and opens its index. It fails with ErrTableExists when
// the name is taken.
func (t *TableService) Create(
	ctx context.Context, name, schemaJSON string, opts ...TableOption,
) (TableInfo, error) {
	tab, err := t.tabs.Create(ctx, name, schemaJSON, newTableConfig(opts).options)
	if err != nil {
		return TableInfo{}, err
	}
	return t.info(tab), nil
}

// Ensure creates the table if it does not exist yet. For an existing
// table the stored definition wins and the given schema and options are
// ignored.
func (t *TableService) Ensure(
	ctx context.Context, name, schemaJSON string, opts ...TableOption,
) (TableInfo, error) {
	tab, err := t.tabs.Ensure(ctx, name, schemaJSON, newTableConfig(opts).options)
	if err != nil {
		return TableInfo{}, err
	}
	return t.info(tab), nil
}

// Alter replaces a table's index options and reopens the index. The
// schema is immutable.
func (t *TableService) Alter(ctx context.Context, name string, opts ...TableOption) (TableInfo, error) {
	tab, err := t.tabs.Alter(ctx, name, newTableConfig(opts).options)
	if err != nil {
		return TableInfo{}, err
	}
	return t.info(tab), nil
}

// Get retrieves a table definition by name.
func (t *TableService) Get(ctx context.Context, name string) (TableInfo, error) {
	tab, err := t.tabs.Get(ctx, name)
	if err != nil {
		return TableInfo{}, err
	}
	return t.info(tab), nil
}

// List returns a page of tables ordered by creation time. cursor is the
// name of the last table from the previous page; pass "" for the first
// page. limit <= 0 falls back to 20.
func (t *TableService) List(ctx context.Context, cursor string, limit int) (TableListResult, error) {
	tabs, err := t.tabs.List(ctx)
	if err != nil {
		return TableListResult{}, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	start := 0
	if cursor != "" {
		for i, tab := range tabs {
			if tab.Name() == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(tabs) {
		end = len(tabs)
	}

	page := make([]TableInfo, 0, end-start)
	for _, tab := range tabs[start:end] {
		page = append(page, t.info(tab))
	}

	res := TableListResult{Tables: page, HasMore: end < len(tabs)}
	if res.HasMore && len(page) > 0 {
		res.NextCursor = page[len(page)-1].Name
	}
	return res, nil
}

// Drop removes a table: its index segments, its rows, then the catalog
// entry.
func (t *TableService) Drop(ctx context.Context, name string) error {
	return t.tabs.Drop(ctx, name)
}

// Commit flushes a table's buffered index writes so they become
// searchable immediately.
func (t *TableService) Commit(ctx context.Context, name string) error {
	return t.tabs.Commit(ctx, name)
}

// Truncate drops index documents written before the given time. A zero
// time drops every document. Stored rows are not touched.
func (t *TableService) Truncate(ctx context.Context, name string, before time.Time) error {
	return t.tabs.Truncate(ctx, name, before)
}

// Reload re-establishes a table's index after a failure or removal.
func (t *TableService) Reload(ctx context.Context, name string) error {
	return t.tabs.Reload(ctx, name)
}

// Stats reports a table's stored row count, index document count and
// index state.
func (t *TableService) Stats(ctx context.Context, name string) (TableStats, error) {
	st, err := t.rows.Stats(ctx, name)
	if err != nil {
		return TableStats{}, err
	}
	return TableStats{Rows: st.Rows, IndexDocs: st.IndexDocs, State: st.State}, nil
}

func (t *TableService) info(tab domtab.Table) TableInfo {
	state := "none"
	if ctrl, ok := t.tabs.Controller(tab.Name()); ok {
		state = ctrl.State().String()
	}
	return TableInfo{
		Name:      tab.Name(),
		Schema:    tab.SchemaJSON(),
		Options:   tab.Options(),
		CreatedAt: tab.CreatedAt(),
		Version:   tab.Version(),
		State:     state,
	}
}
