package search

import (
	"context"

	domrow "github.com/kailas-cloud/rowdex/internal/domain/row"
	domtab "github.com/kailas-cloud/rowdex/internal/domain/table"
	"github.com/kailas-cloud/rowdex/internal/index"
)

// RowReader hydrates rows for search hits.
type RowReader interface {
	GetMulti(ctx context.Context, tableName string, keys []string) ([]domrow.Row, error)
}

// TableReader reads table definitions for existence checks.
type TableReader interface {
	Get(ctx context.Context, name string) (domtab.Table, error)
}

// Controllers resolves the index controller of a table.
type Controllers interface {
	Controller(name string) (*index.Controller, bool)
}
