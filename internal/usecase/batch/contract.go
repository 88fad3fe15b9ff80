package batch

import (
	"context"

	domrow "github.com/kailas-cloud/rowdex/internal/domain/row"
	domtab "github.com/kailas-cloud/rowdex/internal/domain/table"
	"github.com/kailas-cloud/rowdex/internal/index"
)

// RowWriter writes validated rows to the store in one round trip.
type RowWriter interface {
	PutMulti(ctx context.Context, tableName string, rows []domrow.Row) error
}

// TableReader reads table definitions for existence checks.
type TableReader interface {
	Get(ctx context.Context, name string) (domtab.Table, error)
}

// Controllers resolves the index controller of a table.
type Controllers interface {
	Controller(name string) (*index.Controller, bool)
}
