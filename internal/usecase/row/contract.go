package row

import (
	"context"

	domrow "github.com/kailas-cloud/rowdex/internal/domain/row"
	domtab "github.com/kailas-cloud/rowdex/internal/domain/table"
	"github.com/kailas-cloud/rowdex/internal/index"
)

// Repository defines the storage contract for rows.
type Repository interface {
	Put(ctx context.Context, tableName string, r domrow.Row) error
	PutMulti(ctx context.Context, tableName string, rows []domrow.Row) error
	Get(ctx context.Context, tableName, key string) (domrow.Row, error)
	Delete(ctx context.Context, tableName, key string) error
	Keys(ctx context.Context, tableName string) ([]string, error)
}

// TableReader reads table definitions for existence checks.
type TableReader interface {
	Get(ctx context.Context, name string) (domtab.Table, error)
}

// Controllers resolves the index controller of a table.
type Controllers interface {
	Controller(name string) (*index.Controller, bool)
}
