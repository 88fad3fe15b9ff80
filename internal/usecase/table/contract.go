package table

import (
	"context"

	domtab "github.com/kailas-cloud/rowdex/internal/domain/table"
)

// Repository defines the storage contract for the table catalog.
type Repository interface {
	Create(ctx context.Context, t domtab.Table) error
	Update(ctx context.Context, t domtab.Table) error
	Get(ctx context.Context, name string) (domtab.Table, error)
	List(ctx context.Context) ([]domtab.Table, error)
	Delete(ctx context.Context, name string) error
}

// RowPurger removes a table's rows when the table is dropped.
type RowPurger interface {
	DeleteTable(ctx context.Context, tableName string) (int, error)
}
