package rowdex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/rowdex/internal/domain"
	dombatch "github.com/kailas-cloud/rowdex/internal/domain/batch"
	domrow "github.com/kailas-cloud/rowdex/internal/domain/row"
	batchuc "github.com/kailas-cloud/rowdex/internal/usecase/batch"
	rowuc "github.com/kailas-cloud/rowdex/internal/usecase/row"
)

// RowService reads and writes the rows of one table. Obtain one via
// Engine.Rows. The store write is authoritative; index mirroring is
// best-effort.
type RowService struct {
	table string
	rows  *rowuc.Service
	batch *batchuc.Service
}

// Upsert stores a row and mirrors it into the table's index.
func (s *RowService) Upsert(ctx context.Context, r Row) error {
	row, err := domrow.New(r.Key, r.Columns)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return s.rows.Upsert(ctx, s.table, row)
}

// Get retrieves a row by key. Missing rows fail with ErrRowNotFound.
func (s *RowService) Get(ctx context.Context, key string) (Row, error) {
	row, err := s.rows.Get(ctx, s.table, key)
	if err != nil {
		return Row{}, err
	}
	return Row{Key: row.Key(), Columns: row.Columns()}, nil
}

// Delete removes a row from the index and the store.
func (s *RowService) Delete(ctx context.Context, key string) error {
	return s.rows.Delete(ctx, s.table, key)
}

// Count returns the number of stored rows.
func (s *RowService) Count(ctx context.Context) (int, error) {
	return s.rows.Count(ctx, s.table)
}

// BatchUpsert stores rows in one round trip with per-row outcomes. A
// row that fails validation does not fail its neighbors; check each
// result's Err.
func (s *RowService) BatchUpsert(ctx context.Context, rows []Row) []BatchResult {
	items := make([]batchuc.Item, len(rows))
	for i, r := range rows {
		items[i] = batchuc.Item{Key: r.Key, Columns: r.Columns}
	}
	return fromBatchResults(s.batch.Upsert(ctx, s.table, items))
}

func fromBatchResults(results []dombatch.Result) []BatchResult {
	out := make([]BatchResult, len(results))
	for i, res := range results {
		out[i] = BatchResult{
			Key: res.Key(),
			OK:  res.Status() == dombatch.StatusOK,
			Err: res.Err(),
		}
	}
	return out
}
