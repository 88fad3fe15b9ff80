package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// RowService reads and writes the rows of one table. Obtain one via
// Client.Rows. Row counts are part of Tables().Stats.
type RowService struct {
	table string
	c     *Client
}

func (s *RowService) rowPath(key string) string {
	return tablePath(s.table, "/rows/"+url.PathEscape(key))
}

// Upsert stores a row; the server mirrors it into the table's index.
func (s *RowService) Upsert(ctx context.Context, r Row) (err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("row.upsert", start, err) }()

	if err = s.c.do(ctx, http.MethodPut, s.rowPath(r.Key), r.Columns, nil); err != nil {
		return fmt.Errorf("upsert row: %w", err)
	}
	return nil
}

// Get retrieves a row by key. Missing rows fail with ErrRowNotFound.
func (s *RowService) Get(ctx context.Context, key string) (_ Row, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("row.get", start, err) }()

	var row Row
	if err = s.c.do(ctx, http.MethodGet, s.rowPath(key), nil, &row); err != nil {
		return Row{}, fmt.Errorf("get row: %w", err)
	}
	return row, nil
}

// Delete removes a row from the index and the store.
func (s *RowService) Delete(ctx context.Context, key string) (err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("row.delete", start, err) }()

	if err = s.c.do(ctx, http.MethodDelete, s.rowPath(key), nil, nil); err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	return nil
}

// BatchUpsert stores rows in one round trip with per-row outcomes. A
// row that fails validation does not fail its neighbors; check each
// item's Error.
func (s *RowService) BatchUpsert(ctx context.Context, rows []Row) (_ BatchResponse, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("row.batch_upsert", start, err) }()

	var resp BatchResponse
	if err = s.c.do(ctx, http.MethodPost, tablePath(s.table, "/rows:batch"), batchRequest{Rows: rows}, &resp); err != nil {
		return BatchResponse{}, fmt.Errorf("batch upsert: %w", err)
	}
	return resp, nil
}
