// Package search executes condition-tree searches against a table's
// index and hydrates the hits from the authoritative row store.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/rowdex/internal/index"
	domsearch "github.com/kailas-cloud/rowdex/internal/search"
)

// Result is one ranked hit hydrated from the row store.
type Result struct {
	Key     string
	Score   float64
	Columns map[string]any
}

// Response carries hydrated hits plus engine totals. Total counts every
// match in the index; Results holds the requested page, minus hits whose
// rows were deleted after they were indexed.
type Response struct {
	Results []Result
	Total   uint64
	Took    time.Duration
}

// Service runs searches for one engine instance.
type Service struct {
	rows  RowReader
	tabs  TableReader
	ctrls Controllers
}

// New creates a search service.
func New(rows RowReader, tabs TableReader, ctrls Controllers) *Service {
	return &Service{rows: rows, tabs: tabs, ctrls: ctrls}
}

// Search parses a raw request, runs it against the table's index and
// hydrates the hits. Compile errors surface unchanged; a condition that
// cannot be compiled must never degrade into a silent empty result.
func (s *Service) Search(ctx context.Context, tableName string, rawRequest []byte) (*Response, error) {
	req, err := domsearch.ParseRequest(rawRequest)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, tableName, &req)
}

// Run executes an already-parsed request.
func (s *Service) Run(ctx context.Context, tableName string, req *domsearch.Request) (*Response, error) {
	if _, err := s.tabs.Get(ctx, tableName); err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}
	ctrl, ok := s.ctrls.Controller(tableName)
	if !ok {
		return nil, fmt.Errorf("table %q: %w", tableName, index.ErrNotReady)
	}

	res, err := ctrl.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(res.Hits))
	scores := make(map[string]float64, len(res.Hits))
	for _, hit := range res.Hits {
		keys = append(keys, hit.ID)
		scores[hit.ID] = hit.Score
	}

	rows, err := s.rows.GetMulti(ctx, tableName, keys)
	if err != nil {
		return nil, fmt.Errorf("hydrate rows: %w", err)
	}
	byKey := make(map[string]map[string]any, len(rows))
	for _, r := range rows {
		byKey[r.Key()] = r.Columns()
	}

	out := &Response{
		Results: make([]Result, 0, len(keys)),
		Total:   res.Total,
		Took:    res.Took,
	}
	for _, key := range keys {
		columns, ok := byKey[key]
		if !ok {
			continue
		}
		out.Results = append(out.Results, Result{Key: key, Score: scores[key], Columns: columns})
	}
	return out, nil
}
