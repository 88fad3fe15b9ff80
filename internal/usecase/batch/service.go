package batch

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/rowdex/internal/domain"
	dombatch "github.com/kailas-cloud/rowdex/internal/domain/batch"
	domrow "github.com/kailas-cloud/rowdex/internal/domain/row"
)

// MaxBatchSize is the default maximum number of items per batch request.
const MaxBatchSize = 1000

// Item is one raw row in a batch request, not yet validated.
type Item struct {
	Key     string
	Columns map[string]any
}

// Service handles batch row upserts with per-item error reporting: a row
// that fails validation does not fail its neighbors.
type Service struct {
	rows         RowWriter
	tabs         TableReader
	ctrls        Controllers
	maxBatchSize int
}

// New creates a batch service.
func New(rows RowWriter, tabs TableReader, ctrls Controllers) *Service {
	return &Service{rows: rows, tabs: tabs, ctrls: ctrls, maxBatchSize: MaxBatchSize}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Upsert validates and stores rows in batch. Valid rows are written in
// one store round trip and mirrored into the index best-effort; invalid
// rows get their own error result.
func (s *Service) Upsert(ctx context.Context, tableName string, items []Item) []dombatch.Result {
	results := make([]dombatch.Result, len(items))

	if len(items) > s.maxBatchSize {
		for i, item := range items {
			results[i] = dombatch.NewError(
				item.Key,
				fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidArgument),
			)
		}
		return results
	}

	if _, err := s.tabs.Get(ctx, tableName); err != nil {
		for i, item := range items {
			results[i] = dombatch.NewError(item.Key, fmt.Errorf("get table: %w", err))
		}
		return results
	}

	valid := make([]domrow.Row, 0, len(items))
	validIdx := make([]int, 0, len(items))
	for i, item := range items {
		r, err := domrow.New(item.Key, item.Columns)
		if err != nil {
			results[i] = dombatch.NewError(item.Key, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
			continue
		}
		valid = append(valid, r)
		validIdx = append(validIdx, i)
	}

	if len(valid) == 0 {
		return results
	}

	if err := s.rows.PutMulti(ctx, tableName, valid); err != nil {
		for _, i := range validIdx {
			results[i] = dombatch.NewError(items[i].Key, fmt.Errorf("batch upsert: %w", err))
		}
		return results
	}

	if ctrl, ok := s.ctrls.Controller(tableName); ok {
		for _, r := range valid {
			ctrl.Index(r.Key(), r)
		}
	}

	for _, i := range validIdx {
		results[i] = dombatch.NewOK(items[i].Key)
	}
	return results
}
