// Package index owns the embedded engine index for each table: the
// Service performs document writes and searches against one Bleve index,
// the Controller wraps a Service with the lifecycle lock discipline.
package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/rowdex/internal/domain/row"
	"github.com/kailas-cloud/rowdex/internal/schema"
)

// ErrServiceClosed signals an operation against a closed indexing service.
var ErrServiceClosed = errors.New("indexing service closed")

// deletePageSize bounds one round of a delete-by-query sweep.
const deletePageSize = 500

// Service is the indexing service for one table: one live Bleve index,
// a buffered write batch and a flush policy. Writes go into the batch and
// become searchable once the batch commits (explicitly, on overflow, or
// via a refreshing search). All methods are safe for concurrent use.
type Service struct {
	schema *schema.Schema
	index  bleve.Index
	path   string

	mu      sync.Mutex
	batch   *bleve.Batch
	pending int
	closed  bool

	maxBuffered int
	nowFn       func() time.Time
}

// NewService opens the index at opts.Path, creating it with the schema's
// mapping when absent, or builds a transient in-memory index when
// opts.InMemory is set.
func NewService(sch *schema.Schema, opts Options) (*Service, error) {
	var idx bleve.Index
	var err error
	switch {
	case opts.InMemory:
		idx, err = bleve.NewMemOnly(sch.IndexMapping())
	default:
		idx, err = bleve.Open(opts.Path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			idx, err = bleve.New(opts.Path, sch.IndexMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	maxBuffered := opts.MaxBufferedDocs
	if maxBuffered <= 0 {
		maxBuffered = DefaultMaxBufferedDocs
	}
	return &Service{
		schema:      sch,
		index:       idx,
		path:        opts.Path,
		batch:       idx.NewBatch(),
		maxBuffered: maxBuffered,
		nowFn:       time.Now,
	}, nil
}

// Index converts the row into one engine document keyed by the partition
// key and buffers the upsert. Re-indexing a key replaces its document
// (per-key last-writer-wins). Unmapped and null columns are skipped.
func (s *Service) Index(key string, r row.Row) error {
	doc, err := s.document(r)
	if err != nil {
		return fmt.Errorf("index row %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServiceClosed
	}
	if err := s.batch.Index(key, doc); err != nil {
		return fmt.Errorf("index row %q: %w", key, err)
	}
	s.pending++
	if s.pending >= s.maxBuffered {
		return s.flushLocked()
	}
	return nil
}

// Delete buffers removal of all documents for the partition key.
func (s *Service) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServiceClosed
	}
	s.batch.Delete(key)
	s.pending++
	if s.pending >= s.maxBuffered {
		return s.flushLocked()
	}
	return nil
}

// Commit flushes the buffered batch so every prior write is searchable
// and persisted by the engine.
func (s *Service) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServiceClosed
	}
	return s.flushLocked()
}

func (s *Service) flushLocked() error {
	if s.pending == 0 {
		return nil
	}
	if err := s.index.Batch(s.batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	s.batch.Reset()
	s.pending = 0
	return nil
}

// DeleteAll drops every document while keeping the index open.
func (s *Service) DeleteAll(ctx context.Context) error {
	if err := s.Commit(); err != nil {
		return err
	}
	if err := s.deleteByQuery(ctx, bleve.NewMatchAllQuery()); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}
	return nil
}

// Truncate drops every document written before the given time.
func (s *Service) Truncate(ctx context.Context, before time.Time) error {
	if err := s.Commit(); err != nil {
		return err
	}
	max := float64(before.UnixMilli())
	excl := false
	q := bleve.NewNumericRangeInclusiveQuery(nil, &max, nil, &excl)
	q.SetField(schema.TimestampField)
	if err := s.deleteByQuery(ctx, q); err != nil {
		return fmt.Errorf("truncate before %v: %w", before, err)
	}
	return nil
}

func (s *Service) deleteByQuery(ctx context.Context, q query.Query) error {
	for {
		req := bleve.NewSearchRequestOptions(q, deletePageSize, 0, false)
		res, err := s.index.SearchInContext(ctx, req)
		if err != nil {
			return err
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := s.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := s.index.Batch(batch); err != nil {
			return err
		}
	}
}

// Search executes the engine request. With refresh set, buffered writes
// are committed first so the search observes them; otherwise the search
// runs against the last committed view.
func (s *Service) Search(ctx context.Context, req *bleve.SearchRequest, refresh bool) (*bleve.SearchResult, error) {
	if refresh {
		if err := s.Commit(); err != nil {
			return nil, err
		}
	} else {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return nil, ErrServiceClosed
		}
	}
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return res, nil
}

// Count returns the number of committed documents.
func (s *Service) Count() (uint64, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, ErrServiceClosed
	}
	n, err := s.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("doc count: %w", err)
	}
	return n, nil
}

// Close flushes buffered writes and releases the index. Further calls on
// a closed service return ErrServiceClosed; Close itself is idempotent.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	flushErr := s.flushLocked()
	s.closed = true
	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	return flushErr
}

// Destroy closes the service and removes its on-disk segments.
func (s *Service) Destroy() error {
	err := s.Close()
	if s.path != "" {
		if rmErr := os.RemoveAll(s.path); rmErr != nil && err == nil {
			err = fmt.Errorf("remove index files: %w", rmErr)
		}
	}
	return err
}

// document flattens the row into the engine document. Column values are
// coerced through their mappers up front so a bad value fails here, not
// deep inside the engine.
func (s *Service) document(r row.Row) (map[string]any, error) {
	doc := make(map[string]any, len(r.Columns())+1)
	for name, v := range r.Columns() {
		m, ok := s.schema.Mapper(name)
		if !ok || v == nil {
			continue
		}
		typed, err := m.QueryValue(name, v)
		if err != nil {
			return nil, err
		}
		doc[name] = typed
	}
	doc[schema.TimestampField] = s.nowFn().UnixMilli()
	return doc, nil
}
