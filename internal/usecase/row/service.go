package row

import (
	"context"
	"fmt"

	domrow "github.com/kailas-cloud/rowdex/internal/domain/row"
)

// Service handles row writes and reads. The store write is
// authoritative; mirroring a row into the index is best-effort and never
// fails the caller. Removing a row from the index is the one exception:
// a delete the index cannot record would leave a searchable ghost, so it
// propagates.
type Service struct {
	repo  Repository
	tabs  TableReader
	ctrls Controllers
}

// New creates a row service.
func New(repo Repository, tabs TableReader, ctrls Controllers) *Service {
	return &Service{repo: repo, tabs: tabs, ctrls: ctrls}
}

// Upsert stores a row and mirrors it into the table's index.
func (s *Service) Upsert(ctx context.Context, tableName string, r domrow.Row) error {
	if _, err := s.tabs.Get(ctx, tableName); err != nil {
		return fmt.Errorf("get table: %w", err)
	}
	if err := s.repo.Put(ctx, tableName, r); err != nil {
		return fmt.Errorf("put row: %w", err)
	}
	if ctrl, ok := s.ctrls.Controller(tableName); ok {
		ctrl.Index(r.Key(), r)
	}
	return nil
}

// UpsertBatch stores rows in one round trip and mirrors each into the
// index.
func (s *Service) UpsertBatch(ctx context.Context, tableName string, rows []domrow.Row) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := s.tabs.Get(ctx, tableName); err != nil {
		return fmt.Errorf("get table: %w", err)
	}
	if err := s.repo.PutMulti(ctx, tableName, rows); err != nil {
		return fmt.Errorf("put rows: %w", err)
	}
	if ctrl, ok := s.ctrls.Controller(tableName); ok {
		for _, r := range rows {
			ctrl.Index(r.Key(), r)
		}
	}
	return nil
}

// Get retrieves a row by key.
func (s *Service) Get(ctx context.Context, tableName, key string) (domrow.Row, error) {
	if _, err := s.tabs.Get(ctx, tableName); err != nil {
		return domrow.Row{}, fmt.Errorf("get table: %w", err)
	}
	r, err := s.repo.Get(ctx, tableName, key)
	if err != nil {
		return domrow.Row{}, fmt.Errorf("get row: %w", err)
	}
	return r, nil
}

// Delete removes a row from the index and then from the store. Both
// failures propagate: an index that cannot record the delete would keep
// serving the row.
func (s *Service) Delete(ctx context.Context, tableName, key string) error {
	if _, err := s.tabs.Get(ctx, tableName); err != nil {
		return fmt.Errorf("get table: %w", err)
	}
	if ctrl, ok := s.ctrls.Controller(tableName); ok {
		if err := ctrl.DeleteRow(key); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, tableName, key); err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	return nil
}

// Count returns the number of stored rows in a table.
func (s *Service) Count(ctx context.Context, tableName string) (int, error) {
	if _, err := s.tabs.Get(ctx, tableName); err != nil {
		return 0, fmt.Errorf("get table: %w", err)
	}
	keys, err := s.repo.Keys(ctx, tableName)
	if err != nil {
		return 0, fmt.Errorf("list keys: %w", err)
	}
	return len(keys), nil
}

// Stats describes a table's storage and index footprint.
type Stats struct {
	Rows      int
	IndexDocs uint64
	State     string
}

// Stats reports stored row count next to the index document count and
// lifecycle state. Index errors degrade to a zero count; the state field
// tells the caller why.
func (s *Service) Stats(ctx context.Context, tableName string) (Stats, error) {
	rows, err := s.Count(ctx, tableName)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Rows: rows, State: "none"}
	if ctrl, ok := s.ctrls.Controller(tableName); ok {
		st.State = ctrl.State().String()
		if n, err := ctrl.Count(); err == nil {
			st.IndexDocs = n
		}
	}
	return st, nil
}
