package table

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rowdex/internal/domain"
	domtab "github.com/kailas-cloud/rowdex/internal/domain/table"
	"github.com/kailas-cloud/rowdex/internal/index"
	"github.com/kailas-cloud/rowdex/internal/schema"
)

// Service handles table lifecycle: catalog CRUD plus one index
// controller per live table.
type Service struct {
	repo    Repository
	rows    RowPurger
	dataDir string
	log     *zap.Logger

	mu    sync.RWMutex
	ctrls map[string]*index.Controller
}

// New creates a table service. dataDir is the root for per-table index
// directories; when it is empty, tables without an explicit directory
// option fall back to in-memory indexes.
func New(repo Repository, rows RowPurger, dataDir string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		rows:    rows,
		dataDir: dataDir,
		log:     log,
		ctrls:   make(map[string]*index.Controller),
	}
}

// Create validates a table definition, persists it and opens its index.
// The index options are validated before any state is written.
func (s *Service) Create(
	ctx context.Context, name, schemaJSON string, options map[string]string,
) (domtab.Table, error) {
	tab, err := domtab.New(name, schemaJSON, options)
	if err != nil {
		return domtab.Table{}, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}

	merged := s.indexOptions(tab)
	if err := index.ValidateOptions(nil, name, merged); err != nil {
		return domtab.Table{}, err
	}

	if err := s.repo.Create(ctx, tab); err != nil {
		return domtab.Table{}, fmt.Errorf("create table: %w", err)
	}

	ctrl := index.NewController(name, merged, s.log)
	if err := ctrl.Init(); err != nil {
		if delErr := s.repo.Delete(ctx, name); delErr != nil {
			s.log.Error("rollback table create",
				zap.String("table", name), zap.Error(delErr))
		}
		return domtab.Table{}, fmt.Errorf("open index %s: %w", name, err)
	}

	s.mu.Lock()
	s.ctrls[name] = ctrl
	s.mu.Unlock()

	return tab, nil
}

// Ensure creates the table if it does not exist and otherwise makes sure
// its index controller is open. The stored definition wins over the
// arguments when the table already exists.
func (s *Service) Ensure(
	ctx context.Context, name, schemaJSON string, options map[string]string,
) (domtab.Table, error) {
	tab, err := s.repo.Get(ctx, name)
	if errors.Is(err, domain.ErrTableNotFound) {
		return s.Create(ctx, name, schemaJSON, options)
	}
	if err != nil {
		return domtab.Table{}, fmt.Errorf("get table: %w", err)
	}

	if _, ok := s.Controller(name); !ok {
		if err := s.open(tab); err != nil {
			return domtab.Table{}, err
		}
	}
	return tab, nil
}

// Alter replaces a table's index options and reopens its index. The
// schema is immutable; new options are validated against the live
// mapper columns before anything is touched.
func (s *Service) Alter(
	ctx context.Context, name string, options map[string]string,
) (domtab.Table, error) {
	if _, ok := options[index.OptionSchema]; ok {
		return domtab.Table{}, fmt.Errorf("%w: schema cannot be altered", domain.ErrInvalidOptions)
	}

	tab, err := s.repo.Get(ctx, name)
	if err != nil {
		return domtab.Table{}, fmt.Errorf("get table: %w", err)
	}

	next := domtab.Reconstruct(
		name, tab.SchemaJSON(), options, tab.CreatedAt(), tab.Version(),
	).WithVersion(tab.Version() + 1)

	merged := s.indexOptions(next)
	meta, err := liveMetadata(tab)
	if err != nil {
		return domtab.Table{}, err
	}
	if err := index.ValidateOptions(meta, name, merged); err != nil {
		return domtab.Table{}, err
	}

	if err := s.repo.Update(ctx, next); err != nil {
		return domtab.Table{}, fmt.Errorf("update table: %w", err)
	}

	if old, ok := s.Controller(name); ok {
		if err := old.Commit(); err != nil && !errors.Is(err, index.ErrNotReady) {
			s.log.Warn("commit before alter", zap.String("table", name), zap.Error(err))
		}
		if err := old.Invalidate(); err != nil {
			s.log.Warn("detach index before alter", zap.String("table", name), zap.Error(err))
		}
	}
	if err := s.open(next); err != nil {
		return domtab.Table{}, err
	}
	return next, nil
}

// Get retrieves a table definition by name.
func (s *Service) Get(ctx context.Context, name string) (domtab.Table, error) {
	tab, err := s.repo.Get(ctx, name)
	if err != nil {
		return domtab.Table{}, fmt.Errorf("get table: %w", err)
	}
	return tab, nil
}

// List returns all table definitions.
func (s *Service) List(ctx context.Context) ([]domtab.Table, error) {
	tabs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tabs, nil
}

// Drop removes a table: index segments first, then rows, then the
// catalog entry. A failing index teardown aborts the drop so nothing is
// half-deleted.
func (s *Service) Drop(ctx context.Context, name string) error {
	if _, err := s.repo.Get(ctx, name); err != nil {
		return fmt.Errorf("get table: %w", err)
	}

	s.mu.Lock()
	ctrl := s.ctrls[name]
	delete(s.ctrls, name)
	s.mu.Unlock()

	if ctrl != nil {
		if err := ctrl.RemoveIndex(); err != nil {
			s.mu.Lock()
			s.ctrls[name] = ctrl
			s.mu.Unlock()
			return fmt.Errorf("remove index %s: %w", name, err)
		}
	}

	if n, err := s.rows.DeleteTable(ctx, name); err != nil {
		return fmt.Errorf("delete rows of %s: %w", name, err)
	} else if n > 0 {
		s.log.Info("dropped table rows", zap.String("table", name), zap.Int("rows", n))
	}

	if err := s.repo.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete table: %w", err)
	}
	return nil
}

// Reload re-establishes a table's index after a restart or removal.
func (s *Service) Reload(ctx context.Context, name string) error {
	if ctrl, ok := s.Controller(name); ok {
		return ctrl.Reload()
	}
	tab, err := s.repo.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("get table: %w", err)
	}
	return s.open(tab)
}

// OpenAll rebuilds index controllers for every persisted table. A table
// whose index fails to open is registered anyway so a later Reload can
// retry; its rows remain readable meanwhile.
func (s *Service) OpenAll(ctx context.Context) error {
	tabs, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	for _, tab := range tabs {
		if _, ok := s.Controller(tab.Name()); ok {
			continue
		}
		ctrl := index.NewController(tab.Name(), s.indexOptions(tab), s.log)
		s.mu.Lock()
		s.ctrls[tab.Name()] = ctrl
		s.mu.Unlock()
		if err := ctrl.Init(); err != nil {
			s.log.Error("open index", zap.String("table", tab.Name()), zap.Error(err))
		}
	}
	return nil
}

// Controller returns the index controller for a table, if one is
// registered.
func (s *Service) Controller(name string) (*index.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctrl, ok := s.ctrls[name]
	return ctrl, ok
}

// States reports the lifecycle state of every registered controller.
func (s *Service) States() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.ctrls))
	for name, ctrl := range s.ctrls {
		out[name] = ctrl.State().String()
	}
	return out
}

// Commit flushes a table's buffered index writes.
func (s *Service) Commit(ctx context.Context, name string) error {
	ctrl, err := s.controllerOrErr(ctx, name)
	if err != nil {
		return err
	}
	return ctrl.Commit()
}

// Truncate drops index documents written before the given time. A zero
// time drops every document.
func (s *Service) Truncate(ctx context.Context, name string, before time.Time) error {
	ctrl, err := s.controllerOrErr(ctx, name)
	if err != nil {
		return err
	}
	if before.IsZero() {
		return ctrl.DeleteAll(ctx)
	}
	return ctrl.Truncate(ctx, before)
}

// controllerOrErr resolves a table's controller, distinguishing an
// unknown table from one whose index is not open.
func (s *Service) controllerOrErr(ctx context.Context, name string) (*index.Controller, error) {
	if ctrl, ok := s.Controller(name); ok {
		return ctrl, nil
	}
	if _, err := s.repo.Get(ctx, name); err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}
	return nil, fmt.Errorf("table %q: %w", name, index.ErrNotReady)
}

// Close commits and detaches every index controller. Segments stay on
// disk so the next boot can reopen them.
func (s *Service) Close() error {
	s.mu.Lock()
	ctrls := s.ctrls
	s.ctrls = make(map[string]*index.Controller)
	s.mu.Unlock()

	var firstErr error
	for name, ctrl := range ctrls {
		if err := ctrl.Commit(); err != nil && !errors.Is(err, index.ErrNotReady) {
			s.log.Warn("commit on close", zap.String("table", name), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
		if err := ctrl.Invalidate(); err != nil {
			s.log.Warn("close index", zap.String("table", name), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// open builds and initializes a controller for a stored table, replacing
// any registry entry.
func (s *Service) open(tab domtab.Table) error {
	ctrl := index.NewController(tab.Name(), s.indexOptions(tab), s.log)
	if err := ctrl.Init(); err != nil {
		return fmt.Errorf("open index %s: %w", tab.Name(), err)
	}
	s.mu.Lock()
	s.ctrls[tab.Name()] = ctrl
	s.mu.Unlock()
	return nil
}

// indexOptions merges a table's stored options with the schema and the
// engine-level directory default.
func (s *Service) indexOptions(tab domtab.Table) map[string]string {
	merged := make(map[string]string, len(tab.Options())+2)
	for k, v := range tab.Options() {
		merged[k] = v
	}
	merged[index.OptionSchema] = tab.SchemaJSON()
	if merged[index.OptionDirectory] == "" && merged[index.OptionInMemory] == "" {
		if s.dataDir == "" {
			merged[index.OptionInMemory] = "true"
		} else {
			merged[index.OptionDirectory] = filepath.Join(s.dataDir, tab.Name())
		}
	}
	return merged
}

// liveMetadata derives the live column set from a table's stored schema.
func liveMetadata(tab domtab.Table) (*domtab.Metadata, error) {
	sch, err := schema.Parse([]byte(tab.SchemaJSON()))
	if err != nil {
		return nil, fmt.Errorf("parse stored schema of %s: %w", tab.Name(), err)
	}
	return &domtab.Metadata{Name: tab.Name(), Columns: sch.Fields()}, nil
}
